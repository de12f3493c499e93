package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/millionvolts/adgather/internal/executor"
	"github.com/millionvolts/adgather/internal/model"
	"github.com/millionvolts/adgather/internal/store"
)

// State is the scheduler's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateSettling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSettling:
		return "settling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// AccountFetcher produces one account's block for a round.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, acct model.Account, rng model.DateRange) (model.AccountBlock, error)
}

// Reconciler rewrites a billing block's cumulative rows as period deltas.
type Reconciler interface {
	Reconcile(block model.AccountBlock) model.AccountBlock
}

// DeliverySink accepts round payloads and reports acknowledgement per tag.
type DeliverySink interface {
	Deliver(ctx context.Context, round *model.RoundResult) error
	Acked(tag string) bool
}

// Config holds scheduler configuration.
type Config struct {
	Interval    time.Duration // Round interval
	Concurrency int           // Max accounts fetched at once
	InitOnly    bool          // Run one induction round, then stop
	BillingMode bool          // Reconcile billing blocks against baselines

	// Range fixes the reporting window for non-billing metrics. Zero
	// bounds mean the current day, re-evaluated each round.
	Range model.DateRange

	TickPeriod        time.Duration // Clock driving triggers and countdown (default 1s)
	InitAckTimeout    time.Duration // Bounded wait for induction acknowledgement (default 30s)
	InitAckPoll       time.Duration // Acknowledgement poll period (default 500ms)
	CountdownLogEvery time.Duration // Countdown log throttle (default 20s)
}

func (c *Config) applyDefaults() {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.TickPeriod == 0 {
		c.TickPeriod = time.Second
	}
	if c.InitAckTimeout == 0 {
		c.InitAckTimeout = 30 * time.Second
	}
	if c.InitAckPoll == 0 {
		c.InitAckPoll = 500 * time.Millisecond
	}
	if c.CountdownLogEvery == 0 {
		c.CountdownLogEvery = 20 * time.Second
	}
}

// Scheduler runs rounds over a fixed account roster.
type Scheduler struct {
	cfg      Config
	accounts []model.Account
	fetcher  AccountFetcher
	engine   Reconciler
	sink     DeliverySink
	store    store.Store
	logger   *slog.Logger
	now      func() time.Time

	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	// Touched only from the run loop.
	lastDone      time.Time
	nextAt        time.Time
	lastCountdown time.Time
}

// New creates a Scheduler. A nil logger falls back to slog.Default().
func New(cfg Config, accounts []model.Account, fetcher AccountFetcher, engine Reconciler, sink DeliverySink, st store.Store, logger *slog.Logger) *Scheduler {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		accounts: accounts,
		fetcher:  fetcher,
		engine:   engine,
		sink:     sink,
		store:    st,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Done is closed when the run loop exits, including the init-only stop.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Start begins the round loop. The first round runs on the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"accounts", len(s.accounts),
		"concurrency", s.cfg.Concurrency,
		"init_only", s.cfg.InitOnly,
		"billing_mode", s.cfg.BillingMode,
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight round to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	defer close(s.done)
	defer s.state.Store(int32(StateStopped))

	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	// First round does not wait for the interval.
	s.tick()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.State() == StateStopped {
				return
			}
			s.tick()
		}
	}
}

// tick evaluates the round triggers once. Rounds run synchronously inside
// the tick, so a new round can never start while one is in flight.
func (s *Scheduler) tick() {
	now := s.now()

	first := s.lastDone.IsZero()
	due := !first && !now.Before(s.nextAt)
	overdue := !first && now.Sub(s.lastDone) >= s.cfg.Interval

	if first || due || overdue {
		if overdue && !due {
			s.logger.Warn("overdue round, catching up",
				"since_last", now.Sub(s.lastDone).Round(time.Second))
		}
		s.runRound(now)
		return
	}

	remaining := s.nextAt.Sub(now)
	if remaining <= 10*time.Second || now.Sub(s.lastCountdown) >= s.cfg.CountdownLogEvery {
		s.logger.Info("next round", "in", remaining.Round(time.Second))
		s.lastCountdown = now
	}
}

func (s *Scheduler) runRound(now time.Time) {
	s.state.Store(int32(StateFetching))

	induction := s.cfg.InitOnly ||
		(s.cfg.BillingMode && s.hasBilling() && !s.store.Initialized())

	rng := s.cfg.Range
	if rng.Since == "" || rng.Until == "" {
		rng = model.TodayRange(now)
	}

	tasks := make([]executor.Task[model.AccountBlock], len(s.accounts))
	for i, acct := range s.accounts {
		tasks[i] = func(ctx context.Context) (model.AccountBlock, error) {
			return s.fetcher.FetchAccount(ctx, acct, rng)
		}
	}
	results := executor.Run(s.ctx, s.cfg.Concurrency, tasks)

	var blocks []model.AccountBlock
	for i, r := range results {
		if r.Err != nil {
			s.logger.Warn("account excluded from round",
				"account", s.accounts[i].PlainID, "error", r.Err)
			continue
		}
		blocks = append(blocks, r.Value)
	}

	s.state.Store(int32(StateSettling))

	if induction {
		s.settleInduction(blocks, rng, now)
	} else {
		s.settleRound(blocks, rng)
	}

	s.lastDone = s.now()
	s.nextAt = s.lastDone.Add(s.cfg.Interval)
	s.lastCountdown = s.lastDone

	if s.cfg.InitOnly && s.store.Initialized() {
		s.logger.Info("initialization confirmed, stopping")
		s.state.Store(int32(StateStopped))
		s.cancel()
		return
	}

	s.state.Store(int32(StateIdle))
}

// settleRound reconciles and delivers a recurring round.
func (s *Scheduler) settleRound(blocks []model.AccountBlock, rng model.DateRange) {
	if s.cfg.BillingMode {
		for i := range blocks {
			blocks[i] = s.engine.Reconcile(blocks[i])
		}
	}

	round := &model.RoundResult{
		Range:  rng,
		Blocks: blocks,
		Grand:  grandTotal(blocks),
	}

	if err := s.sink.Deliver(s.ctx, round); err != nil {
		s.logger.Error("round delivery failed", "tag", round.Tag, "error", err)
		return
	}
	s.logger.Info("round complete",
		"blocks", len(blocks),
		"spend", round.Grand.Spend,
		"results", round.Grand.Results,
	)
}

// settleInduction delivers the baseline payload and, once acknowledged,
// persists the baselines and marks the store initialized. On any failure the
// store stays uninitialized and the next round retries induction.
func (s *Scheduler) settleInduction(blocks []model.AccountBlock, rng model.DateRange, now time.Time) {
	var baselines []model.BaselineEntry
	accounts := 0
	for _, b := range blocks {
		if !b.Billing {
			continue
		}
		accounts++
		for _, row := range b.Rows {
			e := model.BaselineEntry{
				AccountID:    b.AccountNum,
				CampaignID:   row.CampaignID,
				CampaignName: row.CampaignName,
				Budget:       row.Budget,
				Currency:     b.Currency,
				UpdatedAt:    model.LocalTimestamp(now),
			}
			e.Metrics = row.Metrics
			baselines = append(baselines, e)
		}
	}

	round := &model.RoundResult{
		Range:    rng,
		Blocks:   blocks,
		Grand:    grandTotal(blocks),
		Init:     true,
		Baseline: baselines,
	}

	if err := s.sink.Deliver(s.ctx, round); err != nil {
		s.logger.Warn("induction delivery failed, will retry",
			"tag", round.Tag, "error", err)
		return
	}

	if !s.waitForAck(round.Tag) {
		s.logger.Warn("induction not acknowledged in time, will retry",
			"tag", round.Tag, "timeout", s.cfg.InitAckTimeout)
		return
	}

	if err := s.store.PutAll(s.ctx, baselines); err != nil {
		s.logger.Error("persist baselines failed", "error", err)
		return
	}
	if err := s.store.MarkInitialized(s.ctx); err != nil {
		s.logger.Error("mark initialized failed", "error", err)
		return
	}

	s.logger.Info("baselines initialized",
		"entries", len(baselines),
		"billing_accounts", accounts,
	)
}

// waitForAck polls the sink's acknowledgement within the configured bound.
func (s *Scheduler) waitForAck(tag string) bool {
	attempts := int(s.cfg.InitAckTimeout / s.cfg.InitAckPoll)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if s.sink.Acked(tag) {
			return true
		}
		select {
		case <-s.ctx.Done():
			return false
		case <-time.After(s.cfg.InitAckPoll):
		}
	}
	return s.sink.Acked(tag)
}

func (s *Scheduler) hasBilling() bool {
	for _, a := range s.accounts {
		if a.Billing {
			return true
		}
	}
	return false
}

// grandTotal sums block totals. Cost-per-result derives from the grand spend
// and results, not from averaging per-account ratios.
func grandTotal(blocks []model.AccountBlock) model.GrandTotal {
	var g model.GrandTotal
	for _, b := range blocks {
		g.Metrics = g.Metrics.Add(b.Total)
		g.Budget += b.BudgetTotal
	}
	return g
}
