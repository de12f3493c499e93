package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/millionvolts/adgather/internal/model"
	"github.com/millionvolts/adgather/internal/reconcile"
	"github.com/millionvolts/adgather/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, acct model.Account, rng model.DateRange) (model.AccountBlock, error)
}

func (f *fakeFetcher) FetchAccount(ctx context.Context, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()
	return f.fn(call, acct, rng)
}

type fakeSink struct {
	mu         sync.Mutex
	rounds     []model.RoundResult
	deliverErr error
	ack        bool
}

func (f *fakeSink) Deliver(ctx context.Context, round *model.RoundResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if round.Tag == "" {
		round.Tag = fmt.Sprintf("tag-%d", len(f.rounds))
	}
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.rounds = append(f.rounds, *round)
	return nil
}

func (f *fakeSink) Acked(tag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ack
}

func (f *fakeSink) delivered() []model.RoundResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.RoundResult, len(f.rounds))
	copy(out, f.rounds)
	return out
}

func billingBlock(acct model.Account, spend, results float64, campaigns int) model.AccountBlock {
	b := model.AccountBlock{
		AccountID:  acct.ID,
		AccountNum: acct.PlainID,
		Currency:   "USD",
		Billing:    acct.Billing,
	}
	for i := 0; i < campaigns; i++ {
		s := model.CampaignSnapshot{
			CampaignID:   fmt.Sprintf("c%d", i+1),
			CampaignName: fmt.Sprintf("Campaign %d", i+1),
		}
		s.Spend = spend
		s.Results = results
		b.Rows = append(b.Rows, s)
		b.Total = b.Total.Add(s.Metrics)
	}
	return b
}

// newTestScheduler wires a scheduler for synchronous tick-driven tests.
func newTestScheduler(t *testing.T, cfg Config, accounts []model.Account, f AccountFetcher, sink DeliverySink, st store.Store, clock *fakeClock) *Scheduler {
	t.Helper()
	cfg.InitAckPoll = time.Millisecond
	cfg.InitAckTimeout = 10 * time.Millisecond
	s := New(cfg, accounts, f, reconcile.NewEngine(st, nil), sink, st, nil)
	s.now = clock.Now
	s.ctx, s.cancel = context.WithCancel(context.Background())
	t.Cleanup(s.cancel)
	return s
}

func TestBillingReconcileAcrossRounds(t *testing.T) {
	acct := model.Account{ID: "act_100", PlainID: "100", Billing: true}
	clock := &fakeClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}

	fetcher := &fakeFetcher{
		fn: func(call int, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
			if call == 0 {
				return billingBlock(acct, 100, 10, 3), nil
			}
			return billingBlock(acct, 150, 12, 3), nil
		},
	}
	sink := &fakeSink{ack: true}
	st := store.NewMemoryStore()

	s := newTestScheduler(t, Config{
		Interval:    time.Minute,
		Concurrency: 2,
		BillingMode: true,
	}, []model.Account{acct}, fetcher, sink, st, clock)

	// First tick runs the forced induction round.
	s.tick()

	if !st.Initialized() {
		t.Fatal("store should be initialized after acknowledged induction")
	}
	rounds := sink.delivered()
	if len(rounds) != 1 || !rounds[0].Init {
		t.Fatalf("rounds = %+v, want one init round", rounds)
	}
	if n := len(rounds[0].Baseline); n != 3 {
		t.Fatalf("baselines = %d, want 3", n)
	}
	base, ok := st.Get("100", "c2")
	if !ok || base.Spend != 100 || base.Results != 10 {
		t.Fatalf("baseline = %+v, %v", base, ok)
	}

	// Next interval: the recurring round reconciles against the baseline.
	clock.Advance(time.Minute)
	s.tick()

	rounds = sink.delivered()
	if len(rounds) != 2 {
		t.Fatalf("rounds = %d, want 2", len(rounds))
	}
	round := rounds[1]
	if round.Init {
		t.Fatal("second round should be recurring")
	}
	row := round.Blocks[0].Rows[0]
	if row.Spend != 50 || row.Results != 2 {
		t.Errorf("delta = %+v, want spend 50 results 2", row.Metrics)
	}
	if row.CostPerResult != 25 {
		t.Errorf("delta CPR = %v, want 25", row.CostPerResult)
	}
	if round.Grand.Spend != 150 || round.Grand.Results != 6 {
		t.Errorf("grand = %+v, want summed deltas", round.Grand.Metrics)
	}
	if round.Grand.CostPerResult != 25 {
		t.Errorf("grand CPR = %v, want 150/6", round.Grand.CostPerResult)
	}
}

func TestCatchUpTriggersRound(t *testing.T) {
	acct := model.Account{ID: "act_1", PlainID: "1"}
	clock := &fakeClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}

	fetcher := &fakeFetcher{
		fn: func(call int, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
			return model.AccountBlock{AccountNum: acct.PlainID}, nil
		},
	}
	sink := &fakeSink{ack: true}

	s := newTestScheduler(t, Config{
		Interval:    time.Minute,
		Concurrency: 1,
	}, []model.Account{acct}, fetcher, sink, store.NewMemoryStore(), clock)

	s.tick()
	if n := len(sink.delivered()); n != 1 {
		t.Fatalf("first tick delivered %d rounds, want 1", n)
	}

	// Mid-interval ticks do not trigger.
	clock.Advance(30 * time.Second)
	s.tick()
	if n := len(sink.delivered()); n != 1 {
		t.Fatalf("mid-interval tick delivered %d rounds, want 1", n)
	}

	// A suspend longer than the interval triggers immediately on the next
	// tick instead of waiting out the stale schedule.
	clock.Advance(5 * time.Minute)
	s.tick()
	if n := len(sink.delivered()); n != 2 {
		t.Fatalf("post-suspend tick delivered %d rounds, want 2", n)
	}
}

func TestDeliveryFailureKeepsSchedulerRunning(t *testing.T) {
	acct := model.Account{ID: "act_1", PlainID: "1"}
	clock := &fakeClock{t: time.Now()}

	fetcher := &fakeFetcher{
		fn: func(call int, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
			return model.AccountBlock{AccountNum: acct.PlainID}, nil
		},
	}
	sink := &fakeSink{deliverErr: errors.New("collector down")}

	s := newTestScheduler(t, Config{
		Interval:    time.Minute,
		Concurrency: 1,
	}, []model.Account{acct}, fetcher, sink, store.NewMemoryStore(), clock)

	s.tick()
	if got := s.State(); got != StateIdle {
		t.Errorf("state = %v, want idle after failed delivery", got)
	}

	clock.Advance(time.Minute)
	s.tick()
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want rounds to continue", fetcher.calls)
	}
}

func TestInductionWithoutAckRetriesNextRound(t *testing.T) {
	acct := model.Account{ID: "act_100", PlainID: "100", Billing: true}
	clock := &fakeClock{t: time.Now()}

	fetcher := &fakeFetcher{
		fn: func(call int, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
			return billingBlock(acct, 100, 10, 1), nil
		},
	}
	sink := &fakeSink{ack: false}
	st := store.NewMemoryStore()

	s := newTestScheduler(t, Config{
		Interval:    time.Minute,
		Concurrency: 1,
		BillingMode: true,
	}, []model.Account{acct}, fetcher, sink, st, clock)

	s.tick()

	if st.Initialized() {
		t.Fatal("unacknowledged induction must not initialize the store")
	}

	clock.Advance(time.Minute)
	s.tick()

	rounds := sink.delivered()
	if len(rounds) != 2 || !rounds[1].Init {
		t.Fatalf("rounds = %d (last init=%v), want second induction attempt",
			len(rounds), rounds[len(rounds)-1].Init)
	}
}

func TestFailedAccountExcludedFromRound(t *testing.T) {
	accounts := []model.Account{
		{ID: "act_1", PlainID: "1"},
		{ID: "act_2", PlainID: "2"},
	}
	clock := &fakeClock{t: time.Now()}

	fetcher := &fakeFetcher{
		fn: func(call int, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
			if acct.PlainID == "1" {
				return model.AccountBlock{}, errors.New("unreachable")
			}
			return model.AccountBlock{AccountNum: acct.PlainID}, nil
		},
	}
	sink := &fakeSink{ack: true}

	s := newTestScheduler(t, Config{
		Interval:    time.Minute,
		Concurrency: 2,
	}, accounts, fetcher, sink, store.NewMemoryStore(), clock)

	s.tick()

	rounds := sink.delivered()
	if len(rounds) != 1 {
		t.Fatalf("rounds = %d, want 1", len(rounds))
	}
	if len(rounds[0].Blocks) != 1 || rounds[0].Blocks[0].AccountNum != "2" {
		t.Errorf("blocks = %+v, want only the healthy account", rounds[0].Blocks)
	}
}

func TestInitOnlyStopsAfterConfirmedInduction(t *testing.T) {
	acct := model.Account{ID: "act_100", PlainID: "100", Billing: true}

	fetcher := &fakeFetcher{
		fn: func(call int, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
			return billingBlock(acct, 100, 10, 2), nil
		},
	}
	sink := &fakeSink{ack: true}
	st := store.NewMemoryStore()

	s := New(Config{
		Interval:       time.Minute,
		Concurrency:    1,
		InitOnly:       true,
		TickPeriod:     5 * time.Millisecond,
		InitAckPoll:    time.Millisecond,
		InitAckTimeout: 50 * time.Millisecond,
	}, []model.Account{acct}, fetcher, reconcile.NewEngine(st, nil), sink, st, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop in init-only mode")
	}

	if got := s.State(); got != StateStopped {
		t.Errorf("state = %v, want stopped", got)
	}
	if !st.Initialized() {
		t.Error("store should be initialized")
	}
	if n := len(st.Entries()); n != 2 {
		t.Errorf("baselines = %d, want 2", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
