package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/millionvolts/adgather/internal/model"
)

// ErrAlreadyDelivered marks a round whose tag was already attempted. The
// attempt is not repeated; the next round's fresh result supersedes it.
var ErrAlreadyDelivered = errors.New("round already delivered")

// Meta identifies the reporting client in every payload.
type Meta struct {
	User string `json:"user"`
	Geo  string `json:"geo"`
	Sign string `json:"sign"`
}

// Gate posts round payloads. Each delivery tag is attempted at most once,
// whether or not the attempt succeeds.
type Gate struct {
	url        string
	meta       Meta
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	sent  map[string]struct{}
	acked map[string]struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gate) {
		g.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

// NewGate creates a Gate posting to url.
func NewGate(url string, meta Meta, opts ...Option) *Gate {
	g := &Gate{
		url:        url,
		meta:       meta,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		now:        time.Now,
		sent:       make(map[string]struct{}),
		acked:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type payload struct {
	User           string                `json:"user"`
	Geo            string                `json:"geo"`
	Sign           string                `json:"sign"`
	Blocks         []model.AccountBlock  `json:"blocks"`
	Range          model.DateRange       `json:"range"`
	Grand          model.GrandTotal      `json:"grand"`
	TSClient       string                `json:"ts_client"`
	BillingMode    int                   `json:"billing_mode,omitempty"`
	BillingStage   string                `json:"billing_stage,omitempty"`
	BaselineBlocks []model.BaselineEntry `json:"baseline_blocks,omitempty"`
}

// Deliver posts the round. A round without a tag gets one assigned. The tag
// is marked as attempted before the network call, so a retried call with the
// same round returns ErrAlreadyDelivered regardless of the first outcome.
// Failures are returned to the caller, never retried here.
func (g *Gate) Deliver(ctx context.Context, round *model.RoundResult) error {
	if round.Tag == "" {
		round.Tag = uuid.NewString()
	}

	g.mu.Lock()
	if _, seen := g.sent[round.Tag]; seen {
		g.mu.Unlock()
		return ErrAlreadyDelivered
	}
	g.sent[round.Tag] = struct{}{}
	g.mu.Unlock()

	p := payload{
		User:     g.meta.User,
		Geo:      g.meta.Geo,
		Sign:     g.meta.Sign,
		Blocks:   round.Blocks,
		Range:    round.Range,
		Grand:    round.Grand,
		TSClient: model.LocalTimestamp(g.now()),
	}
	if round.Init {
		p.BillingMode = 1
		p.BillingStage = "init"
		p.BaselineBlocks = round.Baseline
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post round: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}

	g.mu.Lock()
	g.acked[round.Tag] = struct{}{}
	g.mu.Unlock()

	g.logger.Info("round delivered",
		"tag", round.Tag,
		"blocks", len(round.Blocks),
		"init", round.Init,
	)
	return nil
}

// Acked reports whether the collector accepted the payload carrying tag.
func (g *Gate) Acked(tag string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.acked[tag]
	return ok
}
