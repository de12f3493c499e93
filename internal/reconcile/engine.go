package reconcile

import (
	"log/slog"

	"github.com/millionvolts/adgather/internal/model"
	"github.com/millionvolts/adgather/internal/store"
)

// Engine subtracts baselines from billing-account blocks.
type Engine struct {
	store  store.Store
	logger *slog.Logger
}

// NewEngine returns an Engine reading baselines from s.
func NewEngine(s store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, logger: logger}
}

// Reconcile rewrites a billing block's rows as deltas against the stored
// baselines. A campaign without a baseline passes through unchanged, so a
// campaign created after induction reports its full cumulative values. The
// account total is re-summed from the delta rows. Non-billing blocks are
// returned untouched.
func (e *Engine) Reconcile(block model.AccountBlock) model.AccountBlock {
	if !block.Billing {
		return block
	}

	out := block
	out.Rows = make([]model.CampaignSnapshot, len(block.Rows))
	out.Total = model.Metrics{}

	for i, row := range block.Rows {
		baseline, ok := e.store.Get(block.AccountNum, row.CampaignID)
		if !ok {
			baseline = model.BaselineEntry{}
		}

		delta := row.Metrics.Sub(baseline.Metrics)
		e.warnNegatives(block.AccountNum, row.CampaignID, row.Metrics, baseline.Metrics, delta)

		row.Metrics = delta
		out.Rows[i] = row
		out.Total = out.Total.Add(delta)
	}

	return out
}

// warnNegatives logs each delta field that went below zero. Negative deltas
// usually mean the baseline was captured after a spend correction; they are
// preserved, never clamped.
func (e *Engine) warnNegatives(accountID, campaignID string, current, baseline, delta model.Metrics) {
	check := func(name string, cur, base, d float64) {
		if d < 0 {
			e.logger.Warn("negative reconciled delta",
				"account_id", accountID,
				"campaign_id", campaignID,
				"field", name,
				"current", cur,
				"baseline", base,
				"delta", d,
			)
		}
	}
	check("spend", current.Spend, baseline.Spend, delta.Spend)
	check("results", current.Results, baseline.Results, delta.Results)
	check("clicks", current.Clicks, baseline.Clicks, delta.Clicks)
	check("impressions", current.Impressions, baseline.Impressions, delta.Impressions)
	check("comments", current.Comments, baseline.Comments, delta.Comments)
}
