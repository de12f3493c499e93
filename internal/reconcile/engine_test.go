package reconcile

import (
	"context"
	"testing"

	"github.com/millionvolts/adgather/internal/model"
	"github.com/millionvolts/adgather/internal/store"
)

func snapshot(campaignID string, spend, results, clicks float64) model.CampaignSnapshot {
	s := model.CampaignSnapshot{CampaignID: campaignID}
	s.Spend = spend
	s.Results = results
	s.Clicks = clicks
	return s
}

func baseline(accountID, campaignID string, spend, results, clicks float64) model.BaselineEntry {
	e := model.BaselineEntry{AccountID: accountID, CampaignID: campaignID}
	e.Spend = spend
	e.Results = results
	e.Clicks = clicks
	return e
}

func TestReconcileSubtractsBaselines(t *testing.T) {
	s := store.NewMemoryStore()
	if err := s.PutAll(context.Background(), []model.BaselineEntry{
		baseline("100", "c1", 40, 4, 100),
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(s, nil)
	block := model.AccountBlock{
		AccountNum: "100",
		Billing:    true,
		Rows:       []model.CampaignSnapshot{snapshot("c1", 100, 10, 250)},
	}

	got := e.Reconcile(block)

	row := got.Rows[0]
	if row.Spend != 60 || row.Results != 6 || row.Clicks != 150 {
		t.Errorf("delta = %+v", row.Metrics)
	}
	if row.CostPerResult != 10 {
		t.Errorf("delta CPR = %v, want recomputed 10", row.CostPerResult)
	}
	if got.Total.Spend != 60 || got.Total.Results != 6 {
		t.Errorf("total = %+v, want re-summed deltas", got.Total)
	}
}

func TestReconcileMissingBaselinePassesThrough(t *testing.T) {
	e := NewEngine(store.NewMemoryStore(), nil)
	block := model.AccountBlock{
		AccountNum: "100",
		Billing:    true,
		Rows:       []model.CampaignSnapshot{snapshot("new", 50, 5, 10)},
	}

	got := e.Reconcile(block)

	row := got.Rows[0]
	if row.Spend != 50 || row.Results != 5 || row.Clicks != 10 {
		t.Errorf("row = %+v, want cumulative values unchanged", row.Metrics)
	}
}

func TestReconcilePreservesNegativeDeltas(t *testing.T) {
	s := store.NewMemoryStore()
	if err := s.PutAll(context.Background(), []model.BaselineEntry{
		baseline("100", "c1", 200, 20, 0),
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(s, nil)
	block := model.AccountBlock{
		AccountNum: "100",
		Billing:    true,
		Rows:       []model.CampaignSnapshot{snapshot("c1", 150, 25, 0)},
	}

	got := e.Reconcile(block)

	row := got.Rows[0]
	if row.Spend != -50 {
		t.Errorf("spend delta = %v, want -50 preserved", row.Spend)
	}
	if row.Results != 5 {
		t.Errorf("results delta = %v, want 5", row.Results)
	}
	if row.CostPerResult != -10 {
		t.Errorf("CPR = %v, want -50/5", row.CostPerResult)
	}
}

func TestReconcileSkipsNonBillingBlocks(t *testing.T) {
	s := store.NewMemoryStore()
	if err := s.PutAll(context.Background(), []model.BaselineEntry{
		baseline("100", "c1", 40, 0, 0),
	}); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(s, nil)
	block := model.AccountBlock{
		AccountNum: "100",
		Billing:    false,
		Rows:       []model.CampaignSnapshot{snapshot("c1", 100, 0, 0)},
	}

	got := e.Reconcile(block)

	if got.Rows[0].Spend != 100 {
		t.Errorf("spend = %v, non-billing block must pass through", got.Rows[0].Spend)
	}
}
