package api

import (
	"strings"

	"github.com/millionvolts/adgather/internal/model"
	"github.com/millionvolts/adgather/internal/numeric"
)

// ToSnapshot converts an insights row into a campaign snapshot. Field-level
// parse failures default to zero.
func (r InsightRow) ToSnapshot() model.CampaignSnapshot {
	s := model.CampaignSnapshot{
		CampaignID:   r.CampaignID,
		CampaignName: r.CampaignName,
	}
	s.Spend = numeric.Scalar(r.Spend)
	s.Clicks = numeric.Scalar(r.Clicks)
	s.Impressions = numeric.Scalar(r.Impressions)
	s.Results = numeric.ReadResults(r.Results)
	s.CostPerResult = numeric.ReadCostPerResult(r.CostPerResult)
	s.Comments = r.CommentCount()
	return s
}

// CommentCount sums the "comment" actions of the row.
func (r InsightRow) CommentCount() float64 {
	var sum float64
	for _, a := range r.Actions {
		if a.ActionType == "comment" {
			sum += numeric.Scalar(a.Value)
		}
	}
	return sum
}

// EffectiveLabel returns the campaign's effective status, falling back to
// the configured status, uppercased.
func (c Campaign) EffectiveLabel() string {
	label := c.EffectiveStatus
	if label == "" {
		label = c.Status
	}
	return strings.ToUpper(label)
}

// BudgetMajor returns the campaign budget in major units for the given
// currency: the daily budget when set, else the lifetime budget, else 0.
func (c Campaign) BudgetMajor(currency string) float64 {
	if c.DailyBudget != "" {
		return numeric.MinorStringToMajor(c.DailyBudget, currency)
	}
	if c.LifetimeBudget != "" {
		return numeric.MinorStringToMajor(c.LifetimeBudget, currency)
	}
	return 0
}

// ToBillingInfo converts a billing node into display fields. A nil node
// yields placeholder dashes.
func (n *BillingNode) ToBillingInfo(currency string) model.BillingInfo {
	info := model.BillingInfo{
		Threshold:  "—",
		SpendLimit: "—",
		Unpaid:     "—",
		Currency:   currency,
	}
	if n == nil {
		return info
	}

	if s, ok := n.BillingThreshold.format(currency); ok {
		info.Threshold = s
	}

	if n.FormattedDSL != "" {
		info.SpendLimit = strings.Join(strings.Fields(n.FormattedDSL), " ")
	} else if s, ok := n.AccountDSL.format(currency); ok {
		info.SpendLimit = s
	}

	if s, ok := n.BalanceWithTax.format(currency); ok {
		info.Unpaid = s
	}

	return info
}

// format renders the amount as a display string, reporting ok=false when the
// amount is absent.
func (m *MoneyAmount) format(fallback string) (string, bool) {
	if m == nil || len(m.AmountWithOffset) == 0 || string(m.AmountWithOffset) == "null" {
		return "", false
	}
	currency := m.Currency
	if currency == "" {
		currency = fallback
	}
	return numeric.FormatMoney(int64(numeric.Scalar(m.AmountWithOffset)), currency), true
}
