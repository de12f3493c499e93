package model

import (
	"strings"
	"time"
)

// Metrics is the closed metric schema. Every aggregation level (campaign,
// account, grand) carries exactly these fields; cost-per-result is derived
// and never averaged across levels.
type Metrics struct {
	Spend         float64 `json:"spend"`
	Results       float64 `json:"results"`
	Clicks        float64 `json:"clicks"`
	Impressions   float64 `json:"impressions"`
	Comments      float64 `json:"comments"`
	CostPerResult float64 `json:"cpr"`
}

// Add returns the field-wise sum with cost-per-result recomputed.
func (m Metrics) Add(o Metrics) Metrics {
	out := Metrics{
		Spend:       m.Spend + o.Spend,
		Results:     m.Results + o.Results,
		Clicks:      m.Clicks + o.Clicks,
		Impressions: m.Impressions + o.Impressions,
		Comments:    m.Comments + o.Comments,
	}
	out.CostPerResult = out.deriveCPR()
	return out
}

// Sub returns the field-wise difference with cost-per-result recomputed.
// Negative fields are preserved.
func (m Metrics) Sub(o Metrics) Metrics {
	out := Metrics{
		Spend:       m.Spend - o.Spend,
		Results:     m.Results - o.Results,
		Clicks:      m.Clicks - o.Clicks,
		Impressions: m.Impressions - o.Impressions,
		Comments:    m.Comments - o.Comments,
	}
	out.CostPerResult = out.deriveCPR()
	return out
}

func (m Metrics) deriveCPR() float64 {
	if m.Results > 0 {
		return m.Spend / m.Results
	}
	return 0
}

// Account describes one advertising account for the duration of a round.
type Account struct {
	ID      string // Canonical "act_<digits>"
	PlainID string // Bare numeric form
	Billing bool   // Metrics are cumulative-since-inception
}

// CampaignSnapshot holds one campaign's metrics for one account and one round.
type CampaignSnapshot struct {
	AccountID    string `json:"account_id"`
	AccountNum   string `json:"account_num"`
	AccountName  string `json:"account_name"`
	Currency     string `json:"currency"`
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Metrics
	Budget          float64 `json:"budget"`  // Major units, daily else lifetime
	Enabled         bool    `json:"enabled"` // Effective status contains ACTIVE
	EffectiveStatus string  `json:"eff_label"`
}

// BaselineEntry is a campaign snapshot captured during the induction round,
// subtracted from later cumulative snapshots to obtain period deltas.
type BaselineEntry struct {
	AccountID    string `json:"account_id"` // Bare numeric form
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Metrics
	Budget    float64 `json:"budget"`
	Currency  string  `json:"currency"`
	UpdatedAt string  `json:"updated_at"`
}

// Key returns the baseline store key for this entry.
func (e BaselineEntry) Key() string {
	return BaselineKey(e.AccountID, e.CampaignID)
}

// BaselineKey builds the store key for an (account, campaign) pair.
// accountID may be given in canonical or bare form.
func BaselineKey(accountID, campaignID string) string {
	return PlainAccountID(accountID) + "-" + campaignID
}

// BillingInfo carries the billing-detail fields for one account. Fields are
// preformatted display strings; "—" marks an unavailable value.
type BillingInfo struct {
	Threshold  string `json:"threshold"`
	SpendLimit string `json:"dsl"`
	Unpaid     string `json:"unpaid"`
	Currency   string `json:"currency"`
}

// AccountBlock is one account's share of a round result.
type AccountBlock struct {
	AccountID     string             `json:"account_id"`
	AccountNum    string             `json:"account_num"`
	AccountName   string             `json:"account_name"`
	AccountStatus string             `json:"account_status_label"`
	Currency      string             `json:"currency"`
	Rows          []CampaignSnapshot `json:"rows"`
	Total         Metrics            `json:"total"`
	BudgetTotal   float64            `json:"budgetTotal"`
	Info          BillingInfo        `json:"accInfo"`
	Billing       bool               `json:"billing"`
}

// GrandTotal aggregates all blocks of a round. Its cost-per-result is derived
// from the grand spend and results, never averaged from per-account ratios.
type GrandTotal struct {
	Metrics
	Budget float64 `json:"budget"`
}

// DateRange bounds the reporting window of a non-billing insights query.
type DateRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

// TodayRange returns a range covering the given day.
func TodayRange(now time.Time) DateRange {
	d := now.Format("2006-01-02")
	return DateRange{Since: d, Until: d}
}

// RoundResult is the outcome of one fetch→reconcile→deliver cycle. The
// scheduler owns it for the lifetime of the round.
type RoundResult struct {
	Range    DateRange
	Blocks   []AccountBlock
	Grand    GrandTotal
	Tag      string // Delivery tag, assigned by the gate when empty
	Init     bool   // Induction round carrying baselines
	Baseline []BaselineEntry
}

// NormalizeAccountID coerces an account identifier to the canonical
// "act_<digits>" form.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}

// PlainAccountID strips the "act_" prefix from an account identifier.
func PlainAccountID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "act_")
}

// StatusLabel maps an account status code to its display label.
func StatusLabel(code int) string {
	switch code {
	case 1:
		return "Active"
	case 2:
		return "Disabled"
	case 3:
		return "Unsettled"
	case 7:
		return "Pending"
	case 8:
		return "Banned"
	default:
		return "Unknown"
	}
}

// LocalTimestamp formats t as "YYYY-MM-DD HH:MM:SS" in local time, the format
// the downstream collector expects for ts_client and baseline updated_at.
func LocalTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
