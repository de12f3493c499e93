package api

import "encoding/json"

// AccountMeta from GET /{version}/{account_id}
type AccountMeta struct {
	Name          string `json:"name"`
	Currency      string `json:"currency"`
	AccountStatus int    `json:"account_status"`
	AccountID     string `json:"account_id"`
}

// Paging carries the absolute URL of the next page, empty on the last page.
type Paging struct {
	Next string `json:"next"`
}

// CampaignsResponse from GET /{version}/{account_id}/campaigns
type CampaignsResponse struct {
	Data   []Campaign `json:"data"`
	Paging Paging     `json:"paging"`
}

// Campaign is one roster entry, budgets in minor units as reported.
type Campaign struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status"`
	DailyBudget     string `json:"daily_budget"`
	LifetimeBudget  string `json:"lifetime_budget"`
}

// InsightsResponse from GET /{version}/{account_id}/insights
type InsightsResponse struct {
	Data   []InsightRow `json:"data"`
	Paging Paging       `json:"paging"`
}

// InsightRow is one campaign-level insights row. Results and cost-per-result
// arrive in multiple historical shapes and stay raw until normalization.
type InsightRow struct {
	CampaignID    string          `json:"campaign_id"`
	CampaignName  string          `json:"campaign_name"`
	Objective     string          `json:"objective"`
	Spend         json.RawMessage `json:"spend"`
	Impressions   json.RawMessage `json:"impressions"`
	Clicks        json.RawMessage `json:"clicks"`
	Results       json.RawMessage `json:"results"`
	CostPerResult json.RawMessage `json:"cost_per_result"`
	Actions       []Action        `json:"actions"`
	DateStart     string          `json:"date_start"`
	DateStop      string          `json:"date_stop"`
}

// Action is one entry of an insights actions list.
type Action struct {
	ActionType string          `json:"action_type"`
	Value      json.RawMessage `json:"value"`
}

// MoneyAmount is a minor-unit amount with its currency. The amount arrives
// as either a number or a numeric string and stays raw until formatting.
type MoneyAmount struct {
	AmountWithOffset json.RawMessage `json:"amount_with_offset"`
	Currency         string          `json:"currency"`
}

// BillingNode holds the billing-detail fields of one account.
type BillingNode struct {
	BillingThreshold *MoneyAmount `json:"billing_threshold_currency_amount"`
	FormattedDSL     string       `json:"formatted_dsl"`
	AccountDSL       *MoneyAmount `json:"account_dsl"`
	BalanceWithTax   *MoneyAmount `json:"account_balance_with_tax"`
}

// billingEnvelope wraps the GraphQL billing response.
type billingEnvelope struct {
	Data struct {
		BillableAccount *BillingNode `json:"billable_account_by_asset_id"`
	} `json:"data"`
}
