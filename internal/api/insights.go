package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/millionvolts/adgather/internal/model"
)

// insightFields is the campaign-level field set requested from insights
// endpoints.
const insightFields = "campaign_id,campaign_name,objective," +
	"spend,impressions,clicks,results,cost_per_result,actions," +
	"date_start,date_stop"

// GetCampaignInsights fetches campaign-level insights for a date range,
// paginating through all pages.
func (c *Client) GetCampaignInsights(ctx context.Context, accountID string, rng model.DateRange) ([]InsightRow, error) {
	timeRange, err := json.Marshal(map[string]string{"since": rng.Since, "until": rng.Until})
	if err != nil {
		return nil, fmt.Errorf("encode time range: %w", err)
	}

	query := c.insightsQuery()
	query.Set("time_range", string(timeRange))

	return c.collectInsights(ctx, accountID, query)
}

// GetCampaignInsightsLifetime fetches cumulative-since-inception campaign
// insights, used for billing accounts and baseline capture.
func (c *Client) GetCampaignInsightsLifetime(ctx context.Context, accountID string) ([]InsightRow, error) {
	query := c.insightsQuery()
	query.Set("date_preset", "lifetime")

	return c.collectInsights(ctx, accountID, query)
}

func (c *Client) insightsQuery() url.Values {
	query := c.authedQuery()
	query.Set("level", "campaign")
	query.Set("fields", insightFields)
	query.Set("limit", strconv.Itoa(c.insightsPageLimit()))
	query.Set("use_unified_attribution_setting", "true")
	query.Set("action_report_time", "conversion")
	query.Set("time_increment", "all_days")
	return query
}

// insightsPageLimit requests larger pages than roster reads; the source
// accepts up to 5000 rows per insights page.
func (c *Client) insightsPageLimit() int {
	if c.pageLimit >= 5000 {
		return c.pageLimit
	}
	return 5000
}

func (c *Client) collectInsights(ctx context.Context, accountID string, query url.Values) ([]InsightRow, error) {
	accountID = model.NormalizeAccountID(accountID)
	fullURL := c.baseURL + "/" + c.version + "/" + accountID + "/insights?" + query.Encode()

	var all []InsightRow
	for fullURL != "" {
		var resp InsightsResponse
		if err := c.getURL(ctx, fullURL, &resp); err != nil {
			return nil, fmt.Errorf("get insights %s: %w", accountID, err)
		}
		all = append(all, resp.Data...)
		fullURL = resp.Paging.Next
	}

	return all, nil
}
