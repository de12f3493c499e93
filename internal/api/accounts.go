package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/millionvolts/adgather/internal/model"
)

// GetAccountMeta fetches name, currency, and status for one account.
func (c *Client) GetAccountMeta(ctx context.Context, accountID string) (*AccountMeta, error) {
	accountID = model.NormalizeAccountID(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("get account meta: empty account id")
	}

	query := c.authedQuery()
	query.Set("fields", "name,currency,account_status,account_id")

	var meta AccountMeta
	if err := c.get(ctx, "/"+accountID, query, &meta); err != nil {
		return nil, fmt.Errorf("get account meta %s: %w", accountID, err)
	}

	return &meta, nil
}

// ListCampaigns fetches the full campaign roster for an account, including
// deleted campaigns, paginating through all pages.
func (c *Client) ListCampaigns(ctx context.Context, accountID string) ([]Campaign, error) {
	accountID = model.NormalizeAccountID(accountID)

	query := c.authedQuery()
	query.Set("fields", "id,name,status,effective_status,daily_budget,lifetime_budget")
	query.Set("include_deleted", "true")
	query.Set("limit", strconv.Itoa(c.pageLimit))

	fullURL := c.baseURL + "/" + c.version + "/" + accountID + "/campaigns?" + query.Encode()

	var all []Campaign
	for fullURL != "" {
		var resp CampaignsResponse
		if err := c.getURL(ctx, fullURL, &resp); err != nil {
			return nil, fmt.Errorf("list campaigns %s: %w", accountID, err)
		}
		all = append(all, resp.Data...)
		fullURL = resp.Paging.Next
	}

	return all, nil
}
