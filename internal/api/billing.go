package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GetBillingNode fetches the billing-detail node for an account. The lookup
// is best effort: a missing or unparsable node returns (nil, nil) so callers
// can degrade the block instead of failing the account.
func (c *Client) GetBillingNode(ctx context.Context, accountNum string) (*BillingNode, error) {
	variables, err := json.Marshal(map[string]string{"assetID": accountNum})
	if err != nil {
		return nil, fmt.Errorf("encode billing variables: %w", err)
	}

	form := url.Values{}
	form.Set("variables", string(variables))
	if c.accessToken != "" {
		form.Set("access_token", c.accessToken)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.doRequest(ctx, http.MethodPost, c.graphqlURL, strings.NewReader(form.Encode()), header)
	if err != nil {
		return nil, fmt.Errorf("get billing node %s: %w", accountNum, err)
	}

	return parseBillingResponse(raw), nil
}

// parseBillingResponse extracts the billing node from a response body,
// tolerating the anti-hijack prefix and trailing payload fragments the
// endpoint is known to emit. Returns nil when no node is present.
func parseBillingResponse(raw []byte) *BillingNode {
	body := stripAntiHijack(string(raw))

	dec := json.NewDecoder(strings.NewReader(body))
	for {
		var env billingEnvelope
		if err := dec.Decode(&env); err != nil {
			return nil
		}
		if env.Data.BillableAccount != nil {
			return env.Data.BillableAccount
		}
	}
}
