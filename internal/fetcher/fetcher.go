package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/millionvolts/adgather/internal/api"
	"github.com/millionvolts/adgather/internal/model"
)

// Source provides the per-account reads. *api.Client satisfies it.
type Source interface {
	GetAccountMeta(ctx context.Context, accountID string) (*api.AccountMeta, error)
	ListCampaigns(ctx context.Context, accountID string) ([]api.Campaign, error)
	GetCampaignInsights(ctx context.Context, accountID string, rng model.DateRange) ([]api.InsightRow, error)
	GetCampaignInsightsLifetime(ctx context.Context, accountID string) ([]api.InsightRow, error)
	GetBillingNode(ctx context.Context, accountNum string) (*api.BillingNode, error)
}

// Fetcher builds account blocks from a Source.
type Fetcher struct {
	src    Source
	logger *slog.Logger
}

// New returns a Fetcher. A nil logger falls back to slog.Default().
func New(src Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{src: src, logger: logger}
}

// FetchAccount gathers the four reads for one account concurrently and folds
// them into a block. Metadata and billing-detail failures degrade with a
// warning; a campaign roster or insights failure fails the account. Billing
// accounts report lifetime-cumulative metrics, others the given range.
func (f *Fetcher) FetchAccount(ctx context.Context, acct model.Account, rng model.DateRange) (model.AccountBlock, error) {
	plainID := acct.PlainID
	if plainID == "" {
		plainID = model.PlainAccountID(acct.ID)
	}

	var (
		meta      *api.AccountMeta
		campaigns []api.Campaign
		insights  []api.InsightRow
		billing   *api.BillingNode
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, err := f.src.GetAccountMeta(gctx, acct.ID)
		if err != nil {
			f.logger.Warn("account metadata unavailable, using defaults",
				"account_id", plainID, "error", err)
			return nil
		}
		meta = m
		return nil
	})

	g.Go(func() error {
		cs, err := f.src.ListCampaigns(gctx, acct.ID)
		if err != nil {
			return fmt.Errorf("campaigns for %s: %w", plainID, err)
		}
		campaigns = cs
		return nil
	})

	g.Go(func() error {
		var (
			rows []api.InsightRow
			err  error
		)
		if acct.Billing {
			rows, err = f.src.GetCampaignInsightsLifetime(gctx, acct.ID)
		} else {
			rows, err = f.src.GetCampaignInsights(gctx, acct.ID, rng)
		}
		if err != nil {
			return fmt.Errorf("insights for %s: %w", plainID, err)
		}
		insights = rows
		return nil
	})

	g.Go(func() error {
		node, err := f.src.GetBillingNode(gctx, plainID)
		if err != nil {
			f.logger.Warn("billing details unavailable",
				"account_id", plainID, "error", err)
			return nil
		}
		billing = node
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.AccountBlock{}, err
	}

	name := "Account " + plainID
	currency := "USD"
	statusLabel := "Active"
	if meta != nil {
		if meta.Name != "" {
			name = meta.Name
		}
		if meta.Currency != "" {
			currency = meta.Currency
		}
		statusLabel = model.StatusLabel(meta.AccountStatus)
	}

	block := model.AccountBlock{
		AccountID:     model.NormalizeAccountID(acct.ID),
		AccountNum:    plainID,
		AccountName:   name,
		AccountStatus: statusLabel,
		Currency:      currency,
		Billing:       acct.Billing,
		Info:          billing.ToBillingInfo(currency),
	}

	byID := make(map[string]api.Campaign, len(campaigns))
	var active []api.Campaign
	for _, c := range campaigns {
		byID[c.ID] = c
		label := c.EffectiveLabel()
		if campaignActive(label) {
			active = append(active, c)
		}
		if strings.Contains(label, "ACTIVE") {
			block.BudgetTotal += c.BudgetMajor(currency)
		}
	}

	for _, row := range insights {
		c, known := byID[row.CampaignID]
		label := ""
		if known {
			label = c.EffectiveLabel()
			if !campaignActive(label) {
				continue
			}
		}
		s := row.ToSnapshot()
		f.stampRow(&s, block, c, label, currency)
		block.Rows = append(block.Rows, s)
	}

	// Insights report nothing for campaigns without recorded activity.
	// Synthesize zero rows so every active campaign still appears and can
	// anchor a baseline.
	if len(block.Rows) == 0 && len(active) > 0 {
		for _, c := range active {
			s := model.CampaignSnapshot{
				CampaignID:   c.ID,
				CampaignName: c.Name,
			}
			f.stampRow(&s, block, c, c.EffectiveLabel(), currency)
			block.Rows = append(block.Rows, s)
		}
	}

	for _, row := range block.Rows {
		block.Total = block.Total.Add(row.Metrics)
	}
	return block, nil
}

func (f *Fetcher) stampRow(s *model.CampaignSnapshot, block model.AccountBlock, c api.Campaign, label, currency string) {
	s.AccountID = block.AccountID
	s.AccountNum = block.AccountNum
	s.AccountName = block.AccountName
	s.Currency = currency
	if s.CampaignName == "" {
		s.CampaignName = c.Name
	}
	s.Budget = c.BudgetMajor(currency)
	s.Enabled = strings.Contains(label, "ACTIVE")
	s.EffectiveStatus = label
}

// campaignActive reports whether a campaign with the given effective label
// still counts for reporting. Unknown and empty labels count as active.
func campaignActive(label string) bool {
	return !strings.Contains(label, "DELETED") && !strings.Contains(label, "ARCHIVED")
}
