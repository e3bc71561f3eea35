package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// Store is the history query surface the provider uses.
type Store interface {
	QueryHistoryByDate(ctx context.Context, date string) ([]Visit, error)
	QueryInterestsByDate(ctx context.Context, date string) ([]Interest, error)
}

// Provider answers browsing history and interest queries from the external
// history store. It never touches the extension bridge.
type Provider struct {
	store Store
}

// NewProvider creates a history provider
func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	dateParam := types.Parameter{Name: "date", Type: "string", Description: "Date in YYYY-MM-DD format", Required: true}

	return types.Service{
		ID:          "history",
		Name:        "Browsing History",
		Description: "Browsing history and interest analysis by date",
		Category:    types.CategoryHistory,
		Capabilities: []string{
			"history",
			"interests",
		},
		Tools: []types.Tool{
			{
				ID:          "history.query_history_by_date",
				Name:        "Query History By Date",
				Description: "List websites visited on a date with visit counts and summaries",
				Parameters:  []types.Parameter{dateParam},
				Returns:     "string",
			},
			{
				ID:          "history.query_interests_by_date",
				Name:        "Query Interests By Date",
				Description: "Rank top browsing topics for a date",
				Parameters:  []types.Parameter{dateParam},
				Returns:     "string",
			},
		},
	}
}

// Execute runs a history query
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	date, ok := params["date"].(string)
	if !ok || date == "" {
		return failure("date required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return failure(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}

	switch toolID {
	case "history.query_history_by_date":
		return p.queryHistory(ctx, date)
	case "history.query_interests_by_date":
		return p.queryInterests(ctx, date)
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) queryHistory(ctx context.Context, date string) (*types.Result, error) {
	visits, err := p.store.QueryHistoryByDate(ctx, date)
	if err != nil {
		return failure(fmt.Sprintf("history query failed: %v", err))
	}

	if len(visits) == 0 {
		return success(fmt.Sprintf("No browsing history found for %s.", date))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Browsing history for %s:\n", date)
	for _, visit := range visits {
		fmt.Fprintf(&b, "- %s (%d visits)", visit.URL, visit.Count)
		if visit.Summary != "" {
			fmt.Fprintf(&b, ": %s", visit.Summary)
		}
		b.WriteByte('\n')
	}
	return success(b.String())
}

func (p *Provider) queryInterests(ctx context.Context, date string) (*types.Result, error) {
	interests, err := p.store.QueryInterestsByDate(ctx, date)
	if err != nil {
		return failure(fmt.Sprintf("interest query failed: %v", err))
	}

	if len(interests) == 0 {
		return success(fmt.Sprintf("No interests found for %s.", date))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top interests for %s:\n", date)
	for i, interest := range interests {
		fmt.Fprintf(&b, "%d. %s\n", i+1, interest.Topic)
	}
	return success(b.String())
}

func success(output string) (*types.Result, error) {
	return &types.Result{Success: true, Output: output}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
