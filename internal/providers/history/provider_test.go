package history_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dexbrowser/dex-bridge/internal/providers/history"
	"github.com/dexbrowser/dex-bridge/tests/helpers/testutil"
)

func TestQueryHistoryByDate(t *testing.T) {
	store := new(testutil.MockHistoryStore)
	store.On("QueryHistoryByDate", mock.Anything, "2026-05-24").Return([]history.Visit{
		{URL: "https://go.dev", Count: 3, Summary: "Go language homepage"},
		{URL: "https://pkg.go.dev", Count: 1},
	}, nil)
	p := history.NewProvider(store)

	result, err := p.Execute(context.Background(), "history.query_history_by_date",
		map[string]interface{}{"date": "2026-05-24"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "https://go.dev (3 visits): Go language homepage")
	assert.Contains(t, result.Output, "https://pkg.go.dev (1 visits)")
	store.AssertExpectations(t)
}

func TestQueryHistoryEmpty(t *testing.T) {
	store := new(testutil.MockHistoryStore)
	store.On("QueryHistoryByDate", mock.Anything, "2026-01-01").Return([]history.Visit{}, nil)
	p := history.NewProvider(store)

	result, err := p.Execute(context.Background(), "history.query_history_by_date",
		map[string]interface{}{"date": "2026-01-01"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "No browsing history found")
}

func TestQueryInterestsByDate(t *testing.T) {
	store := new(testutil.MockHistoryStore)
	store.On("QueryInterestsByDate", mock.Anything, "2026-05-24").Return([]history.Interest{
		{Topic: "distributed systems", Score: 0.9},
		{Topic: "cooking", Score: 0.4},
	}, nil)
	p := history.NewProvider(store)

	result, err := p.Execute(context.Background(), "history.query_interests_by_date",
		map[string]interface{}{"date": "2026-05-24"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "1. distributed systems")
	assert.Contains(t, result.Output, "2. cooking")
	store.AssertExpectations(t)
}

func TestDateValidation(t *testing.T) {
	tests := []struct {
		name string
		date interface{}
	}{
		{"missing", nil},
		{"empty", ""},
		{"wrong format", "May 24th, 2026"},
		{"not a string", 20260524},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(testutil.MockHistoryStore)
			p := history.NewProvider(store)

			params := map[string]interface{}{}
			if tt.date != nil {
				params["date"] = tt.date
			}

			result, err := p.Execute(context.Background(), "history.query_history_by_date", params)
			require.NoError(t, err)
			assert.False(t, result.Success)
			store.AssertNotCalled(t, "QueryHistoryByDate", mock.Anything, mock.Anything)
		})
	}
}

func TestStoreFailure(t *testing.T) {
	store := new(testutil.MockHistoryStore)
	store.On("QueryInterestsByDate", mock.Anything, "2026-05-24").
		Return(nil, errors.New("connection refused"))
	p := history.NewProvider(store)

	result, err := p.Execute(context.Background(), "history.query_interests_by_date",
		map[string]interface{}{"date": "2026-05-24"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "connection refused")
}

func TestUnknownTool(t *testing.T) {
	p := history.NewProvider(new(testutil.MockHistoryStore))

	result, err := p.Execute(context.Background(), "history.purge",
		map[string]interface{}{"date": "2026-05-24"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}
