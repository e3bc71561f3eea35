// Package testutil provides testing utilities and helpers for bridge tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/dexbrowser/dex-bridge/internal/providers/history"
	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// MockConn is a mock extension connection for registry tests.
type MockConn struct {
	mock.Mock
}

// WriteCommand mocks the WriteCommand method.
func (m *MockConn) WriteCommand(cmd *types.Command) error {
	args := m.Called(cmd)
	return args.Error(0)
}

// Close mocks the Close method.
func (m *MockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockServiceProvider is a mock implementation of service.Provider.
type MockServiceProvider struct {
	mock.Mock
}

// Definition mocks the Definition method.
func (m *MockServiceProvider) Definition() types.Service {
	args := m.Called()
	return args.Get(0).(types.Service)
}

// Execute mocks the Execute method.
func (m *MockServiceProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	args := m.Called(ctx, toolID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

// MockHistoryStore is a mock implementation of history.Store.
type MockHistoryStore struct {
	mock.Mock
}

// QueryHistoryByDate mocks the QueryHistoryByDate method.
func (m *MockHistoryStore) QueryHistoryByDate(ctx context.Context, date string) ([]history.Visit, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]history.Visit), args.Error(1)
}

// QueryInterestsByDate mocks the QueryInterestsByDate method.
func (m *MockHistoryStore) QueryInterestsByDate(ctx context.Context, date string) ([]history.Interest, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]history.Interest), args.Error(1)
}

// NewMockConn creates a mock connection whose writes succeed by default.
func NewMockConn(t *testing.T) *MockConn {
	t.Helper()
	m := new(MockConn)
	m.On("WriteCommand", mock.Anything).Return(nil).Maybe()
	m.On("Close").Return(nil).Maybe()
	return m
}

// NewMockServiceProvider creates a mock provider with default behaviors.
func NewMockServiceProvider(t *testing.T, serviceID string) *MockServiceProvider {
	t.Helper()
	m := new(MockServiceProvider)

	m.On("Definition").Return(types.Service{
		ID:       serviceID,
		Name:     "Mock Service",
		Category: types.CategoryBrowser,
		Tools: []types.Tool{
			{ID: serviceID + ".test", Name: "Test Tool", Returns: "string"},
		},
	}).Maybe()

	m.On("Execute", mock.Anything, mock.Anything, mock.Anything).
		Return(&types.Result{Success: true, Output: "ok"}, nil).
		Maybe()

	return m
}
