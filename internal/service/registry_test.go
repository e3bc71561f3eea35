package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/dexbrowser/dex-bridge/internal/shared/types"
	"github.com/dexbrowser/dex-bridge/tests/helpers/testutil"
)

func TestRegister(t *testing.T) {
	r := NewRegistry()
	p := testutil.NewMockServiceProvider(t, "test")

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Get("test"); !ok {
		t.Error("Service should be registered")
	}
}

func TestRegisterEmptyID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(testutil.NewMockServiceProvider(t, "")); err == nil {
		t.Error("Register should reject an empty service ID")
	}
}

func TestList(t *testing.T) {
	r := NewRegistry()
	r.Register(testutil.NewMockServiceProvider(t, "test1"))
	r.Register(testutil.NewMockServiceProvider(t, "test2"))

	services := r.List(nil)
	if len(services) != 2 {
		t.Errorf("Expected 2 services, got %d", len(services))
	}

	cat := types.CategoryBrowser
	filtered := r.List(&cat)
	if len(filtered) != 2 {
		t.Errorf("Expected 2 browser services, got %d", len(filtered))
	}

	other := types.CategoryHistory
	if got := r.List(&other); len(got) != 0 {
		t.Errorf("Expected no history services, got %d", len(got))
	}
}

func TestExecute(t *testing.T) {
	r := NewRegistry()
	p := testutil.NewMockServiceProvider(t, "test")
	r.Register(p)

	ctx := context.Background()
	result, err := r.Execute(ctx, "test.test", map[string]interface{}{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected successful execution")
	}
	p.AssertCalled(t, "Execute", ctx, "test.test", map[string]interface{}{})
}

func TestExecuteUnknownService(t *testing.T) {
	r := NewRegistry()

	result, err := r.Execute(context.Background(), "missing.tool", nil)
	if err == nil {
		t.Fatal("Execute should fail for an unknown service")
	}
	if result.Success {
		t.Error("Result should not be successful")
	}
}

func TestExecuteMalformedToolID(t *testing.T) {
	r := NewRegistry()
	p := testutil.NewMockServiceProvider(t, "test")
	r.Register(p)

	if _, err := r.Execute(context.Background(), "noseparator", nil); err == nil {
		t.Fatal("Execute should reject tool IDs without a service prefix")
	}
	p.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	r.Register(testutil.NewMockServiceProvider(t, "test1"))
	r.Register(testutil.NewMockServiceProvider(t, "test2"))

	stats := r.Stats()
	totalServices := stats["total_services"].(int)
	if totalServices != 2 {
		t.Errorf("Expected 2 total services, got %d", totalServices)
	}

	totalTools := stats["total_tools"].(int)
	if totalTools != 2 {
		t.Errorf("Expected 2 total tools, got %d", totalTools)
	}
}
