package browser

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexbrowser/dex-bridge/internal/bridge"
)

type fakeBridge struct {
	lastOp    string
	lastTabID *int
	lastArgs  map[string]interface{}
	result    json.RawMessage
	err       error
}

func (f *fakeBridge) Call(ctx context.Context, op string, tabID *int, args map[string]interface{}, timeout time.Duration) (json.RawMessage, error) {
	f.lastOp = op
	f.lastTabID = tabID
	f.lastArgs = args
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestDefinitionCoversAllOps(t *testing.T) {
	p := NewProvider(&fakeBridge{})
	def := p.Definition()

	assert.Equal(t, "browser", def.ID)
	require.Len(t, def.Tools, len(ops))
	for _, tool := range def.Tools {
		_, ok := ops[tool.ID]
		assert.True(t, ok, "tool %s has no op mapping", tool.ID)
	}
}

func TestNavigateForwardsURL(t *testing.T) {
	fake := &fakeBridge{result: json.RawMessage(`"navigated"`)}
	p := NewProvider(fake)

	result, err := p.Execute(context.Background(), "browser.navigate",
		map[string]interface{}{"url": "https://go.dev"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "navigated", result.Output)
	assert.Equal(t, "navigate", fake.lastOp)
	assert.Nil(t, fake.lastTabID)
	assert.Equal(t, "https://go.dev", fake.lastArgs["url"])
}

func TestTabIDExtractedFromParams(t *testing.T) {
	fake := &fakeBridge{result: json.RawMessage(`{}`)}
	p := NewProvider(fake)

	// JSON numbers decode as float64.
	result, err := p.Execute(context.Background(), "browser.click_element",
		map[string]interface{}{"element_id": "btn-7", "tab_id": float64(42)})
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, fake.lastTabID)
	assert.Equal(t, 42, *fake.lastTabID)
	assert.Equal(t, "btn-7", fake.lastArgs["element_id"])
	assert.NotContains(t, fake.lastArgs, "tab_id")
}

func TestMissingRequiredParam(t *testing.T) {
	tests := []struct {
		name   string
		toolID string
		params map[string]interface{}
	}{
		{"navigate without url", "browser.navigate", nil},
		{"search without query", "browser.search_google", map[string]interface{}{}},
		{"input_text without text", "browser.input_text", map[string]interface{}{"element_id": "field"}},
		{"click with empty element", "browser.click_element", map[string]interface{}{"element_id": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeBridge{}
			p := NewProvider(fake)

			result, err := p.Execute(context.Background(), tt.toolID, tt.params)
			require.NoError(t, err)
			assert.False(t, result.Success)
			require.NotNil(t, result.Error)
			assert.Empty(t, fake.lastOp, "no command should be sent")
		})
	}
}

func TestNonNumericTabID(t *testing.T) {
	p := NewProvider(&fakeBridge{})

	result, err := p.Execute(context.Background(), "browser.grab_dom",
		map[string]interface{}{"tab_id": "seven"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestUnknownTool(t *testing.T) {
	p := NewProvider(&fakeBridge{})

	result, err := p.Execute(context.Background(), "browser.teleport", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestBridgeErrorBecomesFailure(t *testing.T) {
	fake := &fakeBridge{err: bridge.ErrUnknownTab}
	p := NewProvider(fake)

	result, err := p.Execute(context.Background(), "browser.get_tabs", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "unknown tab")
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
		want string
	}{
		{"string unquoted", json.RawMessage(`"page loaded"`), "page loaded"},
		{"object verbatim", json.RawMessage(`{"tabs":[1,2]}`), `{"tabs":[1,2]}`},
		{"empty payload", nil, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderResult(tt.raw))
		})
	}
}

func TestRemoteErrorMessageSurfaces(t *testing.T) {
	remote := &bridge.RemoteError{Code: "nav_failed", Message: "net::ERR_NAME_NOT_RESOLVED"}
	fake := &fakeBridge{err: remote}
	p := NewProvider(fake)

	result, err := p.Execute(context.Background(), "browser.navigate",
		map[string]interface{}{"url": "https://bad.invalid"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "nav_failed")
}
