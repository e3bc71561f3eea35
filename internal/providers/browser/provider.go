package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// Bridge is the subset of the bridge façade the provider needs. A zero
// timeout selects the bridge's configured default.
type Bridge interface {
	Call(ctx context.Context, op string, tabID *int, args map[string]interface{}, timeout time.Duration) (json.RawMessage, error)
}

// Provider exposes browser automation tools backed by the extension bridge
type Provider struct {
	bridge Bridge
}

// NewProvider creates a browser provider
func NewProvider(bridge Bridge) *Provider {
	return &Provider{bridge: bridge}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	tabParam := types.Parameter{Name: "tab_id", Type: "number", Description: "Target tab ID; active tab when omitted", Required: false}

	return types.Service{
		ID:          "browser",
		Name:        "Browser Control",
		Description: "Tab management, navigation, and page interaction through the extension",
		Category:    types.CategoryBrowser,
		Capabilities: []string{
			"tabs",
			"navigation",
			"interaction",
			"capture",
		},
		Tools: []types.Tool{
			{
				ID:          "browser.get_tabs",
				Name:        "Get Tabs",
				Description: "List all open browser tabs",
				Returns:     "array",
			},
			{
				ID:          "browser.screenshot",
				Name:        "Screenshot",
				Description: "Take a screenshot of the active tab",
				Returns:     "string",
			},
			{
				ID:          "browser.navigate",
				Name:        "Navigate",
				Description: "Navigate to a URL in the active or a specific tab",
				Parameters: []types.Parameter{
					{Name: "url", Type: "string", Description: "Destination URL", Required: true},
					tabParam,
				},
				Returns: "object",
			},
			{
				ID:          "browser.select_tab",
				Name:        "Select Tab",
				Description: "Switch to a browser tab by ID",
				Parameters: []types.Parameter{
					{Name: "tab_id", Type: "number", Description: "Tab to activate", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "browser.new_tab",
				Name:        "New Tab",
				Description: "Open a new tab, optionally at a URL",
				Parameters: []types.Parameter{
					{Name: "url", Type: "string", Description: "URL to open", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "browser.close_tab",
				Name:        "Close Tab",
				Description: "Close a tab by ID, or the active tab when omitted",
				Parameters:  []types.Parameter{tabParam},
				Returns:     "object",
			},
			{
				ID:          "browser.search_google",
				Name:        "Search Google",
				Description: "Run a Google search in the active or a specific tab",
				Parameters: []types.Parameter{
					{Name: "query", Type: "string", Description: "Search query", Required: true},
					tabParam,
				},
				Returns: "object",
			},
			{
				ID:          "browser.click_element",
				Name:        "Click Element",
				Description: "Click a DOM element by its ID",
				Parameters: []types.Parameter{
					{Name: "element_id", Type: "string", Description: "Element identifier from grab_dom", Required: true},
					tabParam,
				},
				Returns: "object",
			},
			{
				ID:          "browser.input_text",
				Name:        "Input Text",
				Description: "Type text into a DOM element by its ID",
				Parameters: []types.Parameter{
					{Name: "element_id", Type: "string", Description: "Element identifier from grab_dom", Required: true},
					{Name: "text", Type: "string", Description: "Text to enter", Required: true},
					tabParam,
				},
				Returns: "object",
			},
			{
				ID:          "browser.send_keys",
				Name:        "Send Keys",
				Description: "Send keyboard shortcuts or key combinations to the page",
				Parameters: []types.Parameter{
					{Name: "keys", Type: "string", Description: "Key combination, e.g. ctrl+a", Required: true},
					tabParam,
				},
				Returns: "object",
			},
			{
				ID:          "browser.grab_dom",
				Name:        "Grab DOM",
				Description: "Get the page's DOM structure with element identifiers",
				Parameters:  []types.Parameter{tabParam},
				Returns:     "string",
			},
			{
				ID:          "browser.capture_with_highlights",
				Name:        "Capture With Highlights",
				Description: "Take a screenshot with interactive elements highlighted",
				Parameters:  []types.Parameter{tabParam},
				Returns:     "string",
			},
		},
	}
}

// ops maps tool IDs to wire operation names and their required params.
var ops = map[string]struct {
	op       string
	required []string
}{
	"browser.get_tabs":                {op: "get_tabs"},
	"browser.screenshot":              {op: "screenshot"},
	"browser.navigate":                {op: "navigate", required: []string{"url"}},
	"browser.select_tab":              {op: "select_tab", required: []string{"tab_id"}},
	"browser.new_tab":                 {op: "new_tab"},
	"browser.close_tab":               {op: "close_tab"},
	"browser.search_google":           {op: "search_google", required: []string{"query"}},
	"browser.click_element":           {op: "click_element", required: []string{"element_id"}},
	"browser.input_text":              {op: "input_text", required: []string{"element_id", "text"}},
	"browser.send_keys":               {op: "send_keys", required: []string{"keys"}},
	"browser.grab_dom":                {op: "grab_dom"},
	"browser.capture_with_highlights": {op: "capture_with_highlights"},
}

// Execute runs a browser operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	spec, ok := ops[toolID]
	if !ok {
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}

	for _, name := range spec.required {
		if !hasParam(params, name) {
			return failure(fmt.Sprintf("%s required", name))
		}
	}

	tabID, args, err := splitTabID(params)
	if err != nil {
		return failure(err.Error())
	}

	raw, err := p.bridge.Call(ctx, spec.op, tabID, args, 0)
	if err != nil {
		return failure(err.Error())
	}

	return success(renderResult(raw))
}

// splitTabID pulls tab_id out of the params for addressing; the rest travel
// to the extension as command args.
func splitTabID(params map[string]interface{}) (*int, map[string]interface{}, error) {
	args := make(map[string]interface{}, len(params))
	var tabID *int

	for key, value := range params {
		if key != "tab_id" {
			args[key] = value
			continue
		}
		switch v := value.(type) {
		case float64:
			id := int(v)
			tabID = &id
		case int:
			id := v
			tabID = &id
		case nil:
		default:
			return nil, nil, fmt.Errorf("tab_id must be a number")
		}
	}

	return tabID, args, nil
}

// renderResult turns the extension's raw JSON payload into tool output.
// String payloads are unquoted; anything else is passed through verbatim.
func renderResult(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "ok"
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func hasParam(params map[string]interface{}, name string) bool {
	value, ok := params[name]
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString && s == "" {
		return false
	}
	return true
}

func success(output string) (*types.Result, error) {
	return &types.Result{Success: true, Output: output}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
