package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

// Bridge is the subset of the bridge façade the provider needs.
type Bridge interface {
	Call(ctx context.Context, op string, tabID *int, args map[string]interface{}, timeout time.Duration) (json.RawMessage, error)
}

// Provider injects assistant messages into the extension's chat panel
type Provider struct {
	bridge Bridge
}

// NewProvider creates a chat provider
func NewProvider(bridge Bridge) *Provider {
	return &Provider{bridge: bridge}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "chat",
		Name:        "Chat Panel",
		Description: "Message injection into the extension's chat interface",
		Category:    types.CategoryChat,
		Capabilities: []string{
			"messaging",
		},
		Tools: []types.Tool{
			{
				ID:          "chat.add_assistant_message",
				Name:        "Add Assistant Message",
				Description: "Add a message from the assistant to the chat panel",
				Parameters: []types.Parameter{
					{Name: "message", Type: "string", Description: "Message text", Required: true},
				},
				Returns: "object",
			},
		},
	}
}

// Execute runs a chat operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "chat.add_assistant_message":
		return p.addAssistantMessage(ctx, params)
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) addAssistantMessage(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	message, ok := params["message"].(string)
	if !ok || message == "" {
		return failure("message required")
	}

	_, err := p.bridge.Call(ctx, "add_assistant_message", nil,
		map[string]interface{}{"message": message}, 0)
	if err != nil {
		return failure(err.Error())
	}

	return &types.Result{Success: true, Output: "message added"}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
