package types

import "encoding/json"

// Command is an instruction frame sent to the extension. TabID is nil when
// the operation targets the connection's active tab. Immutable once built.
type Command struct {
	ID    string                 `json:"id"`
	Op    string                 `json:"op"`
	TabID *int                   `json:"tabId,omitempty"`
	Args  map[string]interface{} `json:"args"`
}

// Response is a reply frame from the extension carrying the command id.
type Response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorInfo      `json:"error,omitempty"`
}

// ErrorInfo describes an extension-reported failure.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is an unsolicited frame from the extension (no id).
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame is the superset of Response and Event used by the read loop to
// classify inbound traffic before routing it.
type Frame struct {
	ID     string          `json:"id,omitempty"`
	OK     *bool           `json:"ok,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorInfo      `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// IsResponse reports whether the frame correlates to a sent command.
func (f *Frame) IsResponse() bool {
	return f.ID != "" && f.OK != nil
}

// IsEvent reports whether the frame is an unsolicited notification.
func (f *Frame) IsEvent() bool {
	return f.ID == "" && f.Event != ""
}

// Response converts a classified frame into a Response.
func (f *Frame) Response() *Response {
	return &Response{
		ID:     f.ID,
		OK:     f.OK != nil && *f.OK,
		Result: f.Result,
		Error:  f.Error,
	}
}

// Event names the extension may send.
const (
	EventHello        = "hello"
	EventTabsUpdated  = "tabs-updated"
	EventTabActivated = "tab-activated"
)

// Tab is an extension-assigned tab snapshot. Ids are stable for the
// lifetime of the reporting connection only.
type Tab struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// HelloData is the payload of the registration handshake event.
type HelloData struct {
	Client  string `json:"client,omitempty"`
	Version string `json:"version,omitempty"`
	Tabs    []Tab  `json:"tabs"`
}

// TabsUpdatedData is the payload of a tabs-updated event.
type TabsUpdatedData struct {
	Tabs []Tab `json:"tabs"`
}

// TabActivatedData is the payload of a tab-activated event.
type TabActivatedData struct {
	TabID int `json:"tabId"`
}
