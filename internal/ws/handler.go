package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dexbrowser/dex-bridge/internal/bridge"
	"github.com/dexbrowser/dex-bridge/internal/infrastructure/config"
	"github.com/dexbrowser/dex-bridge/internal/infrastructure/monitoring"
	"github.com/dexbrowser/dex-bridge/internal/logging"
	"github.com/dexbrowser/dex-bridge/internal/shared/id"
	"github.com/dexbrowser/dex-bridge/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The extension connects from a browser origin; origin checks are
		// left to the deployment (loopback binding by default).
		return true
	},
}

// Handler accepts extension connections, performs the registration
// handshake, and pumps frames between the socket and the bridge core.
type Handler struct {
	bridge   *bridge.Bridge
	registry *bridge.Registry
	cfg      config.BridgeConfig
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandler creates a new transport listener handler.
func NewHandler(b *bridge.Bridge, registry *bridge.Registry, cfg config.BridgeConfig, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		bridge:   b,
		registry: registry,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.Component("ws"),
	}
}

// extensionConn wraps a websocket connection with a serialized write path
// so concurrent callers cannot interleave frames.
type extensionConn struct {
	mu        sync.Mutex
	ws        *websocket.Conn
	writeWait time.Duration
}

func (e *extensionConn) WriteCommand(cmd *types.Command) error {
	data, err := sonic.Marshal(cmd)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ws.SetWriteDeadline(time.Now().Add(e.writeWait))
	return e.ws.WriteMessage(websocket.TextMessage, data)
}

func (e *extensionConn) ping() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(e.writeWait))
}

func (e *extensionConn) Close() error {
	return e.ws.Close()
}

// HandleConnection upgrades the request, runs the hello handshake, and
// enters the per-connection read loop.
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ws.SetReadLimit(h.cfg.MaxFrameBytes)

	hello, err := h.handshake(ws)
	if err != nil {
		h.logger.Warn("handshake failed, closing connection",
			zap.String("remote", ws.RemoteAddr().String()),
			zap.Error(err))
		// A socket that goes quiet or drops mid-handshake is not a
		// protocol violation; only a bad first frame counts as one.
		if errors.Is(err, bridge.ErrProtocolViolation) {
			h.metrics.RecordProtocolViolation()
		}
		ws.Close()
		return
	}

	conn := &extensionConn{ws: ws, writeWait: h.cfg.WriteTimeout}
	connID := h.registry.Register(conn, hello.Tabs)
	h.metrics.IncConnections()

	h.logger.Info("extension connected",
		zap.String("connection_id", connID.String()),
		zap.String("client", hello.Client),
		zap.String("version", hello.Version),
		zap.String("remote", ws.RemoteAddr().String()))

	// Keepalive: ping on an interval, expect pongs within the read
	// deadline window.
	ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		h.registry.Touch(connID)
		return nil
	})

	stopPing := make(chan struct{})
	go h.pingLoop(conn, stopPing)

	defer func() {
		close(stopPing)
		h.registry.Unregister(connID)
		h.metrics.DecConnections()
		h.logger.Info("extension disconnected",
			zap.String("connection_id", connID.String()))
	}()

	h.readLoop(connID, ws)
}

// handshake reads the first frame, which must be a hello event carrying the
// initial tab snapshot.
func (h *Handler) handshake(ws *websocket.Conn) (*types.HelloData, error) {
	ws.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))

	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, err
	}

	var frame types.Frame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		return nil, bridge.ErrProtocolViolation
	}
	if !frame.IsEvent() || frame.Event != types.EventHello {
		return nil, bridge.ErrProtocolViolation
	}

	var hello types.HelloData
	if err := sonic.Unmarshal(frame.Data, &hello); err != nil {
		return nil, bridge.ErrProtocolViolation
	}
	return &hello, nil
}

// readLoop pumps inbound frames until the socket dies or the extension
// violates the protocol. Responses go to the correlation table; events
// update the registry's cached tab state.
func (h *Handler) readLoop(connID id.ConnectionID, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("read error",
					zap.String("connection_id", connID.String()),
					zap.Error(err))
			}
			return
		}

		h.registry.Touch(connID)

		var frame types.Frame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			h.protocolViolation(connID, ws, "unparseable frame", err)
			return
		}

		switch {
		case frame.IsResponse():
			h.bridge.HandleResponse(frame.Response())

		case frame.IsEvent():
			h.handleEvent(connID, &frame)

		default:
			h.protocolViolation(connID, ws, "frame is neither response nor event", nil)
			return
		}
	}
}

// handleEvent applies an unsolicited extension event to the registry.
func (h *Handler) handleEvent(connID id.ConnectionID, frame *types.Frame) {
	h.metrics.RecordEvent(frame.Event)

	switch frame.Event {
	case types.EventTabsUpdated:
		var data types.TabsUpdatedData
		if err := sonic.Unmarshal(frame.Data, &data); err != nil {
			h.logger.Warn("malformed tabs-updated payload",
				zap.String("connection_id", connID.String()),
				zap.Error(err))
			return
		}
		h.registry.UpdateTabs(connID, data.Tabs)

	case types.EventTabActivated:
		var data types.TabActivatedData
		if err := sonic.Unmarshal(frame.Data, &data); err != nil {
			h.logger.Warn("malformed tab-activated payload",
				zap.String("connection_id", connID.String()),
				zap.Error(err))
			return
		}
		h.registry.SetActiveTab(connID, data.TabID)

	default:
		h.logger.Debug("ignoring unknown event",
			zap.String("connection_id", connID.String()),
			zap.String("event", frame.Event))
	}
}

// protocolViolation logs, counts, and closes the offending connection.
// Only that connection terminates, never the listener.
func (h *Handler) protocolViolation(connID id.ConnectionID, ws *websocket.Conn, reason string, err error) {
	h.metrics.RecordProtocolViolation()
	h.logger.Warn("protocol violation, closing connection",
		zap.String("connection_id", connID.String()),
		zap.String("reason", reason),
		zap.Error(err))
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
	ws.Close()
}

// pingLoop sends keepalive pings until the connection is torn down.
func (h *Handler) pingLoop(conn *extensionConn, stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
