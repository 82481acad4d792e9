package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hushmod/hush/moderation/engine"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	FrameSendMessage    = "send_message"
	FrameMessage        = "message"
	FrameMessageBlocked = "message_blocked"
	FrameWarn           = "warn"
	FrameError          = "error"
)

var (
	gatewayWriteTimeout = 10 * time.Second
	gatewaySendBuffer   = 64
)

// Frame sent by a gateway client. Text is a pointer so an absent field can be told apart from an empty message.
type InboundFrame struct {
	Type   string  `json:"type"`
	UserID string  `json:"userId"`
	Text   *string `json:"text"`
}

// Frame sent to gateway clients.
type OutboundFrame struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	Text    string `json:"text,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type gatewayClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Set of connected gateway clients. Accepted messages are fanned out to all of them; clients that fall behind are disconnected rather than blocking the sender.
type Hub struct {
	logger  *slog.Logger
	mu      sync.Mutex
	clients map[*gatewayClient]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*gatewayClient]struct{}),
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) *gatewayClient {
	c := &gatewayClient{
		conn: conn,
		send: make(chan []byte, gatewaySendBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	gatewayConnections.Inc()
	go c.writeLoop()
	return c
}

// must be called with h.mu held
func (h *Hub) removeLocked(c *gatewayClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	gatewayConnections.Dec()
}

func (h *Hub) unregister(c *gatewayClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) sendTo(c *gatewayClient, frame OutboundFrame) {
	raw, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal gateway frame", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- raw:
	default:
		h.logger.Warn("gateway client too slow, disconnecting")
		gatewayDroppedClients.Inc()
		h.removeLocked(c)
	}
}

func (h *Hub) broadcast(frame OutboundFrame) {
	raw, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal gateway frame", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			h.logger.Warn("gateway client too slow, disconnecting")
			gatewayDroppedClients.Inc()
			h.removeLocked(c)
		}
	}
	gatewayBroadcasts.Inc()
}

// drains the send channel until the hub closes it
func (c *gatewayClient) writeLoop() {
	defer c.conn.Close()
	for raw := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (srv *Server) HandleGatewayWebsocket(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// upgrader has already written an error response
		srv.logger.Warn("websocket upgrade failed", "remote", c.RealIP(), "err", err)
		return nil
	}
	ctx := c.Request().Context()

	client := srv.hub.register(ws)
	defer srv.hub.unregister(client)
	srv.logger.Info("gateway client connected", "remote", c.RealIP())

	for {
		var in InboundFrame
		if err := ws.ReadJSON(&in); err != nil {
			srv.logger.Info("gateway client disconnected", "remote", c.RealIP(), "err", err)
			return nil
		}
		srv.handleGatewayFrame(ctx, client, in)
	}
}

func (srv *Server) handleGatewayFrame(ctx context.Context, client *gatewayClient, in InboundFrame) {
	if in.Type != FrameSendMessage {
		srv.hub.sendTo(client, OutboundFrame{Type: FrameError, Reason: "InvalidInput", Message: "unsupported frame type"})
		return
	}
	if in.UserID == "" || in.Text == nil {
		srv.hub.sendTo(client, OutboundFrame{Type: FrameError, Reason: "InvalidInput", Message: "userId and text are required"})
		return
	}

	ctx, span := tracer.Start(ctx, "GatewayMessage")
	defer span.End()

	d, err := srv.engine.Evaluate(ctx, in.UserID, *in.Text)
	if err != nil {
		span.RecordError(err)
		srv.logger.Error("moderation engine failure", "err", err, "user", in.UserID)
		srv.hub.sendTo(client, OutboundFrame{Type: FrameError, Reason: "InternalError", Message: "moderation engine failure"})
		return
	}
	messagesChecked.WithLabelValues("gateway", d.Label()).Inc()

	switch {
	case d.Accepted:
		srv.hub.broadcast(OutboundFrame{Type: FrameMessage, UserID: in.UserID, Text: *in.Text})
	case d.Reason == engine.ReasonMuted:
		srv.hub.sendTo(client, OutboundFrame{Type: FrameMessageBlocked, Reason: d.Reason})
	case d.Reason == engine.ReasonRateLimited:
		srv.hub.sendTo(client, OutboundFrame{Type: FrameWarn, Reason: d.Reason, Message: "You are sending messages too quickly and are temporarily muted."})
	default:
		srv.hub.sendTo(client, OutboundFrame{Type: FrameWarn, Reason: d.Reason, Message: "Your message violates rules and you are temporarily muted."})
	}
}
