package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"snorq/internal/events"
	"snorq/internal/services"
	"snorq/internal/transport/httpdto"
	"snorq/pkg/logger"
)

// clientCommand is the inbound control frame. Clients join and leave
// organization rooms; everything they receive comes from the hub.
type clientCommand struct {
	Action         string `json:"action"`
	OrganizationID string `json:"organization_id"`
}

type ackFrame struct {
	Event          string `json:"event"`
	OrganizationID string `json:"organization_id"`
}

type Handler struct {
	auth       *services.AuthService
	hub        *Hub
	authorizer *ChannelAuthorizer
	log        *logger.Logger
}

func NewHandler(auth *services.AuthService, hub *Hub, authorizer *ChannelAuthorizer, log *logger.Logger) *Handler {
	return &Handler{auth: auth, hub: hub, authorizer: authorizer, log: log}
}

// Connect upgrades the request and runs the read loop until the peer goes
// away. Authentication happens before the upgrade; join authorization happens
// per command against current membership.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, claims.UserID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.handleCommand(c.Request.Context(), client, raw)
	}

	h.hub.Unregister(client)
}

func (h *Handler) handleCommand(ctx context.Context, client *Client, raw []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return
	}

	switch cmd.Action {
	case "join":
		channel := events.ChannelPrefixOrganization + cmd.OrganizationID
		ok, err := h.authorizer.CanSubscribe(ctx, client.UserID, channel)
		if err != nil {
			h.log.Errorf("websocket join authorization failed: %v", err)
			return
		}
		if !ok {
			h.sendAck(client, "join_denied", cmd.OrganizationID)
			return
		}
		h.hub.Subscribe(client, channel)
		h.sendAck(client, "joined", cmd.OrganizationID)
	case "leave":
		h.hub.Unsubscribe(client, events.ChannelPrefixOrganization+cmd.OrganizationID)
		h.sendAck(client, "left", cmd.OrganizationID)
	}
}

func (h *Handler) sendAck(client *Client, event, organizationID string) {
	payload, err := json.Marshal(ackFrame{Event: event, OrganizationID: organizationID})
	if err != nil {
		return
	}
	client.SendMessage(payload)
}
