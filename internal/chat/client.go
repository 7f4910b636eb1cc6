package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"slimechat/backend/internal/models"
	"slimechat/backend/pkg/errors"
	"slimechat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Outbound event buffer per connection; a client that falls this far
	// behind starts losing events
	sendBuffer = 256
)

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return allowed["*"] || allowed[origin]
		},
	}
}

// Client binds one websocket connection to the hub. It implements Conn; the
// hub pushes events into the buffered send channel and WritePump drains it.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Event
	log  *logger.Logger

	// ctx is cancelled when the connection goes away, aborting any
	// in-flight pipeline work for this client
	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the transport-assigned connection identifier
func (c *Client) ID() string {
	return c.id
}

// Deliver enqueues an event without blocking. False means the buffer is full
// and the event was dropped for this recipient.
func (c *Client) Deliver(event Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// ServeWS returns the gin handler that upgrades requests into hub connections
func ServeWS(hub *Hub, allowedOrigins []string, log *logger.Logger) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.LogError(err, "websocket upgrade failed")
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		id := uuid.New().String()
		client := &Client{
			id:     id,
			hub:    hub,
			conn:   conn,
			send:   make(chan Event, sendBuffer),
			log:    log.WithConnection(id),
			ctx:    ctx,
			cancel: cancel,
		}

		// Register before the pumps exist: readPump's teardown path calls
		// Disconnect, which must not be able to run ahead of Connect.
		if err := hub.Connect(ctx, client); err != nil {
			client.log.LogError(err, "connect handling failed")
			cancel()
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.Disconnect(c.id)
		c.hub.Forget(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.LogError(err, "websocket read failed")
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.log.Warn("discarding malformed frame", "error", err.Error())
			c.sendError("malformed event")
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event inboundEvent) {
	switch event.Event {
	case EventJoin:
		var payload JoinPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			c.sendError("malformed join payload")
			return
		}
		if payload.User.ID == "" {
			c.sendError("user id is required")
			return
		}
		user := models.ChatUser{ID: payload.User.ID, Name: payload.User.Name, Color: payload.User.Color}
		if err := c.hub.Join(c.ctx, c.id, user); err != nil {
			c.deliverAppError(err)
		}

	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			c.sendError("malformed message payload")
			return
		}
		if _, err := c.hub.SendMessage(c.ctx, c.id, payload); err != nil {
			c.deliverAppError(err)
		}

	default:
		c.log.Warn("unknown event", "event", event.Event)
		c.sendError("unknown event")
	}
}

// deliverAppError maps a pipeline error to the wire-level error signal.
// Cancellation means the client is going away; there is no one to tell.
func (c *Client) deliverAppError(err error) {
	appErr := errors.FromError(err)
	if appErr.Code == errors.CodeCancelled {
		return
	}
	c.sendError(appErr.Message)
}

func (c *Client) sendError(reason string) {
	c.Deliver(Event{Event: EventError, Data: ErrorPayload{Message: reason}})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload, err := json.Marshal(event)
			if err != nil {
				c.log.LogError(err, "failed to encode event", "event", event.Event)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
