package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slimechat/backend/internal/models"
	"slimechat/backend/internal/store"
	"slimechat/backend/pkg/errors"
	"slimechat/backend/pkg/logger"
	"slimechat/backend/pkg/metrics"
)

// System broadcast identity
const (
	SystemUserID = "system"
	SystemName   = "🖥️ System"
)

// connState is the lifecycle state of one connection
type connState int

const (
	// StateConnected: transport established, no session yet
	StateConnected connState = iota
	// StateJoined: session registered, may send messages
	StateJoined
	// StateDisconnected: terminal, no further events accepted
	StateDisconnected
)

// Conn is one live transport connection the hub delivers events to. Deliver
// must not block; it reports false when the recipient cannot keep up, and the
// hub treats that as a dropped delivery rather than stalling the fan-out.
type Conn interface {
	ID() string
	Deliver(Event) bool
}

// Hub owns the connection lifecycle state machine and composes the sanitizer,
// rate limiter, presence registry and storage gateway into the message
// pipeline. It is the only component that decides what reaches clients.
type Hub struct {
	sanitizer *Sanitizer
	limiter   *SlidingWindowLimiter
	registry  *PresenceRegistry
	messages  store.MessageRepository
	presence  store.PresenceRepository
	log       *logger.Logger

	historyPageSize int

	mu     sync.RWMutex
	conns  map[string]Conn
	states map[string]connState

	// dispatchMu serializes fan-out so broadcasts from concurrent calls
	// reach every recipient buffer in one global order. Deliver is
	// non-blocking, so holding it across a fan-out cannot stall on a slow
	// recipient.
	dispatchMu sync.Mutex
}

// HubConfig carries the tunables the hub needs
type HubConfig struct {
	MaxNameLength      int
	MaxMessageLength   int
	RateLimitPerMinute int
	HistoryPageSize    int
}

func NewHub(cfg HubConfig, messages store.MessageRepository, presence store.PresenceRepository, log *logger.Logger) *Hub {
	return &Hub{
		sanitizer:       NewSanitizer(cfg.MaxNameLength, cfg.MaxMessageLength),
		limiter:         NewSlidingWindowLimiter(cfg.RateLimitPerMinute),
		registry:        NewPresenceRegistry(),
		messages:        messages,
		presence:        presence,
		log:             log,
		historyPageSize: cfg.HistoryPageSize,
		conns:           make(map[string]Conn),
		states:          make(map[string]connState),
	}
}

// Registry exposes the presence registry for read-only consumers
func (h *Hub) Registry() *PresenceRegistry {
	return h.registry
}

// Connect registers a transport connection and seeds it with recent history.
// No session exists yet; nothing is broadcast to other connections.
func (h *Hub) Connect(ctx context.Context, conn Conn) error {
	// A transport that is already gone must not enter the fan-out set;
	// its Disconnect has nothing left to clean up after.
	if err := ctx.Err(); err != nil {
		return errors.NewCancelledError(err)
	}

	h.mu.Lock()
	if _, exists := h.conns[conn.ID()]; exists {
		h.mu.Unlock()
		h.log.Error("duplicate connection id at connect", "connection_id", conn.ID())
		return errors.NewInvariantViolation("connection already registered")
	}
	h.conns[conn.ID()] = conn
	h.states[conn.ID()] = StateConnected
	h.mu.Unlock()

	metrics.ConnectionsActive.Inc()

	history, err := h.messages.ListRecent(ctx, h.historyPageSize)
	if err != nil {
		h.evict(conn.ID())
		if errors.IsCancellation(err) {
			return errors.NewCancelledError(err)
		}
		h.log.LogError(err, "failed to load message history", "connection_id", conn.ID())
		return errors.NewStorageError(err)
	}

	conn.Deliver(Event{Event: EventMessageHistory, Data: history})
	h.log.Info("connection established", "connection_id", conn.ID(), "history_sent", len(history))
	return nil
}

// Join registers a session for a connected, unidentified connection. On
// success the other connections learn about the new user and the caller gets
// the full presence snapshot.
func (h *Hub) Join(ctx context.Context, connectionID string, user models.ChatUser) error {
	h.mu.Lock()
	state, tracked := h.states[connectionID]
	if !tracked || state != StateConnected {
		h.mu.Unlock()
		if state == StateJoined {
			return errors.NewValidationError("already joined")
		}
		return errors.NewValidationError("connection is not in a joinable state")
	}
	h.states[connectionID] = StateJoined
	h.mu.Unlock()

	user.Name = h.sanitizer.Name(user.Name)
	user.Color = h.sanitizer.Color(user.Color)

	session, err := h.registry.Join(connectionID, user)
	if err != nil {
		h.mu.Lock()
		h.states[connectionID] = StateConnected
		h.mu.Unlock()
		h.log.Error("presence registration failed", "connection_id", connectionID, "error", err.Error())
		return errors.NewInvariantViolation("duplicate connection identifier")
	}

	// Mirror the session into storage; a failure here is logged but does
	// not undo the join.
	if err := h.presence.Upsert(ctx, &models.Presence{
		ConnectionID: session.ConnectionID,
		UserID:       user.ID,
		Name:         user.Name,
		Color:        user.Color,
		JoinedAt:     session.JoinedAt,
	}); err != nil {
		h.log.LogError(err, "failed to persist presence", "connection_id", connectionID)
	}

	metrics.UsersJoined.Inc()

	h.broadcast(Event{Event: EventUserJoined, Data: user}, connectionID)
	h.deliverTo(connectionID, Event{Event: EventActiveUsers, Data: h.registry.ActiveUsers()})

	h.log.Info("user joined", "connection_id", connectionID, "user_id", user.ID, "name", user.Name)
	return nil
}

// SendMessage runs the ingestion pipeline for one submitted message:
// admission, sanitization, durable append, fan-out. The stored message is
// returned so the transport can acknowledge it.
func (h *Hub) SendMessage(ctx context.Context, connectionID string, payload SendMessagePayload) (*models.Message, error) {
	h.mu.RLock()
	state := h.states[connectionID]
	h.mu.RUnlock()
	if state != StateJoined {
		return nil, errors.NewValidationError("join required before sending messages")
	}

	now := time.Now()
	if !h.limiter.Admit(connectionID, now) {
		metrics.MessagesRateLimited.Inc()
		h.log.Warn("message rejected by rate limiter", "connection_id", connectionID)
		return nil, errors.NewRateLimitedError()
	}

	name := h.sanitizer.Name(payload.Name)
	sendTime := payload.UnixTime
	if sendTime <= 0 {
		sendTime = now.UnixMilli()
	}

	message := &models.Message{
		ID:       fmt.Sprintf("%s.%d", name, sendTime),
		UserID:   payload.UserID,
		Name:     name,
		Color:    h.sanitizer.Color(payload.Color),
		Content:  h.sanitizer.Content(payload.Content),
		UnixTime: sendTime,
		Type:     models.TypeUser,
	}

	// Cancellation observed before the append persists nothing
	if err := ctx.Err(); err != nil {
		h.log.Warn("send cancelled before append", "connection_id", connectionID)
		return nil, errors.NewCancelledError(err)
	}

	if err := h.messages.Append(ctx, message); err != nil {
		if errors.IsCancellation(err) {
			h.log.Warn("send cancelled during append", "connection_id", connectionID, "message_id", message.ID)
			return nil, errors.NewCancelledError(err)
		}
		h.log.LogError(err, "failed to append message", "connection_id", connectionID, "message_id", message.ID)
		return nil, errors.NewStorageError(err)
	}

	metrics.MessagesAccepted.Inc()

	// The message is durable from here on. A cancellation observed now is
	// at most a partial delivery, never a silent drop.
	if err := ctx.Err(); err != nil {
		h.log.Warn("delivery may be partial, sender cancelled after append",
			"connection_id", connectionID, "message_id", message.ID)
	}

	h.broadcast(Event{Event: EventMessageReceived, Data: message}, "")

	return message, nil
}

// BroadcastSystem persists and fans out a system message on behalf of the
// authenticated admin surface.
func (h *Hub) BroadcastSystem(ctx context.Context, content string) (*models.Message, error) {
	now := time.Now().UnixMilli()
	message := &models.Message{
		ID:       fmt.Sprintf("%s.%d", SystemName, now),
		UserID:   SystemUserID,
		Name:     SystemName,
		Color:    DefaultColor,
		Content:  h.sanitizer.Content(content),
		UnixTime: now,
		Type:     models.TypeSystem,
	}

	if err := h.messages.Append(ctx, message); err != nil {
		if errors.IsCancellation(err) {
			h.log.Warn("system message cancelled during append", "message_id", message.ID)
			return nil, errors.NewCancelledError(err)
		}
		h.log.LogError(err, "failed to append system message", "message_id", message.ID)
		return nil, errors.NewStorageError(err)
	}

	h.broadcast(Event{Event: EventServerMessage, Data: message}, "")
	h.log.Info("system message broadcast", "message_id", message.ID)
	return message, nil
}

// BroadcastUpdated tells every client that a message's content changed
func (h *Hub) BroadcastUpdated(message *models.Message) {
	h.broadcast(Event{Event: EventMessageUpdated, Data: message}, "")
}

// BroadcastRemoved tells every client that a message was deleted
func (h *Hub) BroadcastRemoved(message *models.Message) {
	h.broadcast(Event{Event: EventMessageRemoved, Data: message}, "")
}

// Disconnect tears down a connection in any non-terminal state. When a
// session existed, the remaining connections get a userLeft event and a fresh
// presence snapshot; a connection that never joined leaves silently.
func (h *Hub) Disconnect(connectionID string) {
	h.mu.Lock()
	state, tracked := h.states[connectionID]
	if !tracked || state == StateDisconnected {
		h.mu.Unlock()
		h.log.Info("disconnect for unknown connection", "connection_id", connectionID)
		return
	}
	delete(h.conns, connectionID)
	h.states[connectionID] = StateDisconnected
	h.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	h.limiter.Forget(connectionID)

	session, existed := h.registry.Leave(connectionID)
	if !existed {
		h.log.Info("connection closed before joining", "connection_id", connectionID)
		return
	}

	metrics.UsersJoined.Dec()

	if err := h.presence.Remove(context.Background(), connectionID); err != nil {
		h.log.LogError(err, "failed to remove persisted presence", "connection_id", connectionID)
	}

	h.broadcast(Event{Event: EventUserLeft, Data: session.User}, "")
	h.broadcast(Event{Event: EventActiveUsers, Data: h.registry.ActiveUsers()}, "")

	h.log.Info("user left", "connection_id", connectionID, "user_id", session.User.ID)
}

// evict undoes a registration that never completed
func (h *Hub) evict(connectionID string) {
	h.mu.Lock()
	delete(h.conns, connectionID)
	delete(h.states, connectionID)
	h.mu.Unlock()
	metrics.ConnectionsActive.Dec()
}

// Forget releases terminal state for a connection identifier once the
// transport is done with it.
func (h *Hub) Forget(connectionID string) {
	h.mu.Lock()
	delete(h.states, connectionID)
	h.mu.Unlock()
}

// broadcast fans an event out to every live connection except the one named
// by exclude ("" excludes nobody). Recipients that cannot keep up lose the
// event rather than delaying everyone else.
func (h *Hub) broadcast(event Event, exclude string) {
	h.mu.RLock()
	recipients := make([]Conn, 0, len(h.conns))
	for id, conn := range h.conns {
		if id == exclude {
			continue
		}
		recipients = append(recipients, conn)
	}
	h.mu.RUnlock()

	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()
	for _, conn := range recipients {
		if !conn.Deliver(event) {
			metrics.BroadcastsDropped.Inc()
			h.log.Warn("delivery dropped, recipient buffer full",
				"connection_id", conn.ID(), "event", event.Event)
		}
	}
}

// deliverTo sends an event to a single connection, if still present
func (h *Hub) deliverTo(connectionID string, event Event) {
	h.mu.RLock()
	conn, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.dispatchMu.Lock()
	defer h.dispatchMu.Unlock()
	if !conn.Deliver(event) {
		metrics.BroadcastsDropped.Inc()
	}
}
