package chat

import (
	"encoding/json"
)

// Client -> server event names
const (
	EventJoin        = "join"
	EventSendMessage = "sendMessage"
)

// Server -> client event names
const (
	EventMessageHistory  = "messageHistory"
	EventUserJoined      = "userJoined"
	EventUserLeft        = "userLeft"
	EventActiveUsers     = "activeUsers"
	EventMessageReceived = "messageReceived"
	EventServerMessage   = "serverMessage"
	EventMessageUpdated  = "messageUpdated"
	EventMessageRemoved  = "messageRemoved"
	EventError           = "error"
)

// Event is the wire envelope for both directions of the websocket channel
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inboundEvent defers payload decoding until the event name is known
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinPayload carries the identity announced by a connecting client
type JoinPayload struct {
	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"user"`
}

// SendMessagePayload carries one submitted chat message
type SendMessagePayload struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Color    string `json:"color"`
	UnixTime int64  `json:"unixTime"`
}

// ErrorPayload carries a human-readable reason to the client
type ErrorPayload struct {
	Message string `json:"message"`
}
