package model

import "encoding/json"

// EventType discriminates the frames pushed over a live connection.
type EventType string

const (
	EventMessage EventType = "message"
	EventReceipt EventType = "receipt_update"
	EventError   EventType = "error"
)

type (
	// Event is the envelope for everything pushed to a client.
	Event struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	// Receipt tells a sender that one of their messages changed status.
	Receipt struct {
		ChatID    string `json:"chat_id"`
		MessageID string `json:"message_id"`
		Status    Status `json:"status"`
	}

	// ErrorPayload is sent back on a connection whose submit failed.
	ErrorPayload struct {
		Error string `json:"error"`
	}
)

func NewMessageEvent(m *Message) Event {
	data, _ := json.Marshal(m)
	return Event{Type: EventMessage, Data: data}
}

func NewReceiptEvent(chatID, messageID string, status Status) Event {
	data, _ := json.Marshal(Receipt{ChatID: chatID, MessageID: messageID, Status: status})
	return Event{Type: EventReceipt, Data: data}
}

func NewErrorEvent(msg string) Event {
	data, _ := json.Marshal(ErrorPayload{Error: msg})
	return Event{Type: EventError, Data: data}
}
