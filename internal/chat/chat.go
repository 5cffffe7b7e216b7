// Package chat connects the bot to a chat service.
package chat

import "context"

// TypeMessage is the event type of a user message.
const TypeMessage = "message"

// Message is one inbound event. Non-message events keep their Type and
// leave the other fields empty.
type Message struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Text    string `json:"text"`
	User    string `json:"user"`
}

// Transport is the chat connection used by the bot loop.
type Transport interface {
	// Connect is idempotent and retries until ctx is done.
	Connect(ctx context.Context) error
	// Receive waits briefly for events and returns whatever arrived.
	// Connection problems wrap errors.ErrTransport.
	Receive(ctx context.Context) ([]Message, error)
	Send(ctx context.Context, channel, text string) error
	Close() error
}
