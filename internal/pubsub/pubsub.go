// Package pubsub propagates storage change notifications between server
// instances sharing the same durable store. Each instance tags outgoing
// messages with its session id and skips its own messages on receive.
package pubsub

import "context"

// Message is a storage change notification.
type Message struct {
	Type     string `json:"type"`     // entries|settings|stats|summaries|insights
	SourceID string `json:"sourceId"` // session id of the publishing instance
}

// Handler is a callback for foreign change notifications.
type Handler func(msg Message)

// Notifier publishes change notifications and delivers foreign ones.
type Notifier interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(handler Handler)
	Start() error
	Stop() error
}

// Noop is used when no cross-instance channel is configured. Publishes are
// dropped and nothing is ever delivered.
type Noop struct{}

func (Noop) Publish(context.Context, Message) error { return nil }
func (Noop) Subscribe(Handler)                      {}
func (Noop) Start() error                           { return nil }
func (Noop) Stop() error                            { return nil }
