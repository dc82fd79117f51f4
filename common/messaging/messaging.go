// Package messaging provides broker-neutral interfaces for publishing and
// consuming SentinelVNC notifications.
package messaging

import (
	"context"
	"time"
)

// Message is a notification received from the broker. Metadata carries the
// broker headers, e.g. the originating X-Request-ID.
type Message struct {
	Subject   string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
}

// MessageHandler processes a received message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscription represents an active subscription to a subject.
type Subscription interface {
	Unsubscribe() error
	Subject() string
	IsValid() bool
}

// Publisher publishes notifications. Implementations copy the request id
// found in ctx onto the outgoing message.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	PublishJSON(ctx context.Context, subject string, v interface{}) error
	Close() error
}

// Subscriber subscribes to messages on subjects.
type Subscriber interface {
	Subscribe(subject string, handler MessageHandler) (Subscription, error)

	// QueueSubscribe load-balances messages across members of queue.
	QueueSubscribe(subject, queue string, handler MessageHandler) (Subscription, error)

	Close() error
}

// Client combines Publisher and Subscriber with connection introspection.
type Client interface {
	Publisher
	Subscriber

	IsConnected() bool
	// RTT measures a round trip to the broker.
	RTT() (time.Duration, error)
}
