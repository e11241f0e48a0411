package pubsub

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// storageChannel carries all storage change notifications.
const storageChannel = "nuuko:storage"

// RedisNotifier fans storage notifications out across instances via Redis
// pub/sub.
type RedisNotifier struct {
	client    *redis.Client
	pubsub    *redis.PubSub
	handlers  []Handler
	mu        sync.RWMutex
	sessionID string
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRedisNotifier creates a notifier for the given session id.
func NewRedisNotifier(client *redis.Client, sessionID string) *RedisNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisNotifier{
		client:    client,
		sessionID: sessionID,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Subscribe registers a handler for foreign notifications.
func (n *RedisNotifier) Subscribe(handler Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

// Start begins listening for notifications from other instances.
func (n *RedisNotifier) Start() error {
	n.pubsub = n.client.Subscribe(n.ctx, storageChannel)

	// Wait for subscription confirmation
	if _, err := n.pubsub.Receive(n.ctx); err != nil {
		return err
	}

	go n.processMessages()

	log.Printf("✅ [PUBSUB] Listening for storage notifications (session: %s)", n.sessionID)
	return nil
}

func (n *RedisNotifier) processMessages() {
	ch := n.pubsub.Channel()
	for {
		select {
		case <-n.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n.handleMessage(msg)
		}
	}
}

func (n *RedisNotifier) handleMessage(msg *redis.Message) {
	var message Message
	if err := json.Unmarshal([]byte(msg.Payload), &message); err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to unmarshal message: %v", err)
		return
	}

	// Skip messages from this instance (avoid notification loops)
	if message.SourceID == n.sessionID {
		return
	}

	n.mu.RLock()
	handlers := append([]Handler(nil), n.handlers...)
	n.mu.RUnlock()

	for _, handler := range handlers {
		go handler(message)
	}
}

// Publish broadcasts a change notification tagged with this session id.
func (n *RedisNotifier) Publish(ctx context.Context, msg Message) error {
	msg.SourceID = n.sessionID

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, storageChannel, data).Err()
}

// Stop stops listening and closes the subscription.
func (n *RedisNotifier) Stop() error {
	n.cancel()
	if n.pubsub != nil {
		return n.pubsub.Close()
	}
	return nil
}
