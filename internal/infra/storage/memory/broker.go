package memory

import (
	"context"
	"strings"
	"sync"

	infraoutbox "stayly/internal/infra/outbox"
)

// Subscriber receives published payloads for a topic.
type Subscriber func(ctx context.Context, payload []byte) error

// Broker delivers outbox messages to in-process subscribers. It stands in for Kafka
// in memory mode.
type Broker struct {
	mu   sync.RWMutex
	subs map[string][]Subscriber
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]Subscriber)}
}

func (b *Broker) Subscribe(topic string, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], fn)
}

// Publish calls every subscriber of topic in order and stops at the first error.
func (b *Broker) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[strings.TrimSpace(topic)]...)
	b.mu.RUnlock()
	for _, fn := range subs {
		if err := fn(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

// Inbox remembers processed event ids.
type Inbox struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInbox() *Inbox {
	return &Inbox{seen: make(map[string]struct{})}
}

func (i *Inbox) Processed(ctx context.Context, eventID string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.seen[eventID]
	return ok, nil
}

func (i *Inbox) MarkProcessed(ctx context.Context, eventID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seen[eventID] = struct{}{}
	return nil
}

var _ infraoutbox.Producer = (*Broker)(nil)
