package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayly/internal/app/outbox"
	"stayly/internal/app/uow"
	infraoutbox "stayly/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	claimed   bool
	attempts  int
	nextAt    time.Time
	lastError string
}

// Outbox queues records in memory. Records added inside a memory unit become visible
// when that unit commits; the worker drains them through the infraoutbox.Store methods.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	Now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			mu.AfterCommit(func() { o.enqueue(record) })
			return nil
		}
	}
	o.enqueue(record)
	return nil
}

// Flush is a no-op; publication is the worker's job.
func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) enqueue(record appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, nextAt: o.now()})
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		if e.claimed || e.nextAt.After(now) {
			continue
		}
		e.claimed = true
		return &infraoutbox.Message{
			ID:         e.record.ID,
			Name:       e.record.Name,
			Payload:    e.record.Payload,
			OccurredAt: e.record.OccurredAt,
			Aggregate:  e.record.Aggregate,
			Headers:    e.record.Headers,
			Attempts:   e.attempts,
		}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.record.ID == id {
			continue
		}
		kept = append(kept, e)
	}
	o.entries = kept
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.claimed = false
			e.attempts++
			e.nextAt = next
			e.lastError = errMsg
		}
	}
	return nil
}

// Pending returns the records not yet published.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

func (o *Outbox) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
