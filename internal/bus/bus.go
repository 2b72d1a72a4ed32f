package bus

import (
	"sync"

	"github.com/google/uuid"
)

// Push-notification types the engine reacts to: a message created or
// deleted on a thread elsewhere (another tab, another user).
const (
	TypeMessageNew    = "mail.message/new"
	TypeMessageDelete = "mail.message/delete"
)

// Payload carries the record reference of a push notification.
type Payload struct {
	Model     string `json:"model"`
	ResID     int64  `json:"res_id"`
	MessageID int64  `json:"message_id,omitempty"`
}

// Notification is a push event delivered by the notification channel.
type Notification struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// PostedSignal is the same-tab custom event emitted after a successful post,
// consumed by any surface watching that thread.
type PostedSignal struct {
	ThreadID    int64  `json:"threadId"`
	ThreadModel string `json:"threadModel"`
}

// Bus is an in-process fan-out for push notifications and the same-tab
// posted signal. Dispatch is synchronous: handlers run on the caller's
// goroutine, matching the single event loop model.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[string]func(Notification)
	postedSubs map[string]func(PostedSignal)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers:   make(map[string]func(Notification)),
		postedSubs: make(map[string]func(PostedSignal)),
	}
}

// Subscribe registers a notification handler and returns its handle.
func (b *Bus) Subscribe(fn func(Notification)) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.handlers[id] = fn
	b.mu.Unlock()
	return id
}

// Unsubscribe removes a notification handler. Unknown handles are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
}

// Publish delivers a notification to every subscriber.
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	fns := make([]func(Notification), 0, len(b.handlers))
	for _, fn := range b.handlers {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(n)
	}
}

// SubscribePosted registers a handler for the same-tab posted signal.
func (b *Bus) SubscribePosted(fn func(PostedSignal)) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.postedSubs[id] = fn
	b.mu.Unlock()
	return id
}

// UnsubscribePosted removes a posted-signal handler.
func (b *Bus) UnsubscribePosted(id string) {
	b.mu.Lock()
	delete(b.postedSubs, id)
	b.mu.Unlock()
}

// PublishPosted emits the posted signal for a thread.
func (b *Bus) PublishPosted(sig PostedSignal) {
	b.mu.RLock()
	fns := make([]func(PostedSignal), 0, len(b.postedSubs))
	for _, fn := range b.postedSubs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(sig)
	}
}
