package identity

import (
	"sync"

	"github.com/google/uuid"
)

// ChangeKind is the type of an auth state change.
type ChangeKind int

const (
	SignedIn ChangeKind = iota + 1
	SignedOut
)

// Reasons for a SignedOut change.
const (
	ReasonSignOut     = "sign-out"
	ReasonInvalidated = "invalidated"
)

// StateChange is published whenever a principal signs in or out.
type StateChange struct {
	Kind      ChangeKind
	AccountID uuid.UUID
	Principal *Principal
	Reason    string
}

type subscriber struct {
	ch   chan StateChange
	done chan struct{}
	once sync.Once
}

// Broadcaster fans auth state changes out to subscribers.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]*subscriber{}}
}

// Subscribe registers a listener. The returned function unsubscribes it and is
// safe to call more than once. The channel is never closed.
func (b *Broadcaster) Subscribe() (<-chan StateChange, func()) {
	sub := &subscriber{
		ch:   make(chan StateChange, 16),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.done)
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers change to every current subscriber. It blocks while a
// subscriber's buffer is full, until that subscriber reads or unsubscribes.
func (b *Broadcaster) Publish(change StateChange) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- change:
		case <-sub.done:
		}
	}
}
