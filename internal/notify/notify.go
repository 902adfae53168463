// Package notify holds transient, auto-dismissing user notifications.
package notify

import (
	"sync"
	"time"

	"github.com/smallbiznis/receptionist/internal/clock"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Notification struct {
	ID        int
	Kind      Kind
	Message   string
	Details   string
	ExpiresAt time.Time
}

// Center stores notifications until they expire or are dismissed.
type Center struct {
	mu     sync.Mutex
	clock  clock.Clock
	ttl    time.Duration
	nextID int
	items  []Notification
}

func NewCenter(clk clock.Clock, ttl time.Duration) *Center {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{clock: clk, ttl: ttl}
}

func (c *Center) Push(kind Kind, message, details string) Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	n := Notification{
		ID:        c.nextID,
		Kind:      kind,
		Message:   message,
		Details:   details,
		ExpiresAt: c.clock.Now().Add(c.ttl),
	}
	c.items = append(c.items, n)
	return n
}

// Active returns the notifications that have not expired, pruning the rest.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	kept := c.items[:0]
	for _, n := range c.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	c.items = kept

	out := make([]Notification, len(kept))
	copy(out, kept)
	return out
}

func (c *Center) Dismiss(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}
