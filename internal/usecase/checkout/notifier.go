package checkout

import (
	"context"
	"log"
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Notice struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier delivers operator-facing messages.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, message string)
}

type LogNotifier struct {
	Prefix string
}

func (n LogNotifier) Notify(_ context.Context, kind Kind, message string) {
	log.Printf("%s %s: %s", n.Prefix, kind, message)
}

// Inbox keeps notices until the client reads them.
type Inbox struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
}

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 20
	}
	return &Inbox{limit: limit}
}

func (b *Inbox) Notify(_ context.Context, kind Kind, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, Notice{Kind: kind, Message: message, At: time.Now()})
	if len(b.notices) > b.limit {
		b.notices = b.notices[len(b.notices)-b.limit:]
	}
}

// Drain returns pending notices and empties the inbox.
func (b *Inbox) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(ctx context.Context, kind Kind, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, kind, message)
		}
	}
}

// Multi fans a notice out to every notifier.
func Multi(ns ...Notifier) Notifier {
	return multiNotifier(ns)
}
