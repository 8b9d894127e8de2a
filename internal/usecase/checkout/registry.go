package checkout

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
)

var ErrSessionNotFound = errors.New("checkout session not found")

// Registry holds the in-progress checkouts, one per operator session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Workflow
	deps     Deps
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Workflow),
		deps:     deps,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (r *Registry) Create(op auth.Operator) *Workflow {
	w := NewWorkflow(uuid.NewString(), op, r.deps)
	w.now = r.now
	w.lastActive = r.now()

	r.mu.Lock()
	r.sessions[w.ID()] = w
	r.mu.Unlock()
	return w
}

// Get returns the session only to the operator who created it.
func (r *Registry) Get(id string, op auth.Operator) (*Workflow, error) {
	r.mu.RLock()
	w, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || w.Operator().ID != op.ID {
		return nil, ErrSessionNotFound
	}
	return w, nil
}

// Delete abandons and forgets a session.
func (r *Registry) Delete(id string, op auth.Operator) error {
	w, err := r.Get(id, op)
	if err != nil {
		return err
	}
	w.Abandon()

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// ReapIdle drops sessions untouched for longer than the idle TTL.
// Sessions with a commit in flight are kept.
func (r *Registry) ReapIdle() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, w := range r.sessions {
		if w.Busy() || w.LastActive().After(cutoff) {
			continue
		}
		w.Abandon()
		delete(r.sessions, id)
		n++
	}
	if n > 0 {
		log.Printf("[checkout] reaped %d idle session(s), %d left", n, len(r.sessions))
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
