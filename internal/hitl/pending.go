package hitl

import (
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ledgerline/finsight/internal/model"
)

// ErrNotFound is returned when a pending review does not exist or expired.
var ErrNotFound = eris.New("hitl: pending review not found")

// PendingReview is one extraction result waiting for human corrections.
type PendingReview struct {
	Result    *model.ExtractionResult `json:"result"`
	Decision  model.ValidationDecision `json:"decision"`
	CreatedAt time.Time               `json:"created_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// Registry holds extraction results paused for validation. Entries expire
// after the configured TTL so an abandoned review cannot block forever.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]PendingReview
	now     func() time.Time
}

// NewRegistry creates a registry with the given TTL. A zero TTL disables
// expiry.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:     ttl,
		pending: make(map[string]PendingReview),
		now:     time.Now,
	}
}

// Put registers a result awaiting validation under its result ID.
func (r *Registry) Put(result *model.ExtractionResult, decision model.ValidationDecision) PendingReview {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()

	now := r.now()
	review := PendingReview{
		Result:    result,
		Decision:  decision,
		CreatedAt: now,
	}
	if r.ttl > 0 {
		review.ExpiresAt = now.Add(r.ttl)
	}
	r.pending[result.ID] = review
	return review
}

// Get returns one pending review.
func (r *Registry) Get(id string) (PendingReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()

	review, ok := r.pending[id]
	if !ok {
		return PendingReview{}, ErrNotFound
	}
	return review, nil
}

// List returns all pending reviews, oldest first.
func (r *Registry) List() []PendingReview {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()

	out := make([]PendingReview, 0, len(r.pending))
	for _, review := range r.pending {
		out = append(out, review)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Resolve removes a pending review once its corrections were applied and
// persisted.
func (r *Registry) Resolve(id string) (PendingReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()

	review, ok := r.pending[id]
	if !ok {
		return PendingReview{}, ErrNotFound
	}
	delete(r.pending, id)
	return review, nil
}

func (r *Registry) purgeLocked() {
	if r.ttl <= 0 {
		return
	}
	now := r.now()
	for id, review := range r.pending {
		if now.After(review.ExpiresAt) {
			delete(r.pending, id)
		}
	}
}
