package flowrepo

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// DefaultTTL bounds how long a user may take at the identity provider.
const DefaultTTL = 10 * time.Minute

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]FlowState
	ttl     time.Duration
	nowTime func() time.Time
}

// NewInMemoryRepo creates a new in-memory flow state repository. A ttl of zero
// selects DefaultTTL.
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryRepo{
		states:  make(map[string]FlowState),
		ttl:     ttl,
		nowTime: time.Now,
	}
}

// WithNowTime sets the clock (primarily for testing)
func (r *InMemoryRepo) WithNowTime(nowFunc func() time.Time) *InMemoryRepo {
	r.nowTime = nowFunc
	return r
}

func (r *InMemoryRepo) Upsert(_ context.Context, state string, flow *FlowState) error {
	if state == "" {
		return errors.New("[flowrepo.Upsert] state cannot be empty")
	}
	if flow == nil {
		return errors.New("[flowrepo.Upsert] flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked()
	stored := *flow
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.nowTime()
	}
	r.states[state] = stored
	return nil
}

func (r *InMemoryRepo) Take(_ context.Context, state string) (*FlowState, error) {
	if state == "" {
		return nil, errors.Wrap(apperrors.ErrNotFound, "[flowrepo.Take] empty state")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.states[state]
	if !ok {
		return nil, errors.Wrap(apperrors.ErrNotFound, "[flowrepo.Take] unknown state")
	}
	delete(r.states, state)
	if r.expired(flow) {
		return nil, errors.Wrap(apperrors.ErrNotFound, "[flowrepo.Take] state expired")
	}
	return &flow, nil
}

// Len returns the number of pending flows.
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *InMemoryRepo) expired(flow FlowState) bool {
	return r.nowTime().Sub(flow.CreatedAt) > r.ttl
}

func (r *InMemoryRepo) purgeLocked() {
	for k, v := range r.states {
		if r.expired(v) {
			delete(r.states, k)
		}
	}
}
