// ABOUTME: Session actor providing durable, per-key serialized access to session state
// ABOUTME: One lock per session key makes read-modify-write cycles race-free

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/studio-gateway/internal/store"
)

// DemoSummary is the compact demo record carried in session state.
type DemoSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TemplateID string `json:"templateId"`
}

// State is the durable per-session record. One instance exists per session
// key, created lazily with RequestCount zero and an empty demo list.
type State struct {
	SessionID    string        `json:"sessionId"`
	RequestCount int           `json:"requestCount"`
	Demos        []DemoSummary `json:"demos"`
}

// Patch is a partial State. A non-nil field replaces the corresponding State
// field wholesale; nil fields retain the prior value. Sequences are replaced,
// not appended: callers wanting append semantics must read the current state
// and patch with the full new sequence, which Update does under the key lock.
type Patch struct {
	RequestCount *int
	Demos        *[]DemoSummary
}

// Actor owns all session state access. For a given key, GetState, ApplyPatch,
// and Update calls are totally ordered; operations on different keys proceed
// in parallel. Every successful mutation is persisted before it returns.
type Actor struct {
	store  store.Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // one lock per session key; never removed
}

// NewActor creates a session actor backed by the given store.
// Pass nil logger for default.
func NewActor(s store.Store, logger *slog.Logger) *Actor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actor{
		store:  s,
		logger: logger.With("component", "session"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// keyLock returns the serialization lock for a session key, creating it on
// first use. Abandoned keys keep their lock; session GC is out of scope.
func (a *Actor) keyLock(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[key] = lock
	}
	return lock
}

// GetState returns the current state for a session key, creating and
// persisting the zero-value state on first access for an unseen key.
func (a *Actor) GetState(ctx context.Context, key string) (State, error) {
	lock := a.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	return a.loadOrCreate(ctx, key)
}

// ApplyPatch merges the patch over the current state field-by-field, persists
// the result, and returns it. This is the sole mutation path.
func (a *Actor) ApplyPatch(ctx context.Context, key string, patch Patch) (State, error) {
	return a.Update(ctx, key, func(State) Patch { return patch })
}

// Update runs fn against the current state and applies the returned patch,
// all while holding the key's serialization lock. This is how callers get an
// atomic read-modify-write: the state fn observes cannot change before the
// patch is persisted.
func (a *Actor) Update(ctx context.Context, key string, fn func(State) Patch) (State, error) {
	lock := a.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := a.loadOrCreate(ctx, key)
	if err != nil {
		return State{}, err
	}

	merged := merge(current, fn(current))
	if err := a.persist(ctx, key, merged); err != nil {
		return State{}, err
	}

	a.logger.Debug("session state updated",
		"session_id", key,
		"request_count", merged.RequestCount,
		"demos", len(merged.Demos),
	)
	return merged, nil
}

// loadOrCreate reads the state blob for a key, creating and persisting the
// zero value when the key is unseen. Callers must hold the key lock.
func (a *Actor) loadOrCreate(ctx context.Context, key string) (State, error) {
	blob, err := a.store.GetSessionState(ctx, key)
	if err == store.ErrNotFound {
		state := newState(key)
		if err := a.persist(ctx, key, state); err != nil {
			return State{}, err
		}
		return state, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("loading session state: %w", err)
	}

	var state State
	if err := json.Unmarshal(blob, &state); err != nil {
		return State{}, fmt.Errorf("decoding session state: %w", err)
	}
	if state.Demos == nil {
		state.Demos = []DemoSummary{}
	}
	return state, nil
}

func (a *Actor) persist(ctx context.Context, key string, state State) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	if err := a.store.SaveSessionState(ctx, key, blob); err != nil {
		return fmt.Errorf("persisting session state: %w", err)
	}
	return nil
}

func newState(key string) State {
	return State{
		SessionID: key,
		Demos:     []DemoSummary{},
	}
}

// merge applies whole-field overwrite semantics: each non-nil patch field
// replaces the current field. Slices are copied so callers cannot alias the
// persisted state.
func merge(current State, patch Patch) State {
	merged := current
	if patch.RequestCount != nil {
		merged.RequestCount = *patch.RequestCount
	}
	if patch.Demos != nil {
		demos := make([]DemoSummary, len(*patch.Demos))
		copy(demos, *patch.Demos)
		merged.Demos = demos
	}
	return merged
}
