// ABOUTME: Tests for the session actor's serialization and durability guarantees
// ABOUTME: Covers lazy creation, merge semantics, concurrent updates, and restart recovery

package session

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/studio-gateway/internal/store"
)

func newTestActor(t *testing.T) (*Actor, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewActor(s, nil), s
}

func intPtr(v int) *int { return &v }

func TestGetState_UnseenKeyReturnsZeroValue(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx := context.Background()

	state, err := actor.GetState(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, "s1", state.SessionID)
	assert.Equal(t, 0, state.RequestCount)
	assert.NotNil(t, state.Demos)
	assert.Empty(t, state.Demos)
}

func TestGetState_ZeroValueBecomesDurable(t *testing.T) {
	actor, s := newTestActor(t)
	ctx := context.Background()

	_, err := actor.GetState(ctx, "s1")
	require.NoError(t, err)

	// The zero value must be persisted by the first access, not just returned.
	blob, err := s.GetSessionState(ctx, "s1")
	require.NoError(t, err)

	var persisted State
	require.NoError(t, json.Unmarshal(blob, &persisted))
	assert.Equal(t, "s1", persisted.SessionID)
	assert.Equal(t, 0, persisted.RequestCount)
	assert.Empty(t, persisted.Demos)
}

func TestGetState_Idempotent(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx := context.Background()

	first, err := actor.GetState(ctx, "s1")
	require.NoError(t, err)
	second, err := actor.GetState(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestApplyPatch_WholeFieldOverwrite(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx := context.Background()

	demos := []DemoSummary{{ID: "d1", Name: "Demo A", TemplateID: "tpl-1"}}
	state, err := actor.ApplyPatch(ctx, "s1", Patch{Demos: &demos})
	require.NoError(t, err)
	assert.Len(t, state.Demos, 1)
	assert.Equal(t, 0, state.RequestCount)

	// Patching only the counter retains the demo list.
	state, err = actor.ApplyPatch(ctx, "s1", Patch{RequestCount: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, state.RequestCount)
	assert.Len(t, state.Demos, 1)

	// Patching the sequence replaces it wholesale, not appends.
	replacement := []DemoSummary{{ID: "d2", Name: "Demo B", TemplateID: "tpl-2"}}
	state, err = actor.ApplyPatch(ctx, "s1", Patch{Demos: &replacement})
	require.NoError(t, err)
	require.Len(t, state.Demos, 1)
	assert.Equal(t, "d2", state.Demos[0].ID)
	assert.Equal(t, 5, state.RequestCount)
}

func TestUpdate_ConcurrentIncrementsLoseNothing(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx := context.Background()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := actor.Update(ctx, "s1", func(cur State) Patch {
				return Patch{RequestCount: intPtr(cur.RequestCount + 1)}
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := actor.GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, workers, state.RequestCount)
}

func TestUpdate_ConcurrentAppendsAllSurvive(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx := context.Background()
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := actor.Update(ctx, "s1", func(cur State) Patch {
				demos := append(append([]DemoSummary{}, cur.Demos...), DemoSummary{
					ID:         string(rune('a' + n)),
					Name:       "Demo",
					TemplateID: "tpl-1",
				})
				return Patch{Demos: &demos}
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state, err := actor.GetState(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, state.Demos, workers)

	seen := make(map[string]bool)
	for _, demo := range state.Demos {
		assert.False(t, seen[demo.ID], "duplicate demo id %q", demo.ID)
		seen[demo.ID] = true
	}
}

func TestUpdate_IndependentKeysDoNotInterfere(t *testing.T) {
	actor, _ := newTestActor(t)
	ctx := context.Background()

	_, err := actor.ApplyPatch(ctx, "s1", Patch{RequestCount: intPtr(3)})
	require.NoError(t, err)
	_, err = actor.ApplyPatch(ctx, "s2", Patch{RequestCount: intPtr(9)})
	require.NoError(t, err)

	s1, err := actor.GetState(ctx, "s1")
	require.NoError(t, err)
	s2, err := actor.GetState(ctx, "s2")
	require.NoError(t, err)

	assert.Equal(t, 3, s1.RequestCount)
	assert.Equal(t, 9, s2.RequestCount)
}

func TestState_SurvivesRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	actor := NewActor(s, nil)

	demos := []DemoSummary{{ID: "d1", Name: "Demo A", TemplateID: "tpl-1"}}
	_, err = actor.ApplyPatch(ctx, "s1", Patch{RequestCount: intPtr(2), Demos: &demos})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// A fresh store and actor over the same file must observe the patched value.
	reopened, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	state, err := NewActor(reopened, nil).GetState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.RequestCount)
	require.Len(t, state.Demos, 1)
	assert.Equal(t, "Demo A", state.Demos[0].Name)
}
