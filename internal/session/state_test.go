package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestStateSerializeRoundTrip(t *testing.T) {
	src := State{
		ActiveProvider:         "ghost-main",
		ReviewPatterns:         []string{"confidential", "secret"},
		ReviewEscalationTarget: "ops",
		ReviewTimeout:          time.Minute,
	}

	data, err := src.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	var restored State
	if err := restored.Deserialize(data); err != nil {
		t.Fatal(err)
	}

	if restored.ActiveProvider != src.ActiveProvider {
		t.Errorf("ActiveProvider = %q, want %q", restored.ActiveProvider, src.ActiveProvider)
	}
	if len(restored.ReviewPatterns) != 2 || restored.ReviewPatterns[0] != "confidential" {
		t.Errorf("ReviewPatterns = %v", restored.ReviewPatterns)
	}
	if restored.ReviewEscalationTarget != "ops" {
		t.Errorf("ReviewEscalationTarget = %q", restored.ReviewEscalationTarget)
	}
	// The timeout is runtime configuration and must not survive the
	// round trip.
	if restored.ReviewTimeout != 0 {
		t.Errorf("ReviewTimeout = %v, want 0", restored.ReviewTimeout)
	}
}

func TestStateSerializeNullProvider(t *testing.T) {
	var src State
	data, err := src.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["activeProvider"]) != "null" {
		t.Errorf("activeProvider = %s, want null", raw["activeProvider"])
	}
}

func TestDeserializeClearsProvider(t *testing.T) {
	s := State{ActiveProvider: "stale"}
	if err := s.Deserialize([]byte(`{"activeProvider":null}`)); err != nil {
		t.Fatal(err)
	}
	if s.ActiveProvider != "" {
		t.Errorf("ActiveProvider = %q, want empty", s.ActiveProvider)
	}
}

func TestChildInheritsActiveProvider(t *testing.T) {
	parent := New("parent", State{ActiveProvider: "ghost-main"})
	child := NewChild("child", State{}, parent)

	if got := child.ActiveProvider(); got != "ghost-main" {
		t.Errorf("child ActiveProvider = %q, want ghost-main", got)
	}

	// Changing the child must not affect the parent.
	child.SetActiveProvider("wordpress")
	if got := parent.ActiveProvider(); got != "ghost-main" {
		t.Errorf("parent ActiveProvider = %q after child change", got)
	}
}

func TestChildDefaultsWinOverParent(t *testing.T) {
	parent := New("parent", State{ActiveProvider: "ghost-main"})
	child := NewChild("child", State{ActiveProvider: "memory"}, parent)

	if got := child.ActiveProvider(); got != "memory" {
		t.Errorf("child ActiveProvider = %q, want memory", got)
	}
}

type mapStore struct {
	states map[string][]byte
	saves  int
}

func newMapStore() *mapStore {
	return &mapStore{states: make(map[string][]byte)}
}

func (s *mapStore) GetSessionState(ctx context.Context, sessionID string) ([]byte, error) {
	return s.states[sessionID], nil
}

func (s *mapStore) SaveSessionState(ctx context.Context, sessionID string, state []byte) error {
	s.states[sessionID] = state
	s.saves++
	return nil
}

func TestManagerRestoresPersistedState(t *testing.T) {
	store := newMapStore()
	store.states["s1"] = []byte(`{"activeProvider":"ghost-main","reviewPatterns":["stale"]}`)

	defaults := State{
		ReviewPatterns:         []string{"confidential"},
		ReviewEscalationTarget: "ops",
	}
	m := NewManager(defaults, store)

	s, err := m.Get(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.ActiveProvider(); got != "ghost-main" {
		t.Errorf("ActiveProvider = %q, want ghost-main", got)
	}

	// Review settings come from live configuration, not the record.
	patterns, target, _ := s.ReviewConfig()
	if len(patterns) != 1 || patterns[0] != "confidential" {
		t.Errorf("ReviewPatterns = %v, want [confidential]", patterns)
	}
	if target != "ops" {
		t.Errorf("ReviewEscalationTarget = %q, want ops", target)
	}
}

func TestManagerReturnsSameInstance(t *testing.T) {
	m := NewManager(State{}, nil)
	ctx := context.Background()

	a, err := m.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Get returned distinct instances for the same id")
	}
}

func TestManagerSpawn(t *testing.T) {
	m := NewManager(State{}, nil)
	ctx := context.Background()

	parent, err := m.Get(ctx, "parent")
	if err != nil {
		t.Fatal(err)
	}
	parent.SetActiveProvider("ghost-main")

	child, err := m.Spawn(ctx, "child", "parent")
	if err != nil {
		t.Fatal(err)
	}
	if got := child.ActiveProvider(); got != "ghost-main" {
		t.Errorf("spawned child ActiveProvider = %q, want ghost-main", got)
	}

	again, err := m.Spawn(ctx, "child", "parent")
	if err != nil {
		t.Fatal(err)
	}
	if again != child {
		t.Error("second Spawn did not return the existing session")
	}
}

func TestManagerSaveWritesThrough(t *testing.T) {
	store := newMapStore()
	m := NewManager(State{}, store)
	ctx := context.Background()

	s, err := m.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	s.SetActiveProvider("memory")
	m.Save(ctx, s)

	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}
	var restored State
	if err := restored.Deserialize(store.states["s1"]); err != nil {
		t.Fatal(err)
	}
	if restored.ActiveProvider != "memory" {
		t.Errorf("persisted ActiveProvider = %q, want memory", restored.ActiveProvider)
	}
}
