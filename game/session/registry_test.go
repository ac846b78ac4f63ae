package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")

	c1, created := registry.GetOrCreate(key, nil)
	if !created {
		t.Error("Expected first call to create the session")
	}
	c2, created := registry.GetOrCreate(key, nil)
	if created {
		t.Error("Expected second call to reuse the session")
	}
	if c1 != c2 {
		t.Error("Expected the same context instance")
	}
	if registry.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", registry.Len())
	}
	if c1.Key() != key {
		t.Errorf("Expected key %s, got %s", key, c1.Key())
	}
}

func TestRegistry_ConcurrentCreateRunsFactoryOnce(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")

	var calls atomic.Int32
	factory := func(k Key) *Context {
		calls.Add(1)
		time.Sleep(time.Millisecond)
		return NewContext(k, time.Now())
	}

	const n = 50
	var wg sync.WaitGroup
	results := make([]*Context, n)
	var createdCount atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := registry.Open(key, factory, func(c *Context, created bool) error {
				if created {
					createdCount.Add(1)
				}
				results[i] = c
				return nil
			})
			if err != nil {
				t.Errorf("Open failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected factory to run once, ran %d times", calls.Load())
	}
	if createdCount.Load() != 1 {
		t.Errorf("Expected exactly one creator, got %d", createdCount.Load())
	}
	if registry.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", registry.Len())
	}
	for i, c := range results {
		if c != results[0] {
			t.Fatalf("Caller %d observed a different context", i)
		}
	}
}

func TestRegistry_LookupOrphan(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Lookup(NewKey("nope", "s1")); !errors.Is(err, ErrOrphanSession) {
		t.Errorf("Expected ErrOrphanSession, got %v", err)
	}
	err := registry.Do(NewKey("nope", "s1"), func(*Context) error {
		t.Error("fn must not run for an absent session")
		return nil
	})
	if !errors.Is(err, ErrOrphanSession) {
		t.Errorf("Expected ErrOrphanSession from Do, got %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("Expected lookups not to create sessions, got %d", registry.Len())
	}
}

func TestRegistry_OpenRejectsEmptyKey(t *testing.T) {
	registry := NewRegistry()
	err := registry.Open(NewKey("", "s1"), nil, func(*Context, bool) error { return nil })
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")
	registry.GetOrCreate(key, nil)

	registry.Remove(key)
	registry.Remove(key)

	if registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", registry.Len())
	}
	if _, err := registry.Lookup(key); !errors.Is(err, ErrOrphanSession) {
		t.Errorf("Expected removed session to be orphaned, got %v", err)
	}
}

func TestRegistry_Terminate(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")
	registry.GetOrCreate(key, nil)

	fnErr := errors.New("end failed")
	existed, err := registry.Terminate(key, func(c *Context) error { return fnErr })
	if !existed {
		t.Error("Expected session to exist")
	}
	if !errors.Is(err, fnErr) {
		t.Errorf("Expected fn error to be returned, got %v", err)
	}
	if registry.Len() != 0 {
		t.Error("Expected session to be removed even when fn fails")
	}

	existed, err = registry.Terminate(key, nil)
	if existed || err != nil {
		t.Errorf("Expected absent session, got existed=%v err=%v", existed, err)
	}
}

func TestRegistry_PerKeyExclusion(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")
	registry.GetOrCreate(key, nil)

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Do(key, func(c *Context) error {
				n := active.Add(1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxActive.Load() != 1 {
		t.Errorf("Expected callbacks on one key to be serialized, saw %d at once", maxActive.Load())
	}
}

func TestRegistry_CrossKeyIndependence(t *testing.T) {
	registry := NewRegistry()
	a := NewKey("g1", "s1")
	b := NewKey("g2", "s1")
	registry.GetOrCreate(a, nil)
	registry.GetOrCreate(b, nil)

	held := make(chan struct{})
	release := make(chan struct{})
	go registry.Do(a, func(*Context) error {
		close(held)
		<-release
		return nil
	})
	<-held

	done := make(chan struct{})
	go func() {
		registry.Do(b, func(*Context) error { return nil })
		registry.Remove(b)
		registry.GetOrCreate(NewKey("g3", "s1"), nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Operations on other keys blocked behind a busy session")
	}
	close(release)
}

func TestRegistry_DoAfterTerminateIsOrphan(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")
	registry.GetOrCreate(key, nil)

	held := make(chan struct{})
	release := make(chan struct{})
	go registry.Terminate(key, func(*Context) error {
		close(held)
		<-release
		return nil
	})
	<-held

	result := make(chan error, 1)
	go func() {
		result <- registry.Do(key, func(*Context) error { return nil })
	}()
	close(release)

	if err := <-result; !errors.Is(err, ErrOrphanSession) {
		t.Errorf("Expected ErrOrphanSession after termination, got %v", err)
	}
}

func TestRegistry_OpenAfterTerminateCreatesFresh(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")
	first, _ := registry.GetOrCreate(key, nil)
	registry.Remove(key)

	var second *Context
	err := registry.Open(key, nil, func(c *Context, created bool) error {
		if !created {
			t.Error("Expected a new session after removal")
		}
		second = c
		return nil
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if first == second {
		t.Error("Expected a fresh context after removal")
	}
}

func TestRegistry_KeysAndSnapshot(t *testing.T) {
	registry := NewRegistry()
	registry.GetOrCreate(NewKey("g2", "s1"), nil)
	registry.GetOrCreate(NewKey("g1", "s2"), nil)
	registry.GetOrCreate(NewKey("g1", "s1"), nil)

	keys := registry.Keys()
	want := []Key{NewKey("g1", "s1"), NewKey("g1", "s2"), NewKey("g2", "s1")}
	if len(keys) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Key %d: expected %s, got %s", i, want[i], keys[i])
		}
	}

	snapshot := registry.Snapshot()
	if len(snapshot) != 3 || snapshot[0].Key != want[0] {
		t.Errorf("Unexpected snapshot %+v", snapshot)
	}
}

func TestRegistry_CleanupIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := NewRegistryWithClock(func() time.Time { return now })

	stale, _ := registry.GetOrCreate(NewKey("old", "s1"), nil)
	fresh, _ := registry.GetOrCreate(NewKey("new", "s1"), nil)
	stale.Touch(now.Add(-2 * time.Hour))
	fresh.Touch(now.Add(-time.Minute))

	removed := registry.CleanupIdle(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := registry.Lookup(NewKey("old", "s1")); !errors.Is(err, ErrOrphanSession) {
		t.Error("Expected stale session to be gone")
	}
	if _, err := registry.Lookup(NewKey("new", "s1")); err != nil {
		t.Errorf("Expected fresh session to stay, got %v", err)
	}
}

func TestRegistry_FactoryPanicLeavesNoSession(t *testing.T) {
	registry := NewRegistry()
	key := NewKey("g1", "s1")
	panicking := func(Key) *Context { panic("boom") }

	err := registry.Open(key, panicking, func(*Context, bool) error {
		t.Error("Expected fn not to run when the factory panics")
		return nil
	})
	if !errors.Is(err, ErrSessionInit) {
		t.Fatalf("Expected ErrSessionInit, got %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("Expected 0 sessions after failed creation, got %d", registry.Len())
	}
	if _, err := registry.Lookup(key); !errors.Is(err, ErrOrphanSession) {
		t.Errorf("Expected lookup to miss, got %v", err)
	}
	if c, created := registry.GetOrCreate(NewKey("g2", "s1"), func(Key) *Context { return nil }); c != nil || created {
		t.Error("Expected a nil context from a factory returning nil")
	}

	registry.GetOrCreate(NewKey("g3", "s1"), nil)
	if got := len(registry.Snapshot()); got != 1 {
		t.Errorf("Expected snapshot of 1 healthy session, got %d", got)
	}
	if removed := registry.CleanupIdle(-time.Minute); removed != 1 {
		t.Errorf("Expected cleanup to remove the healthy session only, got %d", removed)
	}

	created := false
	err = registry.Open(key, nil, func(_ *Context, c bool) error {
		created = c
		return nil
	})
	if err != nil || !created {
		t.Errorf("Expected a fresh session after the failure, got created=%v err=%v", created, err)
	}
	if registry.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", registry.Len())
	}
}
