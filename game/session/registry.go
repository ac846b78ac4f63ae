package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrOrphanSession = errors.New("orphan session")
	ErrInvalidKey    = errors.New("invalid session key")
	ErrSessionInit   = errors.New("session init failed")
)

// Factory builds the Context of a new session.
type Factory func(Key) *Context

type entry struct {
	once  sync.Once
	ready chan struct{}
	ctx   *Context
	err   error

	mu     sync.Mutex
	closed atomic.Bool
}

func newEntry() *entry {
	return &entry{ready: make(chan struct{})}
}

// init runs factory once. ran reports whether this call executed it; a
// panicking factory or a nil Context leaves e.err set.
func (e *entry) init(key Key, factory Factory) (ran bool) {
	e.once.Do(func() {
		ran = true
		defer close(e.ready)
		defer func() {
			if r := recover(); r != nil {
				e.ctx = nil
				e.err = fmt.Errorf("%w: %s: factory panicked: %v", ErrSessionInit, key, r)
			}
		}()
		e.ctx = factory(key)
		if e.ctx == nil {
			e.err = fmt.Errorf("%w: %s: factory returned nil", ErrSessionInit, key)
		}
	})
	return ran
}

func (e *entry) usable() bool {
	return e.err == nil && !e.closed.Load()
}

// Registry holds the active sessions of the agent
type Registry struct {
	entries sync.Map // Key -> *entry
	count   atomic.Int64
	now     func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return NewRegistryWithClock(time.Now)
}

// NewRegistryWithClock creates an empty registry that reads time from now
func NewRegistryWithClock(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now}
}

func (r *Registry) factory(f Factory) Factory {
	if f != nil {
		return f
	}
	return func(key Key) *Context { return NewContext(key, r.now()) }
}

func validKey(key Key) error {
	if key.GameID == "" || key.SnakeID == "" {
		return ErrInvalidKey
	}
	return nil
}

// GetOrCreate returns the session for key, creating it with factory when it
// does not exist. The boolean reports whether this call created it. A nil
// factory yields an empty Context. When factory panics the Context is nil and
// nothing is stored.
func (r *Registry) GetOrCreate(key Key, factory Factory) (*Context, bool) {
	e, created, err := r.acquire(key, factory)
	if err != nil {
		return nil, false
	}
	return e.ctx, created
}

// acquire returns the entry for key, creating it when needed. A failed
// creation is removed from the registry; the call that ran the factory gets
// the error and callers that merely waited on it try again.
func (r *Registry) acquire(key Key, factory Factory) (*entry, bool, error) {
	for {
		fresh := newEntry()
		v, loaded := r.entries.LoadOrStore(key, fresh)
		if !loaded {
			r.count.Add(1)
		}
		e := v.(*entry)
		ran := e.init(key, r.factory(factory))
		<-e.ready
		if e.err == nil {
			return e, ran, nil
		}
		r.discard(key, e)
		if ran {
			return nil, false, e.err
		}
	}
}

func (r *Registry) discard(key Key, e *entry) {
	e.closed.Store(true)
	if r.entries.CompareAndDelete(key, e) {
		r.count.Add(-1)
	}
}

func (r *Registry) load(key Key) (*entry, bool) {
	v, ok := r.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	<-e.ready
	if !e.usable() {
		return nil, false
	}
	return e, true
}

// Lookup returns the active session for key
func (r *Registry) Lookup(key Key) (*Context, error) {
	e, ok := r.load(key)
	if !ok {
		return nil, ErrOrphanSession
	}
	return e.ctx, nil
}

// Open runs fn with exclusive access to the session for key, creating the
// session first when needed. created is true for the call that built it.
// A session terminated while Open was waiting is replaced by a new one. A
// panicking factory yields ErrSessionInit and leaves no session behind.
func (r *Registry) Open(key Key, factory Factory, fn func(c *Context, created bool) error) error {
	if err := validKey(key); err != nil {
		return err
	}
	for {
		e, created, err := r.acquire(key, factory)
		if err != nil {
			return err
		}
		e.mu.Lock()
		if e.closed.Load() {
			e.mu.Unlock()
			continue
		}
		err = fn(e.ctx, created)
		e.mu.Unlock()
		return err
	}
}

// Do runs fn with exclusive access to the active session for key. It returns
// ErrOrphanSession when no session exists or it ended while Do was waiting.
func (r *Registry) Do(key Key, fn func(*Context) error) error {
	e, ok := r.load(key)
	if !ok {
		return ErrOrphanSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return ErrOrphanSession
	}
	return fn(e.ctx)
}

// Terminate runs fn with exclusive access to the session for key and then
// removes it. The boolean reports whether a session existed. fn may be nil.
func (r *Registry) Terminate(key Key, fn func(*Context) error) (bool, error) {
	e, ok := r.load(key)
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return false, nil
	}

	var err error
	if fn != nil {
		err = fn(e.ctx)
	}
	r.close(key, e)
	return true, err
}

// caller holds e.mu
func (r *Registry) close(key Key, e *entry) {
	r.discard(key, e)
}

// Remove deletes the session for key. Removing an absent key is a no-op.
func (r *Registry) Remove(key Key) {
	r.Terminate(key, nil)
}

// Len returns the number of active sessions
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Keys returns the keys of all active sessions, sorted
func (r *Registry) Keys() []Key {
	var keys []Key
	r.each(func(key Key, _ *entry) {
		keys = append(keys, key)
	})
	sortKeys(keys)
	return keys
}

// Snapshot returns statistics for every active session, sorted by key
func (r *Registry) Snapshot() []Info {
	infos := make([]Info, 0, r.Len())
	r.each(func(_ Key, e *entry) {
		infos = append(infos, e.ctx.Info())
	})
	sort.Slice(infos, func(i, j int) bool {
		return keyLess(infos[i].Key, infos[j].Key)
	})
	return infos
}

// each visits initialized, usable entries without blocking on creation
func (r *Registry) each(fn func(Key, *entry)) {
	r.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		select {
		case <-e.ready:
		default:
			return true
		}
		if e.usable() {
			fn(k.(Key), e)
		}
		return true
	})
}

// CleanupIdle removes sessions that have not handled a callback within
// maxAge. Sessions busy with a callback are skipped.
func (r *Registry) CleanupIdle(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)
	removed := 0

	r.each(func(key Key, e *entry) {
		if !e.ctx.LastAccessed().Before(cutoff) {
			return
		}
		if !e.mu.TryLock() {
			return
		}
		defer e.mu.Unlock()
		if e.closed.Load() || !e.ctx.LastAccessed().Before(cutoff) {
			return
		}
		r.close(key, e)
		removed++
	})

	return removed
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
}

func keyLess(a, b Key) bool {
	if a.GameID != b.GameID {
		return a.GameID < b.GameID
	}
	return a.SnakeID < b.SnakeID
}
