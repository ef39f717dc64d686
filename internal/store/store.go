package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/popitgo/client/internal/service"
)

// ===== Store Errors =====

var (
	// ErrNotCached is returned when the backend accepted a change for a
	// record the container does not hold
	ErrNotCached = errors.New("record not cached")
	// ErrInvalidStatus is returned for a visit status outside the known set
	ErrInvalidStatus = errors.New("invalid status")
	// ErrNoNotifications is returned by Events.ToggleNotification when the
	// container was built without a notification service
	ErrNoNotifications = errors.New("notification service not configured")
)

// State is an immutable snapshot of a container
type State[T any, F any] struct {
	Items     []T
	IsLoading bool
	// Error is the last failure message; empty means none
	Error  string
	Filter F
}

type subscriber[T any, F any] struct {
	id int
	fn func(State[T, F])
}

// container holds one state value. Every change builds a new State and
// never modifies a published Items slice.
//
// deliver serializes install-and-notify so every subscriber sees states in
// the order they were installed. Subscribers must not call back into the
// container that is notifying them.
type container[T any, F any] struct {
	idOf   func(T) string
	logger *slog.Logger

	deliver sync.Mutex

	mu    sync.Mutex
	state State[T, F]
	subs  []subscriber[T, F]
	next  int
}

func newContainer[T any, F any](name string, idOf func(T) string, logger *slog.Logger) *container[T, F] {
	if logger == nil {
		logger = slog.Default()
	}
	return &container[T, F]{
		idOf:   idOf,
		logger: logger.With(slog.String("store", name)),
		state:  State[T, F]{Items: []T{}},
	}
}

// Snapshot returns the current state
func (c *container[T, F]) Snapshot() State[T, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe calls fn with the current state, then after every change until
// the returned function is called
func (c *container[T, F]) Subscribe(fn func(State[T, F])) (unsubscribe func()) {
	c.deliver.Lock()
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs = append(c.subs, subscriber[T, F]{id: id, fn: fn})
	current := c.state
	c.mu.Unlock()

	fn(current)
	c.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			kept := make([]subscriber[T, F], 0, len(c.subs))
			for _, s := range c.subs {
				if s.id != id {
					kept = append(kept, s)
				}
			}
			c.subs = kept
		})
	}
}

// update applies mutate to a copy of the state, installs it and notifies
// subscribers outside the state lock
func (c *container[T, F]) update(mutate func(*State[T, F])) State[T, F] {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	next := c.state
	mutate(&next)
	c.state = next
	subs := make([]subscriber[T, F], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(next)
	}
	return next
}

// begin marks an operation as started
func (c *container[T, F]) begin() {
	c.update(func(s *State[T, F]) {
		s.IsLoading = true
		s.Error = ""
	})
}

// fail records err as the container error and returns it
func (c *container[T, F]) fail(op string, err error, fallback string) error {
	c.logger.Error("store operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	msg := service.Message(err, fallback)
	c.update(func(s *State[T, F]) {
		s.IsLoading = false
		s.Error = msg
	})
	return err
}

// settle ends an operation without changing the items
func (c *container[T, F]) settle() {
	c.update(func(s *State[T, F]) {
		s.IsLoading = false
	})
}

func (c *container[T, F]) replaceAll(items []T) {
	if items == nil {
		items = []T{}
	}
	c.update(func(s *State[T, F]) {
		s.Items = items
		s.IsLoading = false
	})
}

func (c *container[T, F]) appendItem(item T) {
	c.update(func(s *State[T, F]) {
		items := make([]T, 0, len(s.Items)+1)
		items = append(items, s.Items...)
		s.Items = append(items, item)
		s.IsLoading = false
	})
}

// replaceItem swaps the cached element with item's id. An unmatched id
// leaves the items alone and fails with ErrNotCached.
func (c *container[T, F]) replaceItem(op string, item T) error {
	id := c.idOf(item)
	if _, ok := c.find(id); !ok {
		return c.fail(op, fmt.Errorf("%w: %s", ErrNotCached, id), "")
	}
	c.update(func(s *State[T, F]) {
		s.Items = mapItems(s.Items, func(cur T) T {
			if c.idOf(cur) == id {
				return item
			}
			return cur
		})
		s.IsLoading = false
	})
	return nil
}

// upsertItem replaces the element with item's id or appends item
func (c *container[T, F]) upsertItem(item T) {
	if _, ok := c.find(c.idOf(item)); ok {
		_ = c.replaceItem("upsert", item)
		return
	}
	c.appendItem(item)
}

func (c *container[T, F]) removeItem(id string) {
	c.update(func(s *State[T, F]) {
		items := make([]T, 0, len(s.Items))
		for _, it := range s.Items {
			if c.idOf(it) != id {
				items = append(items, it)
			}
		}
		s.Items = items
		s.IsLoading = false
	})
}

func (c *container[T, F]) find(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.state.Items {
		if c.idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func mapItems[T any](items []T, fn func(T) T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = fn(it)
	}
	return out
}

func filterItems[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
