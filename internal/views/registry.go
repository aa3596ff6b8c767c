// Package views holds per-identity view models and the optimistic mutation
// helper shared by every mutating storefront and admin operation.
package views

import (
	"context"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
)

// Loader fetches the authoritative state of a view.
type Loader[V any] func(ctx context.Context) (V, error)

// IdleTimeout is how long a view model is kept after its owner last
// touched it. Owners that log out are dropped at once.
const IdleTimeout = 2 * time.Hour

type entry[V any] struct {
	mu     sync.Mutex
	value  V
	loaded bool
	used   time.Time
}

// Registry keeps one view model of type V per owner (a user id or admin id).
// Entering a view replaces the held model with a fresh load.
type Registry[V any] struct {
	mu        sync.Mutex
	entries   map[string]*entry[V]
	nextSweep time.Time
	now       func() time.Time
}

func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{
		entries: make(map[string]*entry[V]),
		now:     time.Now,
	}
}

func (r *Registry[V]) entry(owner string) *entry[V] {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.After(r.nextSweep) {
		r.sweep(now)
	}

	e, ok := r.entries[owner]
	if !ok {
		e = &entry[V]{}
		r.entries[owner] = e
	}
	e.used = now
	return e
}

// sweep drops models idle for longer than IdleTimeout. Callers hold r.mu.
func (r *Registry[V]) sweep(now time.Time) {
	for owner, e := range r.entries {
		if now.Sub(e.used) > IdleTimeout {
			delete(r.entries, owner)
		}
	}
	r.nextSweep = now.Add(IdleTimeout)
}

// Enter loads the view and replaces whatever the owner held before.
// On load failure the previous model is kept.
func (r *Registry[V]) Enter(ctx context.Context, owner string, load Loader[V]) (V, error) {
	e := r.entry(owner)
	v, err := load(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		return e.value, err
	}
	e.value = v
	e.loaded = true
	return e.value, nil
}

// Read runs fn against the held model. It returns ErrNotFound when the
// owner has not entered the view yet.
func (r *Registry[V]) Read(owner string, fn func(v V)) error {
	e := r.entry(owner)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return errors.ErrNotFound
	}
	fn(e.value)
	return nil
}

// Update mutates the held model under the owner's lock.
func (r *Registry[V]) Update(owner string, fn func(v *V) error) error {
	e := r.entry(owner)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return errors.ErrNotFound
	}
	return fn(&e.value)
}

// Drop forgets the owner's model. Used on logout.
func (r *Registry[V]) Drop(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, owner)
}
