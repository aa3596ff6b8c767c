package views

import (
	"context"
	stderrors "errors"
)

// Mutation is a two-phase change: Apply edits the held model immediately,
// Commit sends the change to the backend. If Commit fails the model is
// reloaded through Reload instead of being rolled back field by field.
type Mutation[V any] struct {
	Apply  func(v *V) error
	Commit func(ctx context.Context) error
	Reload Loader[V]
}

// Optimistic runs m for owner. A nil Apply makes it a plain commit that
// only touches the model on failure.
func Optimistic[V any](ctx context.Context, r *Registry[V], owner string, m Mutation[V]) error {
	if m.Apply != nil {
		if err := r.Update(owner, m.Apply); err != nil {
			return err
		}
	}

	err := m.Commit(ctx)
	if err == nil {
		return nil
	}

	if m.Reload != nil {
		if _, rerr := r.Enter(ctx, owner, m.Reload); rerr != nil {
			return stderrors.Join(err, rerr)
		}
	}
	return err
}
