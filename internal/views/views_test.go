package views

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
)

type item struct {
	ID    int64
	Name  string
	Email string
	Flag  bool
}

func newItems() *List[item] {
	return NewList([]item{
		{ID: 1, Name: "Asha Rao", Email: "asha@example.com"},
		{ID: 2, Name: "Ben Ode", Email: "ben@shop.io"},
		{ID: 3, Name: "Chen Li", Email: "chen@example.com", Flag: true},
	}, func(i item) int64 { return i.ID }, func(i item) []string { return []string{i.Name, i.Email} })
}

func TestList_Filter(t *testing.T) {
	l := newItems()

	assert.Len(t, l.Filter(""), 3)
	assert.Len(t, l.Filter("EXAMPLE"), 2)
	assert.Len(t, l.Filter("  ben "), 1)
	assert.Empty(t, l.Filter("zzz"))
	assert.Len(t, l.Where("example", func(i item) bool { return i.Flag }), 1)
}

func TestList_PatchAndRemove(t *testing.T) {
	l := newItems()

	assert.True(t, l.Patch(2, func(i *item) { i.Flag = true }))
	got, ok := l.Find(2)
	require.True(t, ok)
	assert.True(t, got.Flag)

	assert.False(t, l.Patch(99, func(i *item) {}))
	assert.True(t, l.Remove(1))
	assert.False(t, l.Remove(1))
	assert.Equal(t, 2, l.Len())
}

func TestRegistry_ReadBeforeEnter(t *testing.T) {
	r := NewRegistry[int]()
	err := r.Read("u1", func(int) {})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRegistry_EnterKeepsPreviousOnFailure(t *testing.T) {
	r := NewRegistry[int]()
	ctx := context.Background()

	v, err := r.Enter(ctx, "u1", func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = r.Enter(ctx, "u1", func(context.Context) (int, error) { return 0, stderrors.New("down") })
	assert.Error(t, err)
	assert.Equal(t, 5, v)
}

func TestRegistry_Drop(t *testing.T) {
	r := NewRegistry[int]()
	_, err := r.Enter(context.Background(), "u1", func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)

	r.Drop("u1")

	err = r.Read("u1", func(int) {})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRegistry_IdleModelsExpire(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRegistry[int]()
	r.now = func() time.Time { return now }
	ctx := context.Background()
	load := func(context.Context) (int, error) { return 1, nil }

	_, _ = r.Enter(ctx, "idle", load)
	_, _ = r.Enter(ctx, "busy", load)

	now = now.Add(IdleTimeout / 2)
	assert.NoError(t, r.Read("busy", func(int) {}))

	now = now.Add(IdleTimeout/2 + time.Minute)
	assert.NoError(t, r.Read("busy", func(int) {}))
	assert.Len(t, r.entries, 1)
	assert.True(t, errors.Is(r.Read("idle", func(int) {}), errors.ErrNotFound))
}

func TestOptimistic_ReloadsOnCommitFailure(t *testing.T) {
	r := NewRegistry[[]string]()
	ctx := context.Background()
	_, err := r.Enter(ctx, "u1", func(context.Context) ([]string, error) { return []string{"Placed"}, nil })
	require.NoError(t, err)

	reloads := 0
	err = Optimistic(ctx, r, "u1", Mutation[[]string]{
		Apply: func(v *[]string) error {
			(*v)[0] = "Cancelled"
			return nil
		},
		Commit: func(context.Context) error { return stderrors.New("backend down") },
		Reload: func(context.Context) ([]string, error) {
			reloads++
			return []string{"Placed"}, nil
		},
	})

	assert.EqualError(t, err, "backend down")
	assert.Equal(t, 1, reloads)
	_ = r.Read("u1", func(v []string) { assert.Equal(t, "Placed", v[0]) })
}

func TestOptimistic_KeepsAppliedStateOnSuccess(t *testing.T) {
	r := NewRegistry[[]string]()
	ctx := context.Background()
	_, _ = r.Enter(ctx, "u1", func(context.Context) ([]string, error) { return []string{"Placed"}, nil })

	err := Optimistic(ctx, r, "u1", Mutation[[]string]{
		Apply: func(v *[]string) error {
			(*v)[0] = "Cancelled"
			return nil
		},
		Commit: func(context.Context) error { return nil },
		Reload: func(context.Context) ([]string, error) {
			t.Fatal("reload must not run on success")
			return nil, nil
		},
	})

	require.NoError(t, err)
	_ = r.Read("u1", func(v []string) { assert.Equal(t, "Cancelled", v[0]) })
}

func TestOptimistic_ApplyErrorSkipsCommit(t *testing.T) {
	r := NewRegistry[int]()
	_, _ = r.Enter(context.Background(), "u1", func(context.Context) (int, error) { return 1, nil })

	err := Optimistic(context.Background(), r, "u1", Mutation[int]{
		Apply:  func(*int) error { return errors.NewValidationError("reason", "required") },
		Commit: func(context.Context) error { t.Fatal("commit must not run"); return nil },
	})

	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}
