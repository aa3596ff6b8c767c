package views

import "strings"

// List is a fully loaded entity list filtered and patched in memory.
type List[T any] struct {
	items  []T
	id     func(T) int64
	fields func(T) []string
}

// NewList wraps items. id identifies an item; fields returns the text
// searched by Filter.
func NewList[T any](items []T, id func(T) int64, fields func(T) []string) *List[T] {
	copied := make([]T, len(items))
	copy(copied, items)
	return &List[T]{items: copied, id: id, fields: fields}
}

func (l *List[T]) Len() int { return len(l.items) }

// Items returns a copy of the held items in their original order.
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Filter returns the items where any searched field contains query,
// ignoring case. An empty query matches everything.
func (l *List[T]) Filter(query string) []T {
	return l.Where(query, nil)
}

// Where is Filter with an additional predicate.
func (l *List[T]) Where(query string, keep func(T) bool) []T {
	out := make([]T, 0, len(l.items))
	for _, item := range l.items {
		if keep != nil && !keep(item) {
			continue
		}
		if Matches(query, l.fields(item)...) {
			out = append(out, item)
		}
	}
	return out
}

// Find returns the item with the given id.
func (l *List[T]) Find(id int64) (T, bool) {
	for _, item := range l.items {
		if l.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Patch applies fn to the item with the given id.
func (l *List[T]) Patch(id int64, fn func(*T)) bool {
	for i := range l.items {
		if l.id(l.items[i]) == id {
			fn(&l.items[i])
			return true
		}
	}
	return false
}

// Remove drops the item with the given id.
func (l *List[T]) Remove(id int64) bool {
	for i := range l.items {
		if l.id(l.items[i]) == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Matches reports whether any field contains query, ignoring case.
func Matches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
