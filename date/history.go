package date

import (
	"iter"
	"slices"
)

type entry[T any] struct {
	day   Date
	value T
}

// History is a series of values indexed by day, kept sorted with at most one
// value per day. The zero value is an empty history.
type History[T any] struct {
	entries []entry[T]
}

// search returns the position of day, or where it would be inserted.
func (h *History[T]) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(h.entries, day, func(e entry[T], d Date) int { return e.day.Compare(d) })
}

// Set records value on day, replacing the value already recorded that day.
func (h *History[T]) Set(day Date, value T) {
	i, found := h.search(day)
	if found {
		h.entries[i].value = value
		return
	}
	h.entries = slices.Insert(h.entries, i, entry[T]{day, value})
}

// Len returns the number of days with a value.
func (h *History[T]) Len() int { return len(h.entries) }

// Get returns the value recorded exactly on day.
func (h *History[T]) Get(day Date) (T, bool) {
	if i, found := h.search(day); found {
		return h.entries[i].value, true
	}
	var zero T
	return zero, false
}

// AsOf returns the value in effect on day: the one recorded that day, or else
// the latest one before. It also returns the day that value was recorded.
func (h *History[T]) AsOf(day Date) (Date, T, bool) {
	i, found := h.search(day)
	if !found {
		i--
	}
	if i < 0 {
		var zero T
		return Date{}, zero, false
	}
	return h.entries[i].day, h.entries[i].value, true
}

// Latest returns the most recent entry.
func (h *History[T]) Latest() (Date, T, bool) {
	if len(h.entries) == 0 {
		var zero T
		return Date{}, zero, false
	}
	e := h.entries[len(h.entries)-1]
	return e.day, e.value, true
}

// All iterates over the entries in chronological order.
func (h *History[T]) All() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for _, e := range h.entries {
			if !yield(e.day, e.value) {
				return
			}
		}
	}
}
