// Package pot provides a tagged load-state container for remotely fetched data.
//
// A Pot tracks whether a value has ever been loaded, whether a load is in
// flight, and the error of the last failed load. Unlike a nullable value plus
// a boolean pair, the tag makes illegal combinations unrepresentable while
// still letting a refresh keep the previously loaded value visible.
package pot

// Pot is the load state of a remotely fetched value of type T.
//
// The zero value is None: never loaded, not loading, no error.
type Pot[T any] struct {
	value    T
	hasValue bool
	loading  bool
	err      error
}

// None returns an empty Pot: no value, not loading.
func None[T any]() Pot[T] {
	return Pot[T]{}
}

// NoneLoading returns a Pot with no value and a load in flight.
func NoneLoading[T any]() Pot[T] {
	return Pot[T]{loading: true}
}

// Some returns a Pot holding a loaded value.
func Some[T any](v T) Pot[T] {
	return Pot[T]{value: v, hasValue: true}
}

// NoneError returns a Pot whose first load failed.
func NoneError[T any](err error) Pot[T] {
	return Pot[T]{err: err}
}

// ToLoading marks a new load in flight, keeping any previously loaded value
// so callers can keep rendering stale data during a refresh.
func ToLoading[T any](p Pot[T]) Pot[T] {
	return Pot[T]{value: p.value, hasValue: p.hasValue, loading: true}
}

// ToError records a failed load, keeping any previously loaded value.
func ToError[T any](p Pot[T], err error) Pot[T] {
	return Pot[T]{value: p.value, hasValue: p.hasValue, err: err}
}

// IsNone reports whether the Pot has never held a value.
func (p Pot[T]) IsNone() bool {
	return !p.hasValue
}

// IsLoading reports whether a load is currently in flight.
func (p Pot[T]) IsLoading() bool {
	return p.loading
}

// IsSome reports whether the Pot holds a loaded value (possibly stale, if a
// refresh is in flight or the last refresh failed).
func (p Pot[T]) IsSome() bool {
	return p.hasValue
}

// IsError reports whether the last load failed.
func (p Pot[T]) IsError() bool {
	return p.err != nil
}

// Value returns the loaded value and whether one is present.
func (p Pot[T]) Value() (T, bool) {
	return p.value, p.hasValue
}

// GetOrElse returns the loaded value, or fallback if none is present.
func (p Pot[T]) GetOrElse(fallback T) T {
	if p.hasValue {
		return p.value
	}
	return fallback
}

// Err returns the error of the last failed load, or nil.
func (p Pot[T]) Err() error {
	return p.err
}
