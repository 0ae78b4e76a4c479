package apimodel

// Optional is a tri-state wire value: unset (the zero value), explicit null,
// or set. It lets model types keep "field absent" apart from "field: null".
type Optional[T any] struct {
	value T
	state optState
}

type optState uint8

const (
	optUnset optState = iota
	optNull
	optSet
)

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, state: optSet} }

// Null returns an Optional that was present on the wire with a null value.
func Null[T any]() Optional[T] { return Optional[T]{state: optNull} }

// Unset returns the absent Optional. It equals the zero value.
func Unset[T any]() Optional[T] { return Optional[T]{} }

// IsPresent reports whether the value appeared at all (null or set).
func (o Optional[T]) IsPresent() bool { return o.state != optUnset }

// IsNull reports whether the value was explicitly null.
func (o Optional[T]) IsNull() bool { return o.state == optNull }

// IsSet reports whether a non-null value is held.
func (o Optional[T]) IsSet() bool { return o.state == optSet }

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) { return o.value, o.state == optSet }

// OrElse returns the value when set and def otherwise.
func (o Optional[T]) OrElse(def T) T {
	if o.state == optSet {
		return o.value
	}
	return def
}

// Presence projects the state onto presence bits.
func (o Optional[T]) Presence() Presence {
	switch o.state {
	case optNull:
		return PresenceSeen | PresenceWasNull
	case optSet:
		return PresenceSeen
	}
	return 0
}

// Map applies fn to a set value and keeps unset/null states.
func Map[T, U any](o Optional[T], fn func(T) U) Optional[U] {
	switch o.state {
	case optSet:
		return Some(fn(o.value))
	case optNull:
		return Null[U]()
	}
	return Unset[U]()
}
