package flight

import "reflect"

// Ordnance holds an optional result. A held value that matches one of the
// sentinels counts as empty. The default sentinel is null: nothing loaded, or
// a nil pointer, map, slice, interface or func.
type Ordnance[T any] struct {
	value     T
	held      bool
	nullEmpty bool
	sentinels []func(T) bool
}

// NewOrdnance treats null as empty.
func NewOrdnance[T any]() *Ordnance[T] {
	return &Ordnance[T]{nullEmpty: true}
}

// NewOptionalOrdnance has no sentinels: every held value, null included, deploys.
func NewOptionalOrdnance[T any]() *Ordnance[T] {
	return &Ordnance[T]{}
}

// NewOrdnanceWithSentinels treats null and each of values as empty.
func NewOrdnanceWithSentinels[T comparable](values ...T) *Ordnance[T] {
	o := NewOrdnance[T]()
	for _, v := range values {
		o.sentinels = append(o.sentinels, func(held T) bool { return held == v })
	}
	return o
}

// Load replaces the held value.
func (o *Ordnance[T]) Load(v T) {
	o.value = v
	o.held = true
}

// Loaded reports whether Deploy would succeed.
func (o *Ordnance[T]) Loaded() bool {
	return !o.empty()
}

// Peek returns the held value without consuming it.
func (o *Ordnance[T]) Peek() T {
	return o.value
}

// Deploy returns the held value and clears it. It fails with ErrNoOrdnance
// exactly when the held value is a sentinel, in which case nothing is cleared.
func (o *Ordnance[T]) Deploy() (T, error) {
	if o.empty() {
		var zero T
		return zero, ErrNoOrdnance
	}
	v := o.value
	o.Clear()
	return v, nil
}

func (o *Ordnance[T]) Clear() {
	var zero T
	o.value = zero
	o.held = false
}

func (o *Ordnance[T]) empty() bool {
	if o.nullEmpty && (!o.held || isNil(o.value)) {
		return true
	}
	for _, matches := range o.sentinels {
		if matches(o.value) {
			return true
		}
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
