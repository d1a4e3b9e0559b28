package services

import "reflect"

// KeyOf returns the registry key for T.
func KeyOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Add stores v as the T service in r. It returns false if r already holds a T.
func Add[T any](r *Registry, v T) bool {
	return r.AddValue(KeyOf[T](), v)
}

// Replace stores v as the T service in r, overwriting any local entry.
func Replace[T any](r *Registry, v T) bool {
	return r.ReplaceValue(KeyOf[T](), v)
}

// Remove deletes the local T service from r.
func Remove[T any](r *Registry) bool {
	return r.RemoveValue(KeyOf[T]())
}

// TryGet looks up the T service, walking up the scope chain.
func TryGet[T any](s Reader) (T, bool) {
	v, ok := s.LookupValue(KeyOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Get looks up the T service and returns a *NotFoundError if it is absent.
func Get[T any](s Reader) (T, error) {
	v, ok := TryGet[T](s)
	if !ok {
		return v, &NotFoundError{Type: KeyOf[T]()}
	}
	return v, nil
}

// MustGet is Get for services whose absence is a programming error.
func MustGet[T any](s Reader) T {
	v, err := Get[T](s)
	if err != nil {
		panic(err)
	}
	return v
}
