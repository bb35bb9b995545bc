package utils

// Value dereferences v, returning the zero value when v is nil. Partial
// updates use it to read optional fields.
func Value[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Ptr returns a pointer to a copy of v, for filling optional fields from literals.
func Ptr[T any](v T) *T {
	return &v
}
