package pointer

// Ref returns a pointer to t. Useful to point at literals.
func Ref[T any](t T) *T {
	return &t
}
