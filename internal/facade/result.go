package facade

// Result reports whether a backend supports an operation and, when it does,
// carries the operation's outcome. Backends return Unsupported instead of
// erroring so callers can fall through to the next backend in a chain.
type Result[T any] struct {
	value     T
	supported bool
}

// Supported wraps an outcome produced by a backend.
func Supported[T any](value T) Result[T] {
	return Result[T]{value: value, supported: true}
}

// Unsupported marks an operation the backend does not implement.
func Unsupported[T any]() Result[T] {
	return Result[T]{}
}

// IsSupported reports whether the backend handled the operation.
func (r Result[T]) IsSupported() bool {
	return r.supported
}

// Value returns the wrapped outcome. Calling Value on an unsupported result
// is a programming error and panics; branch on IsSupported or use Get.
func (r Result[T]) Value() T {
	if !r.supported {
		panic("facade: Value called on unsupported result")
	}
	return r.value
}

// Get returns the outcome together with the supported flag.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.supported
}
