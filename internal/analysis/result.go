package analysis

// Result is the outcome of one probe: either a report or a failure reason.
type Result[T any] struct {
	value  T
	reason string
	failed bool
}

// Ok wraps a successful report.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure reason.
func Err[T any](reason string) Result[T] {
	if reason == "" {
		reason = "unknown failure"
	}
	return Result[T]{reason: reason, failed: true}
}

// IsErr reports whether the result is a failure.
func (r Result[T]) IsErr() bool { return r.failed }

// Value returns the report; it is the zero value for failures.
func (r Result[T]) Value() T { return r.value }

// Reason returns the failure reason, or "" for successes.
func (r Result[T]) Reason() string { return r.reason }
