package usecase

// Result is the outcome of one pipeline step: either a value or an *Error.
// Steps are composed with Then and Map, so the first failure short-circuits
// every later step.
type Result[T any] struct {
	value T
	err   *Error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

func Err[T any](err *Error) Result[T] {
	if err == nil {
		err = newError(ErrorInternal, "nil_error", nil)
	}
	return Result[T]{err: err}
}

func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the value and whether the result succeeded.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.err == nil
}

// Err returns the failure, or nil on success. The return type is error so a
// successful result never yields a typed-nil interface.
func (r Result[T]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Unwrap converts the result into Go's usual (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.Err()
}

// Then runs next only when r succeeded.
func Then[T, U any](r Result[T], next func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return next(r.value)
}

// Map transforms a successful value.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Ok(f(r.value))
}
