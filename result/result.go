// Package result provides a two-variant success/failure container.
//
// A Result holds either a value or an error, never both and never
// neither. Callers observe it with [Result.Fold], [Result.Get] or the
// [Map] and [FlatMap] combinators:
//
//	r := result.Success(42)
//	s := result.Map(r, strconv.Itoa)
//	s.Fold(
//		func(v string) { fmt.Println("ok:", v) },
//		func(err error) { fmt.Println("failed:", err) },
//	)
package result

import (
	"errors"
	"fmt"
)

// ErrNilFailure is stored in place of a nil error passed to [Failure].
var ErrNilFailure = errors.New("failure with nil error")

// Result is either a Success carrying a value of T or a Failure carrying
// an error. The zero value is a Failure wrapping ErrNilFailure.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Success returns a Result holding v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure returns a Result holding err. A nil err is replaced with
// ErrNilFailure so a Failure always carries an error.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = ErrNilFailure
	}
	return Result[T]{err: err}
}

// Of builds a Result from a conventional (value, error) pair.
func Of[T any](v T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

// IsSuccess reports whether r holds a value.
func (r Result[T]) IsSuccess() bool { return r.ok }

// IsFailure reports whether r holds an error.
func (r Result[T]) IsFailure() bool { return !r.ok }

// Get returns the value and error in the usual Go shape.
func (r Result[T]) Get() (T, error) {
	if !r.ok {
		var zero T
		return zero, r.Err()
	}
	return r.value, nil
}

// Value returns the success value, or the zero value of T on failure.
func (r Result[T]) Value() T {
	if !r.ok {
		var zero T
		return zero
	}
	return r.value
}

// Err returns the failure error, or nil on success.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	if r.err == nil {
		return ErrNilFailure
	}
	return r.err
}

// OrElse returns the success value or fallback.
func (r Result[T]) OrElse(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.value
}

// Fold invokes exactly one of onSuccess or onFailure.
func (r Result[T]) Fold(onSuccess func(T), onFailure func(error)) {
	if r.ok {
		if onSuccess != nil {
			onSuccess(r.value)
		}
		return
	}
	if onFailure != nil {
		onFailure(r.Err())
	}
}

func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Success(%v)", r.value)
	}
	return fmt.Sprintf("Failure(%v)", r.Err())
}

// Fold collapses r into a single value of U.
func Fold[T, U any](r Result[T], onSuccess func(T) U, onFailure func(error) U) U {
	if r.ok {
		return onSuccess(r.value)
	}
	return onFailure(r.Err())
}

// Map transforms the success value of r, passing failures through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Failure[U](r.Err())
	}
	return Success(fn(r.value))
}

// FlatMap chains a fallible step onto r, passing failures through.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if !r.ok {
		return Failure[U](r.Err())
	}
	return fn(r.value)
}

// Recover turns a failure into a new Result via fn. Successes pass
// through untouched.
func Recover[T any](r Result[T], fn func(error) Result[T]) Result[T] {
	if r.ok {
		return r
	}
	return fn(r.Err())
}
