package services

// Result is the outcome of one upstream call: a value or the reason there is none.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// ValueOr returns the value, or def when the call failed.
func (r Result[T]) ValueOr(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}
