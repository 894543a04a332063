package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FirstQualifying tries candidates strictly in order, one at a time, and
// returns the first value for which try succeeds together with the candidate
// that produced it. try is expected to reject non-qualifying responses with
// an error. Every attempt gets its own timeout derived from ctx.
func FirstQualifying[T any](ctx context.Context, candidates []string, timeout time.Duration, try func(ctx context.Context, candidate string) (T, error)) (Result[T], string) {
	if len(candidates) == 0 {
		return Fail[T](ErrNoCandidates), ""
	}

	var errs []error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		v, err := try(attemptCtx, candidate)
		cancel()

		if err == nil {
			return Ok(v), candidate
		}
		errs = append(errs, fmt.Errorf("%s: %w", candidate, err))
	}

	return Fail[T](errors.Join(errs...)), ""
}
