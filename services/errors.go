package services

import "errors"

var (
	// ErrInvalidNetwork is returned for a network outside the allow-list.
	ErrInvalidNetwork = errors.New("invalid network parameter")

	// ErrHostNotAllowed is the pRPC host's "Host not allowed" rejection.
	ErrHostNotAllowed = errors.New("host not allowed")

	// ErrTooFewPods means a pRPC response did not clear the qualification threshold.
	ErrTooFewPods = errors.New("too few pods in response")

	// ErrUpstreamStatus wraps a non-2xx upstream response.
	ErrUpstreamStatus = errors.New("upstream returned non-success status")

	// ErrNoCandidates is returned by FirstQualifying for an empty candidate list.
	ErrNoCandidates = errors.New("no candidates configured")
)
