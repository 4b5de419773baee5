package currency

import "errors"

var (
	// ErrValidation is returned for rejected caller input: excluded or unknown
	// currencies, malformed codes, invalid dates or pagination.
	ErrValidation = errors.New("validation error")

	// ErrUpstreamData is returned when the upstream answered with an empty,
	// malformed or incomplete body, or rejected the request as a client error.
	ErrUpstreamData = errors.New("upstream data error")

	// ErrUpstreamUnavailable is returned when transient failures exhausted the
	// retries or the circuit breaker rejected the call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("configuration error")
)
