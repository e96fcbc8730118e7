package core

import "errors"

// Closed taxonomy for provider failures. Adapters translate their service's
// error surface into these so callers never branch on provider-specific
// names or substrings.
var (
	// ErrAgentNotConfigured means no agent identity is set. Degraded mode,
	// not a failure.
	ErrAgentNotConfigured = errors.New("agent not configured")

	// ErrUpstreamNotFound means the referenced remote resource is missing.
	ErrUpstreamNotFound = errors.New("upstream resource not found")
)
