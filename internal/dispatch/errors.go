package dispatch

import "errors"

// Error codes written to the delivery log.
const (
	codeNoDestination = "no_destination"
	codeUnverified    = "unverified_destination"
	codeNotConfigured = "channel_not_configured"
	codeProviderError = "provider_error"
)

var (
	errNoDestination = errors.New("no destination configured for channel")
	errUnverified    = errors.New("destination not verified")
	errNotConfigured = errors.New("channel provider not configured")
)
