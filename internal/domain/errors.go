package domain

import "errors"

// Configuration errors.
var (
	ErrConfiguration = errors.New("configuration error")
)

// Handshake errors.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrProfileFetchFailed   = errors.New("profile fetch failed")
	ErrHandshakeThrottled   = errors.New("handshake attempt throttled")
)

// Session store errors.
var (
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Run outcome errors.
var (
	ErrThresholdsCrossed = errors.New("some thresholds have failed")
)
