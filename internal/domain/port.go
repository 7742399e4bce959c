package domain

import (
	"context"
	"time"
)

// StepResponse is the outcome of one handshake request. StatusCode is zero
// when the request never produced a response.
type StepResponse struct {
	StatusCode int
	Value      string
}

// IdentityGateway performs the two handshake steps against the identity API.
type IdentityGateway interface {
	Login(ctx context.Context, creds Credentials) (StepResponse, error)
	FetchProfile(ctx context.Context, token string) (StepResponse, error)
}

// SessionStore holds the cached session shared by all workers.
type SessionStore interface {
	// Load returns the cached session, if any.
	Load(ctx context.Context) (AuthSession, bool, error)
	// StoreIfEmpty caches s unless a session is already present and returns
	// whichever session is cached afterwards.
	StoreIfEmpty(ctx context.Context, s AuthSession) (AuthSession, error)
	// Overwrite unconditionally replaces the cached session.
	Overwrite(ctx context.Context, s AuthSession) error
}

// Recorder receives workload events for the run summary and live metrics.
type Recorder interface {
	RecordCheck(name string, passed bool)
	RecordHandshake(outcome HandshakeOutcome)
	RecordCacheHit()
	RecordIteration(skipped bool)
}

// TokenInspector reads metadata from an opaque access token.
type TokenInspector interface {
	ExpiresAt(token string) (time.Time, bool)
}
