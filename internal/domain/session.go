package domain

import "time"

// Credentials are the tester account used for the login handshake.
type Credentials struct {
	Email    string
	Password string
}

// Complete reports whether both halves of the credentials are present.
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// AuthSession is the access token and subject identifier produced by a
// successful handshake. A zero field means that step did not succeed.
type AuthSession struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
	// ExpiresAt is decoded from the token when it is a JWT. It is
	// informational only: a cached session never expires.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Usable reports whether both token and identity are present.
func (s AuthSession) Usable() bool {
	return s.Token != "" && s.Identity != ""
}

// CacheState describes the lifecycle of the auth cache.
type CacheState int

const (
	// StateEmpty means no handshake has been attempted.
	StateEmpty CacheState = iota
	// StatePopulated means a session is cached.
	StatePopulated
	// StateFailed means the last handshake attempt failed and nothing is cached.
	StateFailed
)

func (s CacheState) String() string {
	switch s {
	case StatePopulated:
		return "populated"
	case StateFailed:
		return "failed"
	default:
		return "empty"
	}
}

// CacheStatus is a point-in-time view of the auth cache.
type CacheStatus struct {
	State       CacheState
	ExpiresAt   time.Time
	LastFailure time.Time
	LastError   string
	Handshakes  uint64
	Hits        uint64
}

// HandshakeOutcome labels the result of one handshake attempt.
type HandshakeOutcome string

const (
	HandshakeSucceeded     HandshakeOutcome = "success"
	HandshakeLoginFailed   HandshakeOutcome = "login_failed"
	HandshakeProfileFailed HandshakeOutcome = "profile_failed"
	HandshakeThrottled     HandshakeOutcome = "throttled"
)
