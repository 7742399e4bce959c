package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"intellab-testing/internal/domain"

	"golang.org/x/time/rate"
)

// AuthCache performs the login handshake at most once per successful
// population and shares the resulting session with every caller.
//
// No lock is held across the handshake: concurrent first-time callers may
// each log in. The store keeps whichever session lands first.
type AuthCache struct {
	gateway  domain.IdentityGateway
	store    domain.SessionStore
	creds    domain.Credentials
	tokens   domain.TokenInspector
	recorder domain.Recorder
	limiter  *rate.Limiter
	logger   *slog.Logger

	handshakes atomic.Uint64
	hits       atomic.Uint64
	populated  atomic.Bool

	mu          sync.Mutex
	state       domain.CacheState
	expiresAt   time.Time
	lastFailure time.Time
	lastErr     string
}

// AuthCacheOption configures an AuthCache.
type AuthCacheOption func(*AuthCache)

// WithRecorder sets the sink for checks and handshake events.
func WithRecorder(r domain.Recorder) AuthCacheOption {
	return func(c *AuthCache) { c.recorder = r }
}

// WithTokenInspector sets the decoder used to read token expiry.
func WithTokenInspector(t domain.TokenInspector) AuthCacheOption {
	return func(c *AuthCache) { c.tokens = t }
}

// WithHandshakeLimit caps handshake attempts while the cache is empty.
// A non-positive limit leaves attempts unlimited.
func WithHandshakeLimit(limit rate.Limit, burst int) AuthCacheOption {
	return func(c *AuthCache) {
		if limit <= 0 || limit == rate.Inf {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(limit, max(burst, 1))
	}
}

// NewAuthCache creates an empty cache for creds backed by store.
func NewAuthCache(g domain.IdentityGateway, s domain.SessionStore, creds domain.Credentials, l *slog.Logger, opts ...AuthCacheOption) *AuthCache {
	c := &AuthCache{
		gateway:  g,
		store:    s,
		creds:    creds,
		recorder: nopRecorder{},
		logger:   l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire returns the cached session, performing the handshake when the
// cache is empty. On a profile failure the returned session carries the
// token with an empty identity. Failures never populate the cache.
func (c *AuthCache) Acquire(ctx context.Context) (domain.AuthSession, error) {
	cached, found, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "session store read failed", "error", err)
		return domain.AuthSession{}, err
	}
	if found {
		c.hits.Add(1)
		c.recorder.RecordCacheHit()
		if !c.populated.Load() {
			// First hit on a session another process or worker cached.
			c.markPopulated(cached)
		}
		return cached, nil
	}

	if !c.creds.Complete() {
		c.logger.ErrorContext(ctx, "TESTER_EMAIL and TESTER_PASSWORD environment variables must be set")
		return domain.AuthSession{}, fmt.Errorf("%w: tester credentials not set", domain.ErrConfiguration)
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.recorder.RecordHandshake(domain.HandshakeThrottled)
		return domain.AuthSession{}, fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, domain.ErrHandshakeThrottled)
	}

	return c.handshake(ctx)
}

// handshake runs login then profile fetch and caches the result.
func (c *AuthCache) handshake(ctx context.Context) (domain.AuthSession, error) {
	c.handshakes.Add(1)

	login, err := c.gateway.Login(ctx, c.creds)
	c.recorder.RecordCheck(domain.CheckLoggedIn, login.StatusCode == http.StatusOK)
	if err != nil {
		c.markFailed(err)
		c.recorder.RecordHandshake(domain.HandshakeLoginFailed)
		c.logger.ErrorContext(ctx, "login failed, no access token received",
			"status", login.StatusCode,
			"error", err)
		return domain.AuthSession{}, err
	}

	session := domain.AuthSession{Token: login.Value}

	profile, err := c.gateway.FetchProfile(ctx, login.Value)
	c.recorder.RecordCheck(domain.CheckProfileFetched, profile.StatusCode == http.StatusOK)
	if err != nil {
		c.markFailed(err)
		c.recorder.RecordHandshake(domain.HandshakeProfileFailed)
		c.logger.ErrorContext(ctx, "failed to get user id from profile",
			"status", profile.StatusCode,
			"error", err)
		return session, err
	}

	session.Identity = profile.Value
	if c.tokens != nil {
		if exp, ok := c.tokens.ExpiresAt(session.Token); ok {
			session.ExpiresAt = exp
		}
	}

	stored, err := c.store.StoreIfEmpty(ctx, session)
	if err != nil {
		// The session is still valid for this caller.
		c.logger.WarnContext(ctx, "failed to cache session", "error", err)
		c.recorder.RecordHandshake(domain.HandshakeSucceeded)
		return session, nil
	}

	c.markPopulated(stored)
	c.recorder.RecordHandshake(domain.HandshakeSucceeded)
	c.logger.InfoContext(ctx, "auth session cached",
		"user_id", stored.Identity,
		"expires_at", stored.ExpiresAt)

	return stored, nil
}

// SetAuthData caches token and identity directly, replacing any cached
// session without a handshake.
func (c *AuthCache) SetAuthData(ctx context.Context, token, identity string) error {
	session := domain.AuthSession{Token: token, Identity: identity}
	if c.tokens != nil {
		if exp, ok := c.tokens.ExpiresAt(token); ok {
			session.ExpiresAt = exp
		}
	}

	if err := c.store.Overwrite(ctx, session); err != nil {
		return err
	}
	c.markPopulated(session)
	return nil
}

// Status returns a snapshot of the cache for reporting.
func (c *AuthCache) Status() domain.CacheStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.CacheStatus{
		State:       c.state,
		ExpiresAt:   c.expiresAt,
		LastFailure: c.lastFailure,
		LastError:   c.lastErr,
		Handshakes:  c.handshakes.Load(),
		Hits:        c.hits.Load(),
	}
}

func (c *AuthCache) markPopulated(s domain.AuthSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = domain.StatePopulated
	c.expiresAt = s.ExpiresAt
	c.populated.Store(true)
}

func (c *AuthCache) markFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A concurrent caller may have populated the store already.
	if c.state != domain.StatePopulated {
		c.state = domain.StateFailed
	}
	c.lastFailure = time.Now()
	c.lastErr = err.Error()
}

// nopRecorder discards all events.
type nopRecorder struct{}

func (nopRecorder) RecordCheck(string, bool)                {}
func (nopRecorder) RecordHandshake(domain.HandshakeOutcome) {}
func (nopRecorder) RecordCacheHit()                         {}
func (nopRecorder) RecordIteration(bool)                    {}
