package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"intellab-testing/internal/domain"
)

// mockGateway implements domain.IdentityGateway with fixed responses.
type mockGateway struct {
	loginStatus   int
	loginToken    string
	profileStatus int
	profileUserID string

	loginCalls   atomic.Int32
	profileCalls atomic.Int32
	lastToken    atomic.Value
}

func newOKGateway() *mockGateway {
	return &mockGateway{
		loginStatus:   http.StatusOK,
		loginToken:    "abc",
		profileStatus: http.StatusOK,
		profileUserID: "u1",
	}
}

func (m *mockGateway) Login(_ context.Context, _ domain.Credentials) (domain.StepResponse, error) {
	m.loginCalls.Add(1)
	resp := domain.StepResponse{StatusCode: m.loginStatus}
	if m.loginStatus != http.StatusOK {
		return resp, fmt.Errorf("%w: status %d", domain.ErrAuthenticationFailed, m.loginStatus)
	}
	resp.Value = m.loginToken
	if m.loginToken == "" {
		return resp, fmt.Errorf("%w: no access token received", domain.ErrAuthenticationFailed)
	}
	return resp, nil
}

func (m *mockGateway) FetchProfile(_ context.Context, token string) (domain.StepResponse, error) {
	m.profileCalls.Add(1)
	m.lastToken.Store(token)
	resp := domain.StepResponse{StatusCode: m.profileStatus}
	if m.profileStatus != http.StatusOK {
		return resp, fmt.Errorf("%w: status %d", domain.ErrProfileFetchFailed, m.profileStatus)
	}
	resp.Value = m.profileUserID
	return resp, nil
}

// failingStore implements domain.SessionStore and fails every call.
type failingStore struct{}

func (failingStore) Load(context.Context) (domain.AuthSession, bool, error) {
	return domain.AuthSession{}, false, domain.ErrStoreUnavailable
}

func (failingStore) StoreIfEmpty(context.Context, domain.AuthSession) (domain.AuthSession, error) {
	return domain.AuthSession{}, domain.ErrStoreUnavailable
}

func (failingStore) Overwrite(context.Context, domain.AuthSession) error {
	return domain.ErrStoreUnavailable
}

// mockRecorder implements domain.Recorder and keeps everything it receives.
type mockRecorder struct {
	mu         sync.Mutex
	checks     map[string][]bool
	handshakes []domain.HandshakeOutcome
	hits       int
	iterations int
	skipped    int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{checks: make(map[string][]bool)}
}

func (r *mockRecorder) RecordCheck(name string, passed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = append(r.checks[name], passed)
}

func (r *mockRecorder) RecordHandshake(outcome domain.HandshakeOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handshakes = append(r.handshakes, outcome)
}

func (r *mockRecorder) RecordCacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *mockRecorder) RecordIteration(skipped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if skipped {
		r.skipped++
		return
	}
	r.iterations++
}

// fixedInspector implements domain.TokenInspector.
type fixedInspector struct {
	exp time.Time
}

func (f fixedInspector) ExpiresAt(string) (time.Time, bool) {
	return f.exp, !f.exp.IsZero()
}
