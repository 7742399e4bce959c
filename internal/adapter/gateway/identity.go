package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"intellab-testing/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	loginPath   = "/identity/auth/login"
	profilePath = "/identity/profile/me"
)

// loginRequest is the body of the login call.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse holds the fields read from the login response.
type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// profileResponse holds the fields read from the profile response.
type profileResponse struct {
	UserID string `json:"userId"`
}

// IdentityGateway implements domain.IdentityGateway over plain HTTP.
type IdentityGateway struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewTransport returns the tuned transport shared by the gateways.
func NewTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewIdentityGateway creates a gateway for the identity API at baseURL.
// A nil transport selects NewTransport.
func NewIdentityGateway(baseURL string, timeout time.Duration, transport http.RoundTripper) *IdentityGateway {
	if transport == nil {
		transport = NewTransport()
	}

	return &IdentityGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		tracer: otel.Tracer("intellab-testing/gateway"),
	}
}

// Login submits the credentials and returns the access token.
func (g *IdentityGateway) Login(ctx context.Context, creds domain.Credentials) (domain.StepResponse, error) {
	ctx, span := g.tracer.Start(ctx, "auth.login")
	defer span.End()

	body, err := json.Marshal(loginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return domain.StepResponse{}, fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return domain.StepResponse{}, fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out loginResponse
	status, err := g.do(req, &out)
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	resp := domain.StepResponse{StatusCode: status, Value: out.AccessToken}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return resp, fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
	}
	if out.AccessToken == "" {
		span.SetStatus(codes.Error, "no access token")
		return resp, fmt.Errorf("%w: no access token received", domain.ErrAuthenticationFailed)
	}

	return resp, nil
}

// FetchProfile returns the user id of the token's owner.
func (g *IdentityGateway) FetchProfile(ctx context.Context, token string) (domain.StepResponse, error) {
	ctx, span := g.tracer.Start(ctx, "auth.profile")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+profilePath, nil)
	if err != nil {
		return domain.StepResponse{}, fmt.Errorf("%w: %w", domain.ErrProfileFetchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var out profileResponse
	status, err := g.do(req, &out)
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	resp := domain.StepResponse{StatusCode: status, Value: out.UserID}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return resp, fmt.Errorf("%w: %w", domain.ErrProfileFetchFailed, err)
	}
	if out.UserID == "" {
		span.SetStatus(codes.Error, "no user id")
		return resp, fmt.Errorf("%w: no user id in profile", domain.ErrProfileFetchFailed)
	}

	return resp, nil
}

// do executes req and decodes a 200 JSON body into out. The status code is
// returned even when decoding fails.
func (g *IdentityGateway) do(req *http.Request, out any) (int, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("%s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}

	return resp.StatusCode, nil
}
