package cli

import (
	"fmt"
	"log/slog"
	"net/http"

	"intellab-testing/config"
	"intellab-testing/internal/adapter/gateway"
	"intellab-testing/internal/domain"
	"intellab-testing/internal/harness"
	"intellab-testing/internal/infrastructure/cache"
	"intellab-testing/internal/infrastructure/token"
	"intellab-testing/internal/usecase"

	"golang.org/x/time/rate"
)

// app holds the wired components of one run.
type app struct {
	cfg        *config.Config
	collector  *harness.Collector
	client     *http.Client
	auth       *usecase.AuthCache
	submit     *usecase.SubmitCode
	pacer      harness.StagePacer
	thresholds []harness.Threshold
	closers    []func() error
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	pacer, err := harness.NewStagePacer(cfg.Scenario.Stages, cfg.IterationInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	thresholds, err := harness.ParseThresholds(cfg.Scenario.Thresholds)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, collector: harness.NewCollector(), pacer: pacer, thresholds: thresholds}

	var store domain.SessionStore
	switch cfg.CacheBackend {
	case config.BackendRedis:
		rs, err := cache.NewRedisSessionStore(cfg.RedisURL, cfg.CacheKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
	default:
		store = cache.NewSessionStore()
	}

	// Handshakes and submissions share one instrumented client, so both
	// count towards the run metrics with request-only latencies.
	a.client = harness.NewClient(gateway.NewTransport(), a.collector, cfg.RequestTimeout)
	identity := gateway.NewIdentityGateway(cfg.APIURL, cfg.RequestTimeout, a.client.Transport)

	a.auth = usecase.NewAuthCache(identity, store, cfg.Credentials, log,
		usecase.WithRecorder(a.collector),
		usecase.WithTokenInspector(token.NewJWTInspector()),
		usecase.WithHandshakeLimit(rate.Limit(cfg.HandshakeRate), cfg.HandshakeBurst),
	)
	a.submit = usecase.NewSubmitCode(a.auth,
		gateway.NewSubmissionTargets(cfg.APIURL),
		cfg.Scenario.Submission.Template(),
		cfg.IterationInterval,
		a.collector,
		log,
	)

	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}
