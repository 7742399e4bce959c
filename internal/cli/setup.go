package cli

import (
	"context"
	"log/slog"
	"time"

	"intellab-testing/config"
	"intellab-testing/internal/output"
	"intellab-testing/utils/logger"
	"intellab-testing/utils/otel"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// session bundles what every load-test command needs.
type session struct {
	runID    string
	cfg      *config.Config
	log      *slog.Logger
	printer  *output.Printer
	otel     otel.Config
	shutdown otel.ShutdownFunc
}

// setup loads configuration and starts telemetry and logging. Logs go to
// the command's stderr so stdout carries only the report.
func setup(cmd *cobra.Command) (*session, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(scenarioFile)
	if err != nil {
		return nil, err
	}

	mode := output.ColorAuto
	if noColor {
		mode = output.ColorNever
	}
	printer := output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(mode))

	otelCfg := otel.ConfigFromEnv()
	otelCfg.ServiceVersion = version
	shutdown, err := otel.InitProvider(cmd.Context(), otelCfg)
	if err != nil {
		printer.Warning("OpenTelemetry disabled: %v", err)
		otelCfg.Enabled = false
		shutdown = func(context.Context) error { return nil }
	}

	runID := uuid.NewString()
	log := logger.Init(cmd.ErrOrStderr(), logger.Options{
		Level:      cfg.LogLevel,
		EnableOTel: otelCfg.Enabled,
		Attrs:      []slog.Attr{slog.String("run_id", runID)},
	})
	log.Debug("configuration loaded",
		"api_url", cfg.APIURL,
		"scenario", cfg.Scenario.Name,
		"cache_backend", cfg.CacheBackend,
		"iteration_interval", cfg.IterationInterval.String(),
		"request_timeout", cfg.RequestTimeout.String())

	return &session{runID: runID, cfg: cfg, log: log, printer: printer, otel: otelCfg, shutdown: shutdown}, nil
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		s.printer.Warning("failed to shutdown OpenTelemetry: %v", err)
	}
}
