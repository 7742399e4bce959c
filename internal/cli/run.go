package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intellab-testing/internal/adapter/handler"
	"intellab-testing/internal/domain"
	"intellab-testing/internal/harness"
	"intellab-testing/utils/logger"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var summaryJSON string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load test scenario",
	Long: `Run the scenario's stages against API_URL and print a summary.

An iteration that cannot obtain a session (missing credentials, failed
login or profile fetch) is counted as skipped, and its virtual user waits
one ITERATION_INTERVAL before trying again instead of retrying at once,
so a failing identity service sees at most one login per virtual user per
interval. Waiting time never counts towards http_req_duration.

Exits with status 99 when any threshold fails, and 1 on other errors.`,
	Args: cobra.NoArgs,
	RunE: runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&summaryJSON, "summary-json", "", "write the request metrics as JSON to this file")
}

func runScenario(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := newApp(s.cfg, s.log)
	if err != nil {
		return err
	}
	defer a.Close()

	if !s.cfg.Credentials.Complete() {
		s.printer.Warning("TESTER_EMAIL and TESTER_PASSWORD are not set; every iteration will be skipped")
	}

	runner := harness.NewRunner(s.cfg.Scenario.Name, a.pacer, a.collector, logger.NewContextLogger(s.log),
		harness.AttackerOptions(a.pacer, a.client)...)

	s.printer.Info("running %q against %s: %d stages over %v, up to %d VUs (run %s)",
		s.cfg.Scenario.Name, s.cfg.APIURL, len(a.pacer.Stages), a.pacer.Duration(), a.pacer.MaxVUs(), s.runID)

	var (
		snap   harness.Snapshot
		runErr error
	)
	attackDone := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(attackDone)
		snap, runErr = runner.Run(gctx, a.submit.Targeter)
		return nil
	})

	if s.cfg.StatusAddr != "" {
		srv := handler.NewServer(handler.NewStatusHandler(runner, a.collector, a.auth), handler.ServerOptions{
			ServiceName: s.otel.ServiceName,
			EnableOTel:  s.otel.Enabled,
			Logger:      s.log,
		})
		g.Go(func() error {
			s.log.InfoContext(gctx, "status server listening", "address", s.cfg.StatusAddr)
			if err := srv.Start(s.cfg.StatusAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// The run goes on without live status.
				s.log.WarnContext(gctx, "status server stopped", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			<-attackDone
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		s.log.WarnContext(ctx, "status server shutdown failed", "error", err)
	}

	results := harness.Evaluate(a.thresholds, snap)
	if err := harness.WriteSummary(s.printer, snap, results); err != nil {
		return err
	}

	if summaryJSON != "" {
		if err := writeSummaryJSON(summaryJSON, snap); err != nil {
			return err
		}
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if !harness.AllPassed(results) {
		s.printer.Error("some thresholds have failed")
		return domain.ErrThresholdsCrossed
	}

	s.printer.Success("all thresholds passed")
	return nil
}

func writeSummaryJSON(path string, snap harness.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating summary file: %w", err)
	}
	if err := harness.WriteJSON(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("writing summary file: %w", err)
	}
	return f.Close()
}
