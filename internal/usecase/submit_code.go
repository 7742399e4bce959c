package usecase

import (
	"context"
	"log/slog"
	"time"

	"intellab-testing/internal/domain"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// SessionProvider hands out the session used by an iteration.
type SessionProvider interface {
	Acquire(ctx context.Context) (domain.AuthSession, error)
}

// SubmissionFiller writes an authorised submission request into a target.
type SubmissionFiller interface {
	Fill(tgt *vegeta.Target, token string, sub domain.Submission) error
}

// SubmitCode is the per-iteration workload: acquire a session, then submit
// the configured solution to the judge.
type SubmitCode struct {
	sessions SessionProvider
	targets  SubmissionFiller
	template domain.Submission
	interval time.Duration
	recorder domain.Recorder
	logger   *slog.Logger
}

// NewSubmitCode creates the workload. interval is the pause a worker takes
// after an iteration is skipped for lack of a session.
func NewSubmitCode(s SessionProvider, t SubmissionFiller, template domain.Submission, interval time.Duration, r domain.Recorder, l *slog.Logger) *SubmitCode {
	if r == nil {
		r = nopRecorder{}
	}
	return &SubmitCode{
		sessions: s,
		targets:  t,
		template: template,
		interval: interval,
		recorder: r,
		logger:   l,
	}
}

// Targeter returns a harness targeter producing one submission per call.
// Iterations without a usable session are skipped and retried after the
// interval. The targeter returns ctx.Err() once ctx is done, which stops
// the attack.
func (uc *SubmitCode) Targeter(ctx context.Context) vegeta.Targeter {
	return func(tgt *vegeta.Target) error {
		if tgt == nil {
			return vegeta.ErrNilTarget
		}

		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			session, err := uc.sessions.Acquire(ctx)
			if err == nil && session.Usable() {
				uc.recorder.RecordIteration(false)
				sub := uc.template
				sub.UserID = session.Identity
				return uc.targets.Fill(tgt, session.Token, sub)
			}

			uc.recorder.RecordIteration(true)
			uc.logger.ErrorContext(ctx, "authentication failed, cannot proceed with iteration",
				"has_token", session.Token != "",
				"error", err)

			timer := time.NewTimer(uc.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}
