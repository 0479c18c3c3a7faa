package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Engine drives the due-notification sweep. It runs one pass at startup
// and one per day at the configured hour, independently of request
// handling.
type Engine struct {
	svc     *Service
	logger  zerolog.Logger
	hour    int
	timeout time.Duration
}

func NewEngine(svc *Service, logger zerolog.Logger, hour int, timeout time.Duration) *Engine {
	return &Engine{svc: svc, logger: logger, hour: hour, timeout: timeout}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info().Int("hour", e.hour).Msg("reminder sweep engine started")
	e.runPass(ctx)

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", e.hour), func() { e.runPass(ctx) }); err != nil {
		e.logger.Error().Err(err).Msg("failed to schedule reminder sweep")
		return
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	e.logger.Info().Msg("reminder sweep engine stopped")
}

func (e *Engine) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	passCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	notified, err := e.svc.SweepDueReminders(passCtx, start)
	if err != nil {
		e.logger.Error().Err(err).Int("notified", notified).Msg("reminder sweep finished with errors")
		return
	}
	e.logger.Info().
		Int("notified", notified).
		Dur("took", time.Since(start)).
		Msg("reminder sweep complete")
}
