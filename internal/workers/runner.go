package workers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aikhq/aik-backend/internal/platform/logger"
)

// Worker is one polling loop body. RunOnce claims and processes a batch;
// the runner owns the tick cadence and shutdown.
type Worker interface {
	Name() string
	Interval() time.Duration
	RunOnce(ctx context.Context) error
}

// Run drives a worker until ctx is cancelled. The first tick fires
// immediately so a fresh deploy drains the backlog without waiting a full
// interval. A panicking tick is logged and the loop keeps going.
func Run(ctx context.Context, baseLog *logger.Logger, w Worker) {
	log := baseLog.With("worker", w.Name())
	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	runTick(ctx, log, w)
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			runTick(ctx, log, w)
		}
	}
}

func runTick(ctx context.Context, log *logger.Logger, w Worker) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker tick panic", "panic", fmt.Sprint(r))
		}
	}()
	if ctx.Err() != nil {
		return
	}
	if err := w.RunOnce(ctx); err != nil {
		log.Warn("worker tick failed", "error", err)
	}
}

// RunAll supervises a set of workers and returns once all have exited
// after ctx cancellation.
func RunAll(ctx context.Context, baseLog *logger.Logger, ws ...Worker) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range ws {
		worker := w
		g.Go(func() error {
			Run(gctx, baseLog, worker)
			return nil
		})
	}
	return g.Wait()
}
