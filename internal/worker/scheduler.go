package worker

import (
	"context"
	"log/slog"
	"time"
)

// startSchedulers runs the expiry sweep and the deferred push flush on
// their own tickers. A zero interval or a nil target disables the loop.
func (w *Worker) startSchedulers(ctx context.Context) {
	if w.sweeper != nil && w.expirySweepInterval > 0 {
		w.wg.Add(1)
		go w.every(ctx, "expiry_sweep", w.expirySweepInterval, w.sweepExpired)
	}
	if w.flusher != nil && w.deferredFlushInterval > 0 {
		w.wg.Add(1)
		go w.every(ctx, "deferred_flush", w.deferredFlushInterval, w.flushDeferred)
	}
}

func (w *Worker) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("Scheduler started",
		slog.String("scheduler", name),
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (w *Worker) sweepExpired(ctx context.Context) {
	n, err := w.sweeper.ExpireStale(ctx, w.expiryBatchSize)
	if err != nil {
		w.logger.Error("Expiry sweep failed",
			slog.Int("expired", n),
			slog.String("error", err.Error()),
		)
		return
	}
	if n > 0 {
		w.logger.Info("Expired stale jobs", slog.Int("expired", n))
	}
}

func (w *Worker) flushDeferred(ctx context.Context) {
	n, err := w.flusher.Flush(ctx)
	if err != nil {
		w.logger.Error("Deferred push flush failed",
			slog.Int("sent", n),
			slog.String("error", err.Error()),
		)
		return
	}
	if n > 0 {
		w.logger.Info("Flushed deferred pushes", slog.Int("sent", n))
	}
}
