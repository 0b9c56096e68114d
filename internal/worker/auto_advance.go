package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

// Advancer is implemented by the queue service.
type Advancer interface {
	AutoAdvanceQueue(ctx context.Context) (bool, error)
}

// AutoAdvanceWorker periodically pulls the next confirmed patient into intake.
type AutoAdvanceWorker struct {
	queue    Advancer
	interval time.Duration
	logger   *logger.Logger
}

func NewAutoAdvanceWorker(queue Advancer, interval time.Duration, log *logger.Logger) *AutoAdvanceWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &AutoAdvanceWorker{
		queue:    queue,
		interval: interval,
		logger:   log,
	}
}

func (w *AutoAdvanceWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting queue auto-advance", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down queue auto-advance")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single auto-advance pass and reports whether a patient moved.
func (w *AutoAdvanceWorker) RunOnce(ctx context.Context) bool {
	advanced, err := w.queue.AutoAdvanceQueue(ctx)
	if err != nil {
		w.logger.Error(err, "Failed to auto-advance queue")
		return false
	}
	if advanced {
		w.logger.Info("Moved next patient to intake")
	}
	return advanced
}
