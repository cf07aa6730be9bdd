package workers

import (
	"context"
	"time"

	"coldreach/internal/services"
	"coldreach/pkg/logger"
)

// DispatchWorker triggers dispatch sweeps on a fixed interval. Each sweep is
// a short, discrete run of the dispatch service; the worker is just the
// timer around it.
type DispatchWorker struct {
	dispatchService *services.DispatchService
	interval        time.Duration
	Running         bool
	StopChan        chan struct{}
}

// NewDispatchWorker creates a new dispatch worker
func NewDispatchWorker(dispatchService *services.DispatchService, interval time.Duration) *DispatchWorker {
	return &DispatchWorker{
		dispatchService: dispatchService,
		interval:        interval,
		StopChan:        make(chan struct{}),
	}
}

// Start begins the dispatch loop until the context is cancelled or Stop is
// called.
func (w *DispatchWorker) Start(ctx context.Context) error {
	w.Running = true
	logger.Infof("dispatch worker started, interval %s", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("dispatch worker stopping due to context cancellation")
			return ctx.Err()
		case <-w.StopChan:
			logger.Infof("dispatch worker stopping")
			return nil
		case <-ticker.C:
			result, err := w.dispatchService.Run(time.Now())
			if err != nil {
				logger.WithError(err).Errorf("dispatch sweep failed")
				continue
			}
			if result.Processed > 0 {
				logger.Infof("dispatch sweep: %s", result.Outcome)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *DispatchWorker) Stop() error {
	if w.Running {
		w.Running = false
		close(w.StopChan)
	}
	return nil
}
