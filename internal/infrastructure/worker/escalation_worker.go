package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/service"
)

// EscalationWorker runs the stale-assignment sweep on a cron schedule. Each
// tick escalates applications whose assigned officer has sat on them past the
// rule's escalation window.
type EscalationWorker struct {
	escalations service.EscalationService
	schedule    string
	logger      *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	running bool
}

// NewEscalationWorker creates a new escalation worker. The schedule is a
// standard five-field cron expression.
func NewEscalationWorker(escalations service.EscalationService, schedule string, logger *zap.Logger) *EscalationWorker {
	return &EscalationWorker{
		escalations: escalations,
		schedule:    schedule,
		logger:      logger,
	}
}

// Name implements Worker
func (w *EscalationWorker) Name() string {
	return "escalation-sweeper"
}

// Start implements Worker
func (w *EscalationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("escalation worker already running")
	}

	w.ctx = ctx
	w.cron = cron.New()

	if _, err := w.cron.AddFunc(w.schedule, w.sweep); err != nil {
		return fmt.Errorf("invalid escalation schedule %q: %w", w.schedule, err)
	}

	w.cron.Start()
	w.running = true
	w.logger.Info("Escalation sweep scheduled", zap.String("schedule", w.schedule))
	return nil
}

// Stop implements Worker. Blocks until an in-flight sweep finishes.
func (w *EscalationWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.running = false
	return nil
}

func (w *EscalationWorker) sweep() {
	ctx := w.ctx
	if ctx.Err() != nil {
		return
	}

	escalated, err := w.escalations.SweepOnce(ctx)
	if err != nil {
		w.logger.Error("Escalation sweep failed", zap.Error(err))
		return
	}
	if escalated > 0 {
		w.logger.Info("Escalation sweep completed", zap.Int("escalated", escalated))
	}
}
