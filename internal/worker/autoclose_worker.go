package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/guildops/ticket-engine/internal/observability"
	"github.com/guildops/ticket-engine/internal/repository"
	"github.com/guildops/ticket-engine/internal/service"
)

// AutoCloseWorker is the periodic sweeper. Each run scans departments
// with auto-close enabled and force-closes tickets idle past the
// department timeout, then archives closed tickets whose rating window
// has elapsed. Every ticket is its own unit of work; a failure is
// logged and the sweep continues.
type AutoCloseWorker struct {
	departments  repository.DepartmentRepository
	tickets      repository.TicketRepository
	engine       *service.TicketService
	metrics      *observability.Metrics
	logger       *zap.Logger
	schedule     string
	ratingWindow time.Duration
	cron         *cron.Cron
}

// AutoCloseDependencies bundles collaborators for the sweeper.
type AutoCloseDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	TicketRepo     repository.TicketRepository
	Engine         *service.TicketService
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Schedule       string
	RatingWindow   time.Duration
}

// SweepResult summarizes one sweep cycle.
type SweepResult struct {
	Scanned  int
	Closed   int
	Archived int
	Failed   int
}

// NewAutoCloseWorker constructs the sweeper.
func NewAutoCloseWorker(deps AutoCloseDependencies) *AutoCloseWorker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule := deps.Schedule
	if schedule == "" {
		schedule = "@every 5m"
	}
	return &AutoCloseWorker{
		departments:  deps.DepartmentRepo,
		tickets:      deps.TicketRepo,
		engine:       deps.Engine,
		metrics:      deps.Metrics,
		logger:       logger,
		schedule:     schedule,
		ratingWindow: deps.RatingWindow,
	}
}

// Start schedules sweeps on the configured cadence.
func (w *AutoCloseWorker) Start(ctx context.Context) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, func() {
		w.RunOnce(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("auto-close sweeper started", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (w *AutoCloseWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.logger.Info("auto-close sweeper stopped")
}

// RunOnce executes a single sweep cycle.
func (w *AutoCloseWorker) RunOnce(ctx context.Context) SweepResult {
	started := time.Now()
	var result SweepResult

	departments, err := w.departments.ListAutoClosable(ctx)
	if err != nil {
		w.logger.Error("sweep aborted: cannot list departments", zap.Error(err))
		result.Failed++
		return result
	}

	for _, dept := range departments {
		cutoff := time.Now().Add(-dept.AutoCloseAfter)
		stale, err := w.tickets.QueryOpenOlderThan(ctx, dept.ID, cutoff)
		if err != nil {
			w.logger.Error("sweep query failed",
				zap.String("department_id", dept.ID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Scanned += len(stale)
		for _, ticket := range stale {
			if _, err := w.engine.Close(ctx, service.TicketCloseInput{
				TicketID: ticket.ID,
				Auto:     true,
			}); err != nil {
				// Partial-failure isolation: one stuck ticket must not
				// stall the rest of the sweep.
				w.logger.Warn("auto-close failed",
					zap.String("ticket_id", ticket.ID),
					zap.Int64("number", ticket.Number),
					zap.Error(err))
				result.Failed++
				continue
			}
			result.Closed++
		}
	}

	result.Archived = w.archiveExpiredRatingWindows(ctx, &result)

	if w.metrics != nil {
		w.metrics.RecordSweep(result.Closed, result.Archived, result.Failed, time.Since(started))
	}
	w.logger.Info("sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("closed", result.Closed),
		zap.Int("archived", result.Archived),
		zap.Int("failed", result.Failed),
		zap.Duration("took", time.Since(started)))
	return result
}

// archiveExpiredRatingWindows moves closed-but-unrated tickets past
// the rating window into the archived partition.
func (w *AutoCloseWorker) archiveExpiredRatingWindows(ctx context.Context, result *SweepResult) int {
	if w.ratingWindow <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-w.ratingWindow)
	expired, err := w.tickets.QueryClosedUnratedBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error("rating-window query failed", zap.Error(err))
		result.Failed++
		return 0
	}
	archived := 0
	for _, ticket := range expired {
		if _, err := w.engine.Archive(ctx, ticket.ID); err != nil {
			w.logger.Warn("archive failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			result.Failed++
			continue
		}
		archived++
	}
	return archived
}
