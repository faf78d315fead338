package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusstay/reservation-backend/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	reconciler *ReconcileService
	cfg        config.ReconcileConfig
	logger     *logrus.Logger

	mu      sync.Mutex
	running bool
}

// NewCronService creates a new CronService
func NewCronService(reconciler *ReconcileService, cfg config.ReconcileConfig, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithSeconds()),
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start schedules the stale-session sweep and starts the scheduler
func (s *CronService) Start() error {
	// Cron format: second minute hour day month weekday
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.reconcileStaleJob); err != nil {
		return fmt.Errorf("failed to schedule reconcile sweep: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule":    s.cfg.SweepSchedule,
		"stale_after": s.cfg.StaleAfter.String(),
		"batch_size":  s.cfg.BatchSize,
	}).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// RunReconcileNow runs the sweep immediately and returns how many bookings changed
func (s *CronService) RunReconcileNow(ctx context.Context) (int, error) {
	return s.sweep(ctx)
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}

func (s *CronService) reconcileStaleJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.sweep(ctx); err != nil {
		s.logger.WithError(err).Error("Reconcile sweep failed")
	}
}

// sweep skips if a previous run is still in progress
func (s *CronService) sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	changed, err := s.reconciler.SweepStale(ctx, s.cfg.StaleAfter, s.cfg.BatchSize)
	if err != nil {
		return changed, err
	}

	s.logger.WithFields(logrus.Fields{
		"changed":  changed,
		"duration": time.Since(start).String(),
	}).Info("Reconcile sweep finished")
	return changed, nil
}
