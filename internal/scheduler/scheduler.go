// Package scheduler runs audits on a fixed interval in service mode.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/audit"
	"github.com/huangsam/mailprune/internal/config"
)

// Scheduler manages the periodic audit runs
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *config.SchedulerConfig
	audit     *config.AuditConfig
	service   *audit.Service
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, auditCfg *config.AuditConfig, service *audit.Service) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		config:  cfg,
		audit:   auditCfg,
		service: service,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// Recreate the context after a previous Stop canceled it.
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	// Schedule the audit to run every N minutes. A restart keeps the entry
	// registered from the first Start.
	if s.entryID == 0 {
		schedule := fmt.Sprintf("0 */%d * * * *", s.config.IntervalMinutes)

		entryID, err := s.cron.AddFunc(schedule, s.runAudit)
		if err != nil {
			return fmt.Errorf("failed to add cron job: %w", err)
		}
		s.entryID = entryID
	}
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()

	ctx := s.cron.Stop()

	// Wait for any in-flight audit to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runAudit is the periodic job body.
func (s *Scheduler) runAudit() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping audit cycle")
		return
	}
	s.mu.RUnlock()

	logrus.Info("Starting scheduled audit")
	if _, err := s.service.Run(s.ctx, s.audit.MaxEmails, s.audit.Query); err != nil {
		logrus.Errorf("Scheduled audit failed: %v", err)
	}
}

// RunOnce runs the audit once (for manual triggering)
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running audit once")
	_, err := s.service.Run(s.ctx, s.audit.MaxEmails, s.audit.Query)
	return err
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Prev
}

// Wait waits for in-flight audits to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
