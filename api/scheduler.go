/*
scheduler.go - Automated calendar maintenance scheduler

PURPOSE:
  Periodically runs the calendar-boundary jobs so nobody has to remember
  them on January 1st:
  - Sick usage reset (no-op except on January 1, idempotent per year)
  - Annual accrual, when any active profile has not been accrued for the
    current year

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Both underlying jobs are idempotent, so re-checks are harmless
  - Accrual runs under a synthetic system actor with admin authority

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMaintenanceScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - leave/workflow.go: ResetSickUsage
  - leave/accrual.go: AccrualEngine.Run
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/leave-ledger/leave"
)

// systemActor attributes scheduler-driven mutations in audit trails.
var systemActor = leave.Actor{ID: "system", Role: leave.RoleWebmaster}

// MaintenanceScheduler handles automated calendar-boundary jobs.
type MaintenanceScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool
	Log           *logrus.Logger

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMaintenanceScheduler creates a new scheduler.
func NewMaintenanceScheduler(handler *Handler) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Log:           handler.Log,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ms *MaintenanceScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		ms.log().Info("scheduler disabled, not starting")
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.wg.Add(1)

	go ms.run()

	ms.log().WithField("interval", ms.CheckInterval).Info("scheduler started")
}

// Stop stops the scheduler.
func (ms *MaintenanceScheduler) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.ticker != nil {
		ms.ticker.Stop()
		close(ms.stop)
		ms.wg.Wait()
		ms.log().Info("scheduler stopped")
	}
}

func (ms *MaintenanceScheduler) run() {
	defer ms.wg.Done()

	// Run immediately on start
	ms.checkAndProcess()

	for {
		select {
		case <-ms.ticker.C:
			ms.checkAndProcess()
		case <-ms.stop:
			return
		}
	}
}

func (ms *MaintenanceScheduler) checkAndProcess() {
	ctx := context.Background()
	now := time.Now()

	if reset, err := ms.Handler.Engine.ResetSickUsage(ctx, now); err != nil {
		ms.log().WithError(err).Error("scheduler: sick usage reset failed")
	} else if reset > 0 {
		ms.log().WithField("profiles", reset).Info("scheduler: sick usage reset")
	}

	due, err := ms.accrualDue(ctx, now.Year())
	if err != nil {
		ms.log().WithError(err).Error("scheduler: accrual check failed")
		return
	}
	if !due {
		return
	}

	res, err := ms.Handler.Accrual.Run(ctx, systemActor, now.Year())
	if err != nil {
		ms.log().WithError(err).Error("scheduler: accrual run failed")
		return
	}
	ms.log().WithFields(logrus.Fields{
		"year":      now.Year(),
		"processed": res.Processed,
		"flagged":   res.Flagged,
	}).Info("scheduler: accrual applied")
}

// accrualDue reports whether any active profile has not been accrued for
// the given year. The run itself is idempotent; this check only avoids
// rewriting an unchanged snapshot every interval.
func (ms *MaintenanceScheduler) accrualDue(ctx context.Context, year int) (bool, error) {
	profiles, err := ms.Handler.Store.LoadProfiles(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range profiles {
		if p.Active && p.AccrualYear != year {
			return true, nil
		}
	}
	return false, nil
}

// RunNow triggers an immediate check (for testing/admin).
func (ms *MaintenanceScheduler) RunNow() {
	ms.checkAndProcess()
}

func (ms *MaintenanceScheduler) log() *logrus.Logger {
	if ms.Log != nil {
		return ms.Log
	}
	return logrus.StandardLogger()
}
