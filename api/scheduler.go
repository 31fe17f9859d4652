/*
scheduler.go - Automated reconciliation scheduler

PURPOSE:
  Periodically runs the consistency reconciler so that derived state
  (purchase payment status, supplier balance ledger) is repaired without
  anyone having to call POST /api/reconciliation/process.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Fires once immediately on start, then on every tick
  - Every pass is recorded as a reconciliation run for audit and UI display
  - A pass in progress is cancelled when the scheduler stops

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour, RECONCILE_INTERVAL)
  - Enabled: Whether scheduler is active (default: true, RECONCILE_ENABLED)

USAGE:
  scheduler := NewReconciliationScheduler(engine.Reconciler, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerReconciliation endpoint (manual run)
  - trade/reconcile.go: Reconciler
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/cocoatrade/purchase-engine/trade"
	"go.uber.org/zap"
)

// Reconcilable runs one reconciliation pass.
type Reconcilable interface {
	Reconcile(ctx context.Context) (*trade.ReconciliationRun, error)
}

// ReconciliationScheduler runs reconciliation passes on a fixed interval.
type ReconciliationScheduler struct {
	Reconciler    Reconcilable
	Log           *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun time.Time
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(rec Reconcilable, log *zap.Logger) *ReconciliationScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationScheduler{
		Reconciler:    rec,
		Log:           log.Named("scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rs.cancel = cancel
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan bool)
	rs.wg.Add(1)

	go rs.run(ctx, rs.ticker, rs.stop)

	rs.Log.Info("started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a pass in progress to return.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	ticker, cancel, stop := rs.ticker, rs.cancel, rs.stop
	rs.ticker = nil
	rs.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	cancel()
	close(stop)
	rs.wg.Wait()
	rs.Log.Info("stopped")
}

func (rs *ReconciliationScheduler) run(ctx context.Context, ticker *time.Ticker, stop chan bool) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess(ctx)

	for {
		select {
		case <-ticker.C:
			rs.checkAndProcess(ctx)
		case <-stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) checkAndProcess(ctx context.Context) *trade.ReconciliationRun {
	start := time.Now()
	run, err := rs.Reconciler.Reconcile(ctx)

	rs.mu.Lock()
	rs.lastRun = start
	rs.mu.Unlock()

	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		if run != nil {
			fields = append(fields, zap.String("run_id", run.ID))
		}
		rs.Log.Error("reconciliation failed", fields...)
		return run
	}

	if run.StatusesRepaired > 0 || run.BalancesRepaired > 0 {
		rs.Log.Warn("reconciliation repaired drift",
			zap.String("run_id", run.ID),
			zap.Int("statuses_repaired", run.StatusesRepaired),
			zap.Int("balances_repaired", run.BalancesRepaired),
		)
	} else {
		rs.Log.Debug("reconciliation clean",
			zap.String("run_id", run.ID),
			zap.Int("purchases_checked", run.PurchasesChecked),
			zap.Int("suppliers_checked", run.SuppliersChecked),
			zap.Duration("took", time.Since(start)),
		)
	}
	return run
}

// RunNow triggers an immediate pass (for testing/admin).
func (rs *ReconciliationScheduler) RunNow(ctx context.Context) *trade.ReconciliationRun {
	return rs.checkAndProcess(ctx)
}

// GetNextRunTime returns when the next scheduled pass will occur.
func (rs *ReconciliationScheduler) GetNextRunTime() time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.lastRun.IsZero() {
		return time.Now().Add(rs.CheckInterval)
	}
	return rs.lastRun.Add(rs.CheckInterval)
}
