/*
reconcile.go - Consistency reconciler

PURPOSE:
  Checks the derived state the engine maintains and repairs drift. Normal
  operation never produces drift, because every multi-step write commits in
  one transaction. A run is still useful after manual database edits or
  restores, and each run is recorded so the result is queryable.

CHECKS:
  1. Purchase.PaymentStatus == ComputePaymentStatus(total, sum(payments))
     Repair: persist the derived status.
  2. Supplier.Balance == sum(BalanceEntry.Delta)
     Repair: append a "reconciliation" entry for the difference, so the
     ledger explains the balance the supplier actually shows.

Each repair runs in its own transaction. A failing check aborts the run and
marks it failed; repairs already committed stay committed.

SEE ALSO:
  - api/scheduler.go: Periodic trigger
*/
package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultRunHistory is how many runs Runs returns when no limit is given.
const DefaultRunHistory = 20

// Reconciler repairs derived state and records each run.
type Reconciler struct {
	*base
}

// Reconcile performs one full pass. The returned run is persisted even when
// err is non-nil.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconciliationRun, error) {
	run := &ReconciliationRun{
		ID:        newID(),
		Status:    RunRunning,
		StartedAt: r.now(),
	}
	if err := r.store.SaveReconciliationRun(ctx, *run); err != nil {
		return nil, fmt.Errorf("save reconciliation run: %w", err)
	}

	err := r.checkPurchases(ctx, run)
	if err == nil {
		err = r.checkSuppliers(ctx, run)
	}

	done := r.now()
	run.CompletedAt = &done
	run.Status = RunCompleted
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
	}
	if saveErr := r.store.SaveReconciliationRun(ctx, *run); saveErr != nil {
		r.log.Error("failed to save reconciliation run", zap.String("run_id", run.ID), zap.Error(saveErr))
	}

	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.Int("purchases_checked", run.PurchasesChecked),
		zap.Int("statuses_repaired", run.StatusesRepaired),
		zap.Int("suppliers_checked", run.SuppliersChecked),
		zap.Int("balances_repaired", run.BalancesRepaired),
	}
	if err != nil {
		r.log.Error("reconciliation failed", append(fields, zap.Error(err))...)
		return run, err
	}
	r.log.Info("reconciliation completed", fields...)
	return run, nil
}

func (r *Reconciler) checkPurchases(ctx context.Context, run *ReconciliationRun) error {
	purchases, _, err := r.store.ListPurchases(ctx, PurchaseFilter{})
	if err != nil {
		return fmt.Errorf("list purchases: %w", err)
	}
	for _, listed := range purchases {
		repaired := false
		err := r.store.WithTx(ctx, func(s Store) error {
			p, err := s.GetPurchase(ctx, listed.ID)
			if err != nil {
				return fmt.Errorf("load purchase %s: %w", listed.ID, err)
			}
			if p == nil {
				return nil
			}
			payments, err := s.ListPaymentsByPurchase(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("load payments %s: %w", p.ID, err)
			}
			want := ComputePaymentStatus(p.TotalValue, SumPayments(payments))
			if p.PaymentStatus == want {
				return nil
			}
			r.log.Warn("repairing payment status",
				zap.String("purchase_id", p.ID),
				zap.String("stored", string(p.PaymentStatus)),
				zap.String("derived", string(want)),
			)
			p.PaymentStatus = want
			p.UpdatedAt = r.now()
			repaired = true
			return s.UpdatePurchase(ctx, p)
		})
		if err != nil {
			return err
		}
		run.PurchasesChecked++
		if repaired {
			run.StatusesRepaired++
		}
	}
	return nil
}

func (r *Reconciler) checkSuppliers(ctx context.Context, run *ReconciliationRun) error {
	suppliers, _, err := r.store.ListSuppliers(ctx, SupplierFilter{})
	if err != nil {
		return fmt.Errorf("list suppliers: %w", err)
	}
	for _, listed := range suppliers {
		repaired := false
		err := r.store.WithTx(ctx, func(s Store) error {
			sup, err := s.GetSupplier(ctx, listed.ID)
			if err != nil {
				return fmt.Errorf("load supplier %s: %w", listed.ID, err)
			}
			if sup == nil {
				return nil
			}
			entries, err := s.ListBalanceEntries(ctx, sup.ID)
			if err != nil {
				return fmt.Errorf("load balance entries %s: %w", sup.ID, err)
			}
			sum := decimal.Zero
			for _, e := range entries {
				sum = sum.Add(e.Delta)
			}
			drift := sup.Balance.Sub(sum)
			if drift.IsZero() {
				return nil
			}
			r.log.Warn("repairing supplier ledger",
				zap.String("supplier_id", sup.ID),
				zap.String("balance", sup.Balance.String()),
				zap.String("ledger_sum", sum.String()),
			)
			repaired = true
			return s.AppendBalanceEntry(ctx, BalanceEntry{
				ID:          newID(),
				SupplierID:  sup.ID,
				Kind:        EntryReconciliation,
				Delta:       drift,
				ReferenceID: run.ID,
				Reason:      "balance did not match ledger",
				CreatedAt:   r.now(),
			})
		})
		if err != nil {
			return err
		}
		run.SuppliersChecked++
		if repaired {
			run.BalancesRepaired++
		}
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (r *Reconciler) Runs(ctx context.Context, limit int) ([]ReconciliationRun, error) {
	if limit <= 0 {
		limit = DefaultRunHistory
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	runs, err := r.store.ListReconciliationRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation runs: %w", err)
	}
	return runs, nil
}
