package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cocoatrade/purchase-engine/trade"
)

// SaveReconciliationRun inserts the run or updates it by id.
func (c *conn) SaveReconciliationRun(ctx context.Context, r trade.ReconciliationRun) error {
	defer c.lock()()

	_, err := c.exec(ctx, `
		INSERT INTO reconciliation_runs
		(id, status, purchases_checked, statuses_repaired, suppliers_checked,
		 balances_repaired, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			purchases_checked = excluded.purchases_checked,
			statuses_repaired = excluded.statuses_repaired,
			suppliers_checked = excluded.suppliers_checked,
			balances_repaired = excluded.balances_repaired,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		r.ID, string(r.Status), r.PurchasesChecked, r.StatusesRepaired,
		r.SuppliersChecked, r.BalancesRepaired, nullString(r.Error),
		formatTime(r.StartedAt), nullTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save reconciliation run %s: %w", r.ID, err)
	}
	return nil
}

// ListReconciliationRuns returns runs newest first.
func (c *conn) ListReconciliationRuns(ctx context.Context, limit int) ([]trade.ReconciliationRun, error) {
	defer c.rlock()()

	query, args := paginate(`
		SELECT id, status, purchases_checked, statuses_repaired, suppliers_checked,
		       balances_repaired, error, started_at, completed_at
		FROM reconciliation_runs
		ORDER BY started_at DESC, id ASC`, nil, trade.PageRequest{Page: 1, Limit: limit})
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation runs: %w", err)
	}
	defer rows.Close()

	runs := []trade.ReconciliationRun{}
	for rows.Next() {
		var (
			r           trade.ReconciliationRun
			status      string
			errText     sql.NullString
			startedAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &status, &r.PurchasesChecked, &r.StatusesRepaired,
			&r.SuppliersChecked, &r.BalancesRepaired, &errText, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Status = trade.RunStatus(status)
		r.Error = errText.String
		if r.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t, err := parseTime(completedAt.String)
			if err != nil {
				return nil, err
			}
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
