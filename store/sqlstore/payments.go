package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cocoatrade/purchase-engine/trade"
)

const paymentColumns = `pay.id, pay.purchase_id, pay.amount, pay.method, pay.notes,
	pay.sequence, pay.created_at`

func (c *conn) InsertPayment(ctx context.Context, p *trade.Payment) error {
	defer c.lock()()

	_, err := c.exec(ctx, `
		INSERT INTO payments
		(id, purchase_id, amount, method, notes, sequence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PurchaseID, p.Amount.String(), nullString(string(p.Method)),
		nullString(p.Notes), p.Sequence, formatTime(p.CreatedAt),
	)
	return classify(err, "payment", p.ID)
}

func (c *conn) GetPayment(ctx context.Context, id string) (*trade.Payment, error) {
	defer c.rlock()()

	p, err := scanPayment(c.queryRow(ctx,
		"SELECT "+paymentColumns+" FROM payments pay WHERE pay.id = ?"+c.forUpdate("pay"), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *conn) ListPaymentsByPurchase(ctx context.Context, purchaseID string) ([]trade.Payment, error) {
	defer c.rlock()()

	return c.queryPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments pay WHERE pay.purchase_id = ? ORDER BY pay.sequence ASC"+c.forUpdate("pay"),
		purchaseID)
}

func (c *conn) ListPaymentsForPurchases(ctx context.Context, purchaseIDs []string) (map[string][]trade.Payment, error) {
	defer c.rlock()()

	out := make(map[string][]trade.Payment, len(purchaseIDs))
	if len(purchaseIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(purchaseIDs))
	for i, id := range purchaseIDs {
		args[i] = id
	}
	payments, err := c.queryPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments pay WHERE pay.purchase_id IN ("+placeholders(len(args))+
			") ORDER BY pay.purchase_id ASC, pay.sequence ASC",
		args...)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		out[p.PurchaseID] = append(out[p.PurchaseID], p)
	}
	return out, nil
}

func (c *conn) ListPayments(ctx context.Context, f trade.PaymentFilter) ([]trade.Payment, int, error) {
	defer c.rlock()()

	from := " FROM payments pay"
	w := &where{}
	if f.SupplierID != "" {
		from += " JOIN purchases p ON p.id = pay.purchase_id"
		w.add("p.supplier_id = ?", f.SupplierID)
	}
	if f.PurchaseID != "" {
		w.add("pay.purchase_id = ?", f.PurchaseID)
	}
	if f.Method != "" {
		w.add("pay.method = ?", string(f.Method))
	}

	total, err := c.count(ctx, "SELECT COUNT(*)"+from+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	query, args := paginate("SELECT "+paymentColumns+from+w.String()+
		" ORDER BY pay.created_at DESC, pay.sequence DESC", w.args, f.PageRequest)
	items, err := c.queryPayments(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (c *conn) DeletePayment(ctx context.Context, id string) error {
	defer c.lock()()
	return c.execOne(ctx, "payment", id, "DELETE FROM payments WHERE id = ?", id)
}

func (c *conn) queryPayments(ctx context.Context, query string, args ...any) ([]trade.Payment, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := []trade.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row scanner) (*trade.Payment, error) {
	var (
		p             trade.Payment
		amount        string
		method, notes sql.NullString
		createdAt     string
	)
	err := row.Scan(&p.ID, &p.PurchaseID, &amount, &method, &notes, &p.Sequence, &createdAt)
	if err != nil {
		return nil, err
	}
	if p.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	p.Method = trade.PaymentMethod(method.String)
	p.Notes = notes.String
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}
