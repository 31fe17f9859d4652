package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cocoatrade/purchase-engine/trade"
)

const purchaseSelect = `
	SELECT p.id, p.ticket_id, p.supplier_id, p.price_per_arroba, p.price_per_kg,
	       p.total_value, p.payment_status, p.notes, p.created_at, p.updated_at,
	       s.name, s.tax_document,
	       t.gross_weight, t.net_weight, t.status, t.created_at
	FROM purchases p
	JOIN suppliers s ON s.id = p.supplier_id
	JOIN tickets t ON t.id = p.ticket_id`

func (c *conn) InsertPurchase(ctx context.Context, p *trade.Purchase) error {
	defer c.lock()()

	_, err := c.exec(ctx, `
		INSERT INTO purchases
		(id, ticket_id, supplier_id, price_per_arroba, price_per_kg, total_value,
		 payment_status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TicketID, p.SupplierID,
		p.PricePerArroba.String(), p.PricePerKg.String(), p.TotalValue.String(),
		string(p.PaymentStatus), p.Notes, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return classify(err, "purchase", p.ID)
}

func (c *conn) GetPurchase(ctx context.Context, id string) (*trade.Purchase, error) {
	defer c.rlock()()
	return c.getPurchase(ctx, "p.id = ?", id)
}

func (c *conn) GetPurchaseByTicket(ctx context.Context, ticketID string) (*trade.Purchase, error) {
	defer c.rlock()()
	return c.getPurchase(ctx, "p.ticket_id = ?", ticketID)
}

func (c *conn) getPurchase(ctx context.Context, cond string, arg any) (*trade.Purchase, error) {
	p, err := scanPurchase(c.queryRow(ctx, purchaseSelect+" WHERE "+cond+c.forUpdate("p"), arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *conn) ListPurchases(ctx context.Context, f trade.PurchaseFilter) ([]trade.Purchase, int, error) {
	defer c.rlock()()

	w := &where{}
	if f.SupplierID != "" {
		w.add("p.supplier_id = ?", f.SupplierID)
	}
	if f.PaymentStatus != "" {
		w.add("p.payment_status = ?", string(f.PaymentStatus))
	}
	if f.DateFrom != nil {
		w.add("p.created_at >= ?", formatTime(*f.DateFrom))
	}
	if f.DateTo != nil {
		w.add("p.created_at <= ?", formatTime(*f.DateTo))
	}

	total, err := c.count(ctx, "SELECT COUNT(*) FROM purchases p"+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	query, args := paginate(purchaseSelect+w.String()+" ORDER BY p.created_at DESC, p.id ASC", w.args, f.PageRequest)
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	items := []trade.Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}
	return items, total, rows.Err()
}

func (c *conn) UpdatePurchase(ctx context.Context, p *trade.Purchase) error {
	defer c.lock()()

	return c.execOne(ctx, "purchase", p.ID, `
		UPDATE purchases SET
			price_per_arroba = ?, price_per_kg = ?, total_value = ?,
			payment_status = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		p.PricePerArroba.String(), p.PricePerKg.String(), p.TotalValue.String(),
		string(p.PaymentStatus), p.Notes, formatTime(p.UpdatedAt),
		p.ID,
	)
}

func (c *conn) DeletePurchase(ctx context.Context, id string) error {
	defer c.lock()()
	return c.execOne(ctx, "purchase", id, "DELETE FROM purchases WHERE id = ?", id)
}

func scanPurchase(row scanner) (*trade.Purchase, error) {
	var (
		p                        trade.Purchase
		perArroba, perKg, total  string
		status                   string
		notes                    sql.NullString
		createdAt, updatedAt     string
		sup                      trade.SupplierSummary
		gross, net, ticketStatus string
		ticketCreatedAt          string
	)
	err := row.Scan(&p.ID, &p.TicketID, &p.SupplierID, &perArroba, &perKg,
		&total, &status, &notes, &createdAt, &updatedAt,
		&sup.Name, &sup.TaxDocument,
		&gross, &net, &ticketStatus, &ticketCreatedAt)
	if err != nil {
		return nil, err
	}

	if p.PricePerArroba, err = parseDecimal("price_per_arroba", perArroba); err != nil {
		return nil, err
	}
	if p.PricePerKg, err = parseDecimal("price_per_kg", perKg); err != nil {
		return nil, err
	}
	if p.TotalValue, err = parseDecimal("total_value", total); err != nil {
		return nil, err
	}
	p.PaymentStatus = trade.PaymentStatus(status)
	p.Notes = notes.String
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	sup.ID = p.SupplierID
	p.Supplier = &sup

	ticket := trade.TicketSummary{ID: p.TicketID, Status: trade.TicketStatus(ticketStatus)}
	if ticket.GrossWeight, err = parseDecimal("gross_weight", gross); err != nil {
		return nil, err
	}
	if ticket.NetWeight, err = parseDecimal("net_weight", net); err != nil {
		return nil, err
	}
	if ticket.CreatedAt, err = parseTime(ticketCreatedAt); err != nil {
		return nil, err
	}
	p.Ticket = &ticket
	return &p, nil
}
