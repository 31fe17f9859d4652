package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cocoatrade/purchase-engine/trade"
)

const ticketSelect = `
	SELECT t.id, t.supplier_id, t.gross_weight, t.net_weight, t.notes, t.status,
	       t.created_at, t.updated_at, s.name, s.tax_document
	FROM tickets t
	JOIN suppliers s ON s.id = t.supplier_id`

func (c *conn) InsertTicket(ctx context.Context, t *trade.Ticket) error {
	defer c.lock()()

	_, err := c.exec(ctx, `
		INSERT INTO tickets
		(id, supplier_id, gross_weight, net_weight, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SupplierID, t.GrossWeight.String(), t.NetWeight.String(),
		t.Notes, string(t.Status), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	return classify(err, "ticket", t.ID)
}

func (c *conn) GetTicket(ctx context.Context, id string) (*trade.Ticket, error) {
	defer c.rlock()()

	t, err := scanTicket(c.queryRow(ctx, ticketSelect+" WHERE t.id = ?"+c.forUpdate("t"), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *conn) ListTickets(ctx context.Context, f trade.TicketFilter) ([]trade.Ticket, int, error) {
	defer c.rlock()()

	w := &where{}
	if f.SupplierID != "" {
		w.add("t.supplier_id = ?", f.SupplierID)
	}
	if f.Status != "" {
		w.add("t.status = ?", string(f.Status))
	}

	total, err := c.count(ctx, "SELECT COUNT(*) FROM tickets t"+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	query, args := paginate(ticketSelect+w.String()+" ORDER BY t.created_at DESC, t.id ASC", w.args, f.PageRequest)
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	items := []trade.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *t)
	}
	return items, total, rows.Err()
}

func (c *conn) UpdateTicket(ctx context.Context, t *trade.Ticket) error {
	defer c.lock()()

	return c.execOne(ctx, "ticket", t.ID, `
		UPDATE tickets SET
			supplier_id = ?, gross_weight = ?, net_weight = ?, notes = ?,
			status = ?, updated_at = ?
		WHERE id = ?`,
		t.SupplierID, t.GrossWeight.String(), t.NetWeight.String(), t.Notes,
		string(t.Status), formatTime(t.UpdatedAt),
		t.ID,
	)
}

func (c *conn) DeleteTicket(ctx context.Context, id string) error {
	defer c.lock()()
	return c.execOne(ctx, "ticket", id, "DELETE FROM tickets WHERE id = ?", id)
}

func scanTicket(row scanner) (*trade.Ticket, error) {
	var (
		t                    trade.Ticket
		gross, net           string
		notes                sql.NullString
		status               string
		createdAt, updatedAt string
		sup                  trade.SupplierSummary
	)
	err := row.Scan(&t.ID, &t.SupplierID, &gross, &net, &notes, &status,
		&createdAt, &updatedAt, &sup.Name, &sup.TaxDocument)
	if err != nil {
		return nil, err
	}

	if t.GrossWeight, err = parseDecimal("gross_weight", gross); err != nil {
		return nil, err
	}
	if t.NetWeight, err = parseDecimal("net_weight", net); err != nil {
		return nil, err
	}
	t.Notes = notes.String
	t.Status = trade.TicketStatus(status)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	sup.ID = t.SupplierID
	t.Supplier = &sup
	return &t, nil
}
