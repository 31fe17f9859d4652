package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cocoatrade/purchase-engine/trade"
)

// =============================================================================
// SUPPLIERS
// =============================================================================

const supplierColumns = `s.id, s.name, s.tax_document, s.contact_json, s.address_json,
	s.balance, s.notes, s.created_at, s.updated_at`

func (c *conn) InsertSupplier(ctx context.Context, sup *trade.Supplier) error {
	defer c.lock()()

	contact, address, err := supplierJSON(sup)
	if err != nil {
		return err
	}
	_, err = c.exec(ctx, `
		INSERT INTO suppliers
		(id, name, tax_document, contact_json, address_json, balance, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sup.ID, sup.Name, sup.TaxDocument, contact, address,
		sup.Balance.String(), sup.Notes,
		formatTime(sup.CreatedAt), formatTime(sup.UpdatedAt),
	)
	return classify(err, "supplier", sup.ID)
}

func (c *conn) GetSupplier(ctx context.Context, id string) (*trade.Supplier, error) {
	defer c.rlock()()
	return c.getSupplier(ctx, "s.id = ?", id)
}

func (c *conn) FindSupplierByDocument(ctx context.Context, taxDocument string) (*trade.Supplier, error) {
	defer c.rlock()()
	return c.getSupplier(ctx, "s.tax_document = ?", taxDocument)
}

func (c *conn) getSupplier(ctx context.Context, cond string, arg any) (*trade.Supplier, error) {
	row := c.queryRow(ctx,
		"SELECT "+supplierColumns+" FROM suppliers s WHERE "+cond+c.forUpdate("s"), arg)
	sup, err := scanSupplier(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sup, nil
}

func (c *conn) ListSuppliers(ctx context.Context, f trade.SupplierFilter) ([]trade.Supplier, int, error) {
	defer c.rlock()()

	w := &where{}
	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		if doc := trade.NormalizeDocument(q); doc != "" {
			w.add("(LOWER(s.name) LIKE ? OR s.tax_document LIKE ?)", pattern, "%"+doc+"%")
		} else {
			w.add("LOWER(s.name) LIKE ?", pattern)
		}
	}

	total, err := c.count(ctx, "SELECT COUNT(*) FROM suppliers s"+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count suppliers: %w", err)
	}

	query, args := paginate(
		"SELECT "+supplierColumns+" FROM suppliers s"+w.String()+" ORDER BY s.name ASC, s.id ASC",
		w.args, f.PageRequest)
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	items := []trade.Supplier{}
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *sup)
	}
	return items, total, rows.Err()
}

func (c *conn) UpdateSupplier(ctx context.Context, sup *trade.Supplier) error {
	defer c.lock()()

	contact, address, err := supplierJSON(sup)
	if err != nil {
		return err
	}
	return c.execOne(ctx, "supplier", sup.ID, `
		UPDATE suppliers SET
			name = ?, tax_document = ?, contact_json = ?, address_json = ?,
			balance = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		sup.Name, sup.TaxDocument, contact, address,
		sup.Balance.String(), sup.Notes, formatTime(sup.UpdatedAt),
		sup.ID,
	)
}

func (c *conn) DeleteSupplier(ctx context.Context, id string) error {
	defer c.lock()()
	return c.execOne(ctx, "supplier", id, "DELETE FROM suppliers WHERE id = ?", id)
}

func (c *conn) CountSupplierReferences(ctx context.Context, id string) (int, int, error) {
	defer c.rlock()()

	tickets, err := c.count(ctx, "SELECT COUNT(*) FROM tickets WHERE supplier_id = ?", id)
	if err != nil {
		return 0, 0, fmt.Errorf("count tickets: %w", err)
	}
	purchases, err := c.count(ctx, "SELECT COUNT(*) FROM purchases WHERE supplier_id = ?", id)
	if err != nil {
		return 0, 0, fmt.Errorf("count purchases: %w", err)
	}
	return tickets, purchases, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSupplier(row scanner) (*trade.Supplier, error) {
	var (
		sup                  trade.Supplier
		contact, address     sql.NullString
		balance              string
		notes                sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&sup.ID, &sup.Name, &sup.TaxDocument, &contact, &address,
		&balance, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if sup.Balance, err = parseDecimal("balance", balance); err != nil {
		return nil, err
	}
	if contact.Valid {
		sup.Contact = &trade.Contact{}
		if err := json.Unmarshal([]byte(contact.String), sup.Contact); err != nil {
			return nil, fmt.Errorf("invalid contact for supplier %s: %w", sup.ID, err)
		}
	}
	if address.Valid {
		sup.Address = &trade.Address{}
		if err := json.Unmarshal([]byte(address.String), sup.Address); err != nil {
			return nil, fmt.Errorf("invalid address for supplier %s: %w", sup.ID, err)
		}
	}
	sup.Notes = notes.String
	if sup.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sup.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sup, nil
}

func supplierJSON(sup *trade.Supplier) (contact, address sql.NullString, err error) {
	if sup.Contact != nil {
		if contact, err = toJSON(sup.Contact); err != nil {
			return contact, address, fmt.Errorf("encode contact: %w", err)
		}
	}
	if sup.Address != nil {
		if address, err = toJSON(sup.Address); err != nil {
			return contact, address, fmt.Errorf("encode address: %w", err)
		}
	}
	return contact, address, nil
}

// =============================================================================
// SUPPLIER LEDGER
// =============================================================================

func (c *conn) AppendBalanceEntry(ctx context.Context, e trade.BalanceEntry) error {
	defer c.lock()()

	_, err := c.exec(ctx, `
		INSERT INTO balance_entries
		(id, supplier_id, kind, delta, reference_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SupplierID, string(e.Kind), e.Delta.String(),
		nullString(e.ReferenceID), nullString(e.Reason), formatTime(e.CreatedAt),
	)
	return classify(err, "balance entry", e.ID)
}

func (c *conn) ListBalanceEntries(ctx context.Context, supplierID string) ([]trade.BalanceEntry, error) {
	defer c.rlock()()

	rows, err := c.query(ctx, `
		SELECT id, supplier_id, kind, delta, reference_id, reason, created_at
		FROM balance_entries
		WHERE supplier_id = ?
		ORDER BY created_at ASC, id ASC`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list balance entries: %w", err)
	}
	defer rows.Close()

	entries := []trade.BalanceEntry{}
	for rows.Next() {
		var (
			e           trade.BalanceEntry
			kind, delta string
			ref, reason sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&e.ID, &e.SupplierID, &kind, &delta, &ref, &reason, &createdAt); err != nil {
			return nil, err
		}
		e.Kind = trade.BalanceEntryKind(kind)
		if e.Delta, err = parseDecimal("delta", delta); err != nil {
			return nil, err
		}
		e.ReferenceID = ref.String
		e.Reason = reason.String
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
