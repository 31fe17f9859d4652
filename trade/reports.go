package trade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Reporter aggregates read-only views over the whole book.
type Reporter struct {
	*base
}

type Dashboard struct {
	Suppliers          int
	SupplierBalance    decimal.Decimal
	TicketsPending     int
	TicketsConverted   int
	PendingNetWeight   decimal.Decimal
	ConvertedNetWeight decimal.Decimal
	PurchasesByStatus  map[PaymentStatus]int
	TotalPurchased     decimal.Decimal
	TotalPaid          decimal.Decimal
	TotalOutstanding   decimal.Decimal
}

// MonthlyRow groups purchases created in one calendar month (YYYY-MM, UTC).
type MonthlyRow struct {
	Month      string
	Purchases  int
	NetWeight  decimal.Decimal
	TotalValue decimal.Decimal
	Paid       decimal.Decimal
}

func (r *Reporter) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{
		SupplierBalance:    decimal.Zero,
		PendingNetWeight:   decimal.Zero,
		ConvertedNetWeight: decimal.Zero,
		PurchasesByStatus: map[PaymentStatus]int{
			PaymentPending: 0,
			PaymentPartial: 0,
			PaymentPaid:    0,
		},
		TotalPurchased: decimal.Zero,
		TotalPaid:      decimal.Zero,
	}

	suppliers, _, err := r.store.ListSuppliers(ctx, SupplierFilter{})
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	d.Suppliers = len(suppliers)
	for _, s := range suppliers {
		d.SupplierBalance = d.SupplierBalance.Add(s.Balance)
	}

	tickets, _, err := r.store.ListTickets(ctx, TicketFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	for _, t := range tickets {
		switch t.Status {
		case TicketPending:
			d.TicketsPending++
			d.PendingNetWeight = d.PendingNetWeight.Add(t.NetWeight)
		case TicketConverted:
			d.TicketsConverted++
			d.ConvertedNetWeight = d.ConvertedNetWeight.Add(t.NetWeight)
		}
	}

	purchases, err := r.allPurchases(ctx, PurchaseFilter{})
	if err != nil {
		return nil, err
	}
	for _, p := range purchases {
		d.PurchasesByStatus[p.PaymentStatus]++
		d.TotalPurchased = d.TotalPurchased.Add(p.TotalValue)
		d.TotalPaid = d.TotalPaid.Add(p.TotalPaid())
	}
	d.TotalOutstanding = d.TotalPurchased.Sub(d.TotalPaid)
	return d, nil
}

// Monthly groups purchases by creation month within [from, to]. Either bound may be nil.
func (r *Reporter) Monthly(ctx context.Context, from, to *time.Time) ([]MonthlyRow, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, &ValidationError{
			Message: "invalid report range",
			Details: []FieldViolation{{Field: "to", Code: "before_date_from"}},
		}
	}
	purchases, err := r.allPurchases(ctx, PurchaseFilter{DateFrom: from, DateTo: to})
	if err != nil {
		return nil, err
	}

	byMonth := map[string]*MonthlyRow{}
	for _, p := range purchases {
		key := p.CreatedAt.UTC().Format("2006-01")
		row, ok := byMonth[key]
		if !ok {
			row = &MonthlyRow{Month: key, NetWeight: decimal.Zero, TotalValue: decimal.Zero, Paid: decimal.Zero}
			byMonth[key] = row
		}
		row.Purchases++
		if p.Ticket != nil {
			row.NetWeight = row.NetWeight.Add(p.Ticket.NetWeight)
		}
		row.TotalValue = row.TotalValue.Add(p.TotalValue)
		row.Paid = row.Paid.Add(p.TotalPaid())
	}

	rows := make([]MonthlyRow, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows, nil
}

// allPurchases loads every matching purchase with its payments. A zero
// PageRequest means no limit.
func (r *Reporter) allPurchases(ctx context.Context, f PurchaseFilter) ([]Purchase, error) {
	items, _, err := r.store.ListPurchases(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	if err := attachPayments(ctx, r.store, items); err != nil {
		return nil, err
	}
	return items, nil
}
