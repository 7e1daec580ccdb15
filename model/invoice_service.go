package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceListQuery captures filter, paging, and sorting options for listing
// invoices.
type InvoiceListQuery struct {
	ProjectID uint
	ClientID  uint
	Status    string // stored status, or "overdue" for the derived label
	StartDate time.Time
	EndDate   time.Time
	Limit     int    // page size (1-200); defaults to 50 when out of range
	Cursor    string // offset cursor encoded as a string: "0", "50", ...
}

// ListInvoices returns a page of invoices for the given user along with the
// next cursor, newest issue date first. Items are preloaded so totals can be
// computed without further queries.
func (s *Store) ListInvoices(userID uint, q InvoiceListQuery) (items []Invoice, nextCursor string, err error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	offset := 0
	if q.Cursor != "" {
		if n, e := strconv.Atoi(q.Cursor); e == nil && n >= 0 {
			offset = n
		}
	}

	db := s.invoicesForUser(userID).Preload("Items")
	if q.ProjectID != 0 {
		db = db.Where("invoices.project_id = ?", q.ProjectID)
	}
	if q.ClientID != 0 {
		db = db.Where("projects.client_id = ?", q.ClientID)
	}
	switch InvoiceStatus(q.Status) {
	case "":
	case InvoiceStatusOverdue:
		db = db.Where("invoices.status = ? AND invoices.due_date < ?",
			InvoiceStatusSent, time.Now().UTC())
	default:
		db = db.Where("invoices.status = ?", q.Status)
	}
	if !q.StartDate.IsZero() {
		db = db.Where("invoices.issue_date >= ?", q.StartDate)
	}
	if !q.EndDate.IsZero() {
		db = db.Where("invoices.issue_date <= ?", q.EndDate)
	}

	var invs []Invoice
	err = db.Order("invoices.issue_date desc").
		Offset(offset).Limit(q.Limit + 1).Find(&invs).Error
	if err != nil {
		return nil, "", err
	}
	if len(invs) > q.Limit {
		invs = invs[:q.Limit]
		nextCursor = strconv.Itoa(offset + q.Limit)
	}
	return invs, nextCursor, nil
}

// InvoiceStats summarizes the user's invoices. All money figures are computed
// from items on the fly.
type InvoiceStats struct {
	TotalInvoiced  decimal.Decimal
	TotalPaid      decimal.Decimal
	PendingPayment decimal.Decimal
	ByStatus       map[InvoiceStatus]int64
	Recent         []Invoice
	Overdue        []Invoice
}

// GetInvoiceStats computes the dashboard numbers. "overdue" counts invoices
// whose effective status is overdue; such invoices are excluded from the
// "sent" count so the by-status figures partition the total.
func (s *Store) GetInvoiceStats(userID uint) (*InvoiceStats, error) {
	var invs []Invoice
	err := s.invoicesForUser(userID).Preload("Items").
		Order("invoices.issue_date desc").Find(&invs).Error
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stats := &InvoiceStats{ByStatus: map[InvoiceStatus]int64{
		InvoiceStatusDraft:   0,
		InvoiceStatusSent:    0,
		InvoiceStatusPaid:    0,
		InvoiceStatusOverdue: 0,
	}}
	for i := range invs {
		inv := &invs[i]
		total := inv.TotalAmount()
		stats.TotalInvoiced = stats.TotalInvoiced.Add(total)
		if inv.Status == InvoiceStatusPaid {
			stats.TotalPaid = stats.TotalPaid.Add(total)
		}
		stats.ByStatus[inv.EffectiveStatus(now)]++
		if inv.IsOverdue(now) {
			stats.Overdue = append(stats.Overdue, *inv)
		}
		if len(stats.Recent) < 5 {
			stats.Recent = append(stats.Recent, *inv)
		}
	}
	stats.PendingPayment = stats.TotalInvoiced.Sub(stats.TotalPaid)
	return stats, nil
}

// ListInvoicesForExport loads every invoice of the user with items, oldest
// first, for the XLSX export.
func (s *Store) ListInvoicesForExport(userID uint) ([]Invoice, error) {
	var invs []Invoice
	err := s.invoicesForUser(userID).Preload("Items").
		Order("invoices.issue_date asc").Find(&invs).Error
	if err != nil {
		return nil, err
	}
	return invs, nil
}
