package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	// InvoiceStatusOverdue is a reporting label, not a stored state: an
	// invoice is overdue when it is sent and its due date has passed.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// IsFinal reports whether the status blocks further mutation and deletion.
func (s InvoiceStatus) IsFinal() bool {
	return s == InvoiceStatusPaid
}

// parseStoredStatus validates a client-supplied status. Overdue is absent on
// purpose: it is derived from sent plus a past due date, never stored.
func parseStoredStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(s); st {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Invoice belongs to exactly one project. Its total is always computed from
// the items, never stored, so it cannot drift.
type Invoice struct {
	gorm.Model
	ProjectID     uint   `gorm:"index;not null"`
	InvoiceNumber string `gorm:"size:50;not null;uniqueIndex"`
	IssueDate     time.Time
	DueDate       time.Time // zero means no due date
	Status        InvoiceStatus `gorm:"type:text;not null;default:draft;index"`
	Notes         string
	Items         []InvoiceItem
}

// InvoiceItem is one line on an invoice. A "Time: ..." or "Work on ..."
// description marks the line as derived from time entries.
type InvoiceItem struct {
	gorm.Model
	InvoiceID   uint `gorm:"index;not null"`
	Description string
	Quantity    decimal.Decimal `gorm:"type:decimal(20,8)"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,8)"`
}

// Total is the line total, quantity times unit price.
func (it *InvoiceItem) Total() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

// TotalAmount sums the line totals. Recomputed on every call.
func (inv *Invoice) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range inv.Items {
		total = total.Add(inv.Items[i].Total())
	}
	return total
}

// IsOverdue reports the query-time overdue label relative to now.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return inv.Status == InvoiceStatusSent && !inv.DueDate.IsZero() && inv.DueDate.Before(now)
}

// EffectiveStatus is the stored status with the overdue label applied.
func (inv *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if inv.IsOverdue(now) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}

// invoicesForUser scopes invoice queries to the requesting user through the
// owning project.
func (s *Store) invoicesForUser(userID uint) *gorm.DB {
	return s.db.Model(&Invoice{}).
		Joins("JOIN projects ON projects.id = invoices.project_id AND projects.deleted_at IS NULL").
		Where("projects.user_id = ?", userID)
}

// LoadInvoice loads an invoice with its items, owner-scoped.
func (s *Store) LoadInvoice(id any, userID uint) (*Invoice, error) {
	var inv Invoice
	err := s.invoicesForUser(userID).
		Preload("Items").
		Where("invoices.id = ?", id).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// --- Status transitions ------------------------------------------------------
//
// draft -> sent -> paid; "overdue" is derived, never written. Nothing leaves
// paid; transition calls on a paid invoice are no-ops.

func (s *Store) changeInvoiceStatus(id any, userID uint, to InvoiceStatus) (*Invoice, error) {
	var inv *Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cur Invoice
		// Lock the row (Postgres: FOR UPDATE; SQLite: no-op)
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Joins("JOIN projects ON projects.id = invoices.project_id AND projects.deleted_at IS NULL").
			Where("projects.user_id = ?", userID).
			Where("invoices.id = ?", id).
			First(&cur).Error; err != nil {
			return err
		}
		if cur.Status.IsFinal() {
			return nil
		}
		if to == InvoiceStatusSent && cur.Status != InvoiceStatusDraft && cur.Status != InvoiceStatusSent {
			return nil
		}
		return tx.Model(&Invoice{}).Where("id = ?", cur.ID).
			Update("status", to).Error
	})
	if err != nil {
		return nil, err
	}
	inv, err = s.LoadInvoice(id, userID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MarkInvoiceSent transitions draft -> sent (sent -> sent is a no-op).
func (s *Store) MarkInvoiceSent(id any, userID uint) (*Invoice, error) {
	return s.changeInvoiceStatus(id, userID, InvoiceStatusSent)
}

// MarkInvoicePaid transitions any non-paid status to paid.
func (s *Store) MarkInvoicePaid(id any, userID uint) (*Invoice, error) {
	return s.changeInvoiceStatus(id, userID, InvoiceStatusPaid)
}
