package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Descriptions with these prefixes mark invoice items as derived from time
// entries. The formats are load-bearing: the legacy reversal path parses the
// calendar date back out of them.
const (
	timeItemPrefix = "Time: "
	workItemPrefix = "Work on "
)

// InvoiceItemInput is one manual line item as supplied by the caller.
type InvoiceItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateInvoiceParams is the input for manual invoice creation. Date fields
// are raw strings; they are validated before anything is written.
type CreateInvoiceParams struct {
	ProjectID          uint
	Items              []InvoiceItemInput
	IncludeTimeEntries bool
	TimeEntryIDs       []uint
	IssueDate          string
	DueDate            string
	Status             string
	Notes              string
}

// CreateInvoiceFromTimeParams is the input for billing unbilled time.
type CreateInvoiceFromTimeParams struct {
	ProjectID uint
	StartDate string
	EndDate   string
	Notes     string
}

// invoiceNumberPrefix is the per-user, per-year namespace of invoice numbers.
func invoiceNumberPrefix(userID uint, year int) string {
	return fmt.Sprintf("INV-%d-%d-", userID, year)
}

// NextInvoiceNumber returns the number the next invoice of this user and year
// would get: the count of existing numbers in the prefix, plus one, as a
// zero-padded 4-digit suffix.
func (s *Store) NextInvoiceNumber(userID uint, year int) (string, error) {
	return s.nextInvoiceNumber(s.db, userID, year)
}

func (s *Store) nextInvoiceNumber(tx *gorm.DB, userID uint, year int) (string, error) {
	prefix := invoiceNumberPrefix(userID, year)
	var count int64
	err := tx.Model(&Invoice{}).
		Joins("JOIN projects ON projects.id = invoices.project_id AND projects.deleted_at IS NULL").
		Where("projects.user_id = ?", userID).
		Where("invoices.invoice_number LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// lockUserForNumbering serializes invoice numbering per user. Two concurrent
// creations for the same user would otherwise count the same prefix and
// produce the same sequence; the row lock makes the second transaction wait.
// On SQLite the clause is a no-op and the single writer serializes instead.
// The unique index on invoice_number is the backstop either way.
func lockUserForNumbering(tx *gorm.DB, userID uint) error {
	var u User
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, userID).Error
}

func isDuplicateNumber(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// createNumbered inserts the invoice under a freshly counted number. On a
// unique violation it recounts and retries once. The retry only works on
// SQLite; Postgres aborts the whole transaction on the violation, so there
// the error propagates and the user row lock is what prevents the collision
// in the first place.
func (s *Store) createNumbered(tx *gorm.DB, inv *Invoice, userID uint) error {
	year := time.Now().UTC().Year()
	for attempt := 0; attempt < 2; attempt++ {
		number, err := s.nextInvoiceNumber(tx, userID, year)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
		err = tx.Create(inv).Error
		if err == nil {
			return nil
		}
		if !isDuplicateNumber(err) || attempt == 1 {
			return err
		}
		inv.ID = 0
	}
	return nil
}

// CreateInvoice creates an invoice with the supplied manual items and,
// optionally, the listed unbilled time entries folded in as items. All writes
// happen in one transaction: on any failure no invoice, item or invoiced flag
// survives.
func (s *Store) CreateInvoice(params CreateInvoiceParams, userID uint) (*Invoice, error) {
	issueDate := time.Now().UTC().Truncate(24 * time.Hour)
	if params.IssueDate != "" {
		var err error
		if issueDate, err = ParseDate(params.IssueDate); err != nil {
			return nil, err
		}
	}
	var dueDate time.Time
	if params.DueDate != "" {
		var err error
		if dueDate, err = ParseDate(params.DueDate); err != nil {
			return nil, err
		}
	}

	project, err := s.LoadProject(params.ProjectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReference
		}
		return nil, err
	}
	owner, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	status := InvoiceStatusDraft
	if params.Status != "" {
		if status, err = parseStoredStatus(params.Status); err != nil {
			return nil, err
		}
	}

	inv := &Invoice{
		ProjectID: project.ID,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Status:    status,
		Notes:     params.Notes,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockUserForNumbering(tx, userID); err != nil {
			return err
		}
		if err := s.createNumbered(tx, inv, userID); err != nil {
			return err
		}
		for _, in := range params.Items {
			item := InvoiceItem{
				InvoiceID:   inv.ID,
				Description: in.Description,
				Quantity:    in.Quantity,
				UnitPrice:   in.UnitPrice,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		if params.IncludeTimeEntries && len(params.TimeEntryIDs) > 0 {
			var entries []TimeEntry
			err := tx.Where("project_id = ? AND id IN ? AND invoiced = ?",
				project.ID, params.TimeEntryIDs, false).
				Find(&entries).Error
			if err != nil {
				return err
			}
			rate := project.BillingRate(owner)
			for i := range entries {
				e := &entries[i]
				item := InvoiceItem{
					InvoiceID:   inv.ID,
					Description: fmt.Sprintf("%s%s (%s)", timeItemPrefix, e.Description, FormatDate(e.Date)),
					Quantity:    e.Hours,
					UnitPrice:   rate,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
				err := tx.Model(&TimeEntry{}).Where("id = ?", e.ID).
					Updates(map[string]any{"invoiced": true, "invoice_id": inv.ID}).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.LoadInvoice(inv.ID, userID)
}

// CreateInvoiceFromTime bills all unbilled billable time of a project,
// optionally restricted to an inclusive date range. Entries are grouped by
// calendar date: one invoice item per date, quantity the summed hours.
func (s *Store) CreateInvoiceFromTime(params CreateInvoiceFromTimeParams, userID uint) (*Invoice, error) {
	var startDate, endDate time.Time
	var err error
	if params.StartDate != "" {
		if startDate, err = ParseDate(params.StartDate); err != nil {
			return nil, err
		}
	}
	if params.EndDate != "" {
		if endDate, err = ParseDate(params.EndDate); err != nil {
			return nil, err
		}
	}

	project, err := s.LoadProject(params.ProjectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReference
		}
		return nil, err
	}
	owner, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	notes := params.Notes
	if notes == "" {
		notes = fmt.Sprintf("Invoice for time worked on %s", project.Title)
	}
	now := time.Now().UTC().Truncate(24 * time.Hour)
	inv := &Invoice{
		ProjectID: project.ID,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, 30),
		Status:    InvoiceStatusDraft,
		Notes:     notes,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("project_id = ? AND billable = ? AND invoiced = ?", project.ID, true, false)
		if !startDate.IsZero() {
			q = q.Where("date >= ?", startDate)
		}
		if !endDate.IsZero() {
			q = q.Where("date <= ?", endDate)
		}
		var entries []TimeEntry
		if err := q.Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return ErrNoBillableWork
		}

		if err := lockUserForNumbering(tx, userID); err != nil {
			return err
		}
		if err := s.createNumbered(tx, inv, userID); err != nil {
			return err
		}

		byDate := map[string][]*TimeEntry{}
		for i := range entries {
			key := FormatDate(entries[i].Date)
			byDate[key] = append(byDate[key], &entries[i])
		}
		dates := make([]string, 0, len(byDate))
		for d := range byDate {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		rate := project.BillingRate(owner)
		for _, date := range dates {
			group := byDate[date]
			hours := decimal.Zero
			descs := make([]string, 0, len(group))
			for _, e := range group {
				hours = hours.Add(e.Hours)
				descs = append(descs, e.Description)
			}
			item := InvoiceItem{
				InvoiceID:   inv.ID,
				Description: fmt.Sprintf("%s%s: %s", workItemPrefix, date, strings.Join(descs, ", ")),
				Quantity:    hours,
				UnitPrice:   rate,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			for _, e := range group {
				err := tx.Model(&TimeEntry{}).Where("id = ?", e.ID).
					Updates(map[string]any{"invoiced": true, "invoice_id": inv.ID}).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.LoadInvoice(inv.ID, userID)
}

// InvoiceUpdate carries the mutable invoice fields; nil means "leave
// unchanged". A non-nil Items slice replaces the full item list.
type InvoiceUpdate struct {
	IssueDate *string
	DueDate   *string // empty string clears the due date
	Status    *string
	Notes     *string
	Items     *[]InvoiceItemInput
}

// UpdateInvoice applies the update. Paid invoices reject any update that does
// not itself keep the status at paid. Replacing items deletes every existing
// item and inserts the new set; invoiced flags on time entries are NOT
// re-derived here.
func (s *Store) UpdateInvoice(id any, userID uint, upd InvoiceUpdate) (*Invoice, error) {
	inv, err := s.LoadInvoice(id, userID)
	if err != nil {
		return nil, err
	}
	if inv.Status.IsFinal() && (upd.Status == nil || InvoiceStatus(*upd.Status) != InvoiceStatusPaid) {
		return nil, ErrImmutableInvoice
	}

	changes := map[string]any{}
	if upd.IssueDate != nil {
		d, err := ParseDate(*upd.IssueDate)
		if err != nil {
			return nil, err
		}
		changes["issue_date"] = d
	}
	if upd.DueDate != nil {
		if *upd.DueDate == "" {
			changes["due_date"] = time.Time{}
		} else {
			d, err := ParseDate(*upd.DueDate)
			if err != nil {
				return nil, err
			}
			changes["due_date"] = d
		}
	}
	if upd.Status != nil {
		st, err := parseStoredStatus(*upd.Status)
		if err != nil {
			return nil, err
		}
		changes["status"] = st
	}
	if upd.Notes != nil {
		changes["notes"] = *upd.Notes
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(changes) > 0 {
			if err := tx.Model(&Invoice{}).Where("id = ?", inv.ID).Updates(changes).Error; err != nil {
				return err
			}
		}
		if upd.Items != nil {
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&InvoiceItem{}).Error; err != nil {
				return err
			}
			for _, in := range *upd.Items {
				item := InvoiceItem{
					InvoiceID:   inv.ID,
					Description: in.Description,
					Quantity:    in.Quantity,
					UnitPrice:   in.UnitPrice,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.LoadInvoice(inv.ID, userID)
}

// DeleteInvoice removes a non-paid invoice and its items, releasing the time
// entries it consumed. Entries linked through invoice_id are released
// exactly; unlinked entries (written before the link existed) go through the
// legacy description-matching release, whose failures are swallowed.
func (s *Store) DeleteInvoice(id any, userID uint) error {
	inv, err := s.LoadInvoice(id, userID)
	if err != nil {
		return err
	}
	if inv.Status.IsFinal() {
		return ErrImmutableInvoice
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&TimeEntry{}).Where("invoice_id = ?", inv.ID).
			Updates(map[string]any{"invoiced": false, "invoice_id": nil}).Error
		if err != nil {
			return err
		}
		for i := range inv.Items {
			date, ok := parseTimeItemDate(inv.Items[i].Description)
			if !ok {
				continue
			}
			// Legacy release: by (project, date) only, so it can free
			// unrelated same-day entries. Restricted to unlinked rows.
			err := tx.Model(&TimeEntry{}).
				Where("project_id = ? AND date = ? AND invoiced = ? AND invoice_id IS NULL",
					inv.ProjectID, date, true).
				Update("invoiced", false).Error
			if err != nil {
				return err
			}
		}
		// Hard delete: the unique number index must free the slot, and the
		// count-based numbering scheme reissues it.
		if err := tx.Unscoped().Where("invoice_id = ?", inv.ID).Delete(&InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&Invoice{}, inv.ID).Error
	})
}

// parseTimeItemDate extracts the calendar date from a time-derived item
// description. Supports both marker formats:
//
//	Time: fix login bug (2024-01-05)
//	Work on 2024-01-05: fix login bug, code review
//
// Returns ok=false for anything else, including malformed dates.
func parseTimeItemDate(desc string) (time.Time, bool) {
	switch {
	case strings.HasPrefix(desc, strings.TrimSuffix(timeItemPrefix, " ")):
		_, rest, found := strings.Cut(desc, "(")
		if !found {
			return time.Time{}, false
		}
		dateStr, _, found := strings.Cut(rest, ")")
		if !found {
			return time.Time{}, false
		}
		d, err := ParseDate(dateStr)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	case strings.HasPrefix(desc, workItemPrefix):
		rest := strings.TrimPrefix(desc, workItemPrefix)
		dateStr, _, found := strings.Cut(rest, ":")
		if !found {
			return time.Time{}, false
		}
		d, err := ParseDate(strings.TrimSpace(dateStr))
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	return time.Time{}, false
}
