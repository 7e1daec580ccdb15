package model

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TimeEntry is one block of logged work on a project. Once an entry has been
// consumed into an invoice its hours, billable flag and project are frozen;
// the flag is only released again when that invoice is deleted.
type TimeEntry struct {
	gorm.Model
	ProjectID   uint `gorm:"index;not null"`
	Description string
	Date        time.Time
	Hours       decimal.Decimal `gorm:"type:decimal(20,8)"`
	Billable    bool            `gorm:"not null;default:true"`
	Invoiced    bool            `gorm:"not null;default:false"`
	// InvoiceID links the entry to the invoice that consumed it, so deleting
	// the invoice can release exactly these entries. Entries written before
	// the link existed carry NULL and fall back to description matching.
	InvoiceID *uint `gorm:"index"`
}

// timeEntriesForUser scopes time entry queries to the requesting user through
// the owning project.
func (s *Store) timeEntriesForUser(userID uint) *gorm.DB {
	return s.db.Model(&TimeEntry{}).
		Joins("JOIN projects ON projects.id = time_entries.project_id AND projects.deleted_at IS NULL").
		Where("projects.user_id = ?", userID)
}

// CreateTimeEntry persists an entry after checking project ownership.
func (s *Store) CreateTimeEntry(e *TimeEntry, userID uint) error {
	if _, err := s.LoadProject(e.ProjectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidReference
		}
		return err
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC().Truncate(24 * time.Hour)
	}
	e.Invoiced = false
	e.InvoiceID = nil
	return s.db.Create(e).Error
}

func (s *Store) LoadTimeEntry(id any, userID uint) (*TimeEntry, error) {
	var e TimeEntry
	err := s.timeEntriesForUser(userID).Where("time_entries.id = ?", id).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// TimeEntryListQuery captures the optional list filters.
type TimeEntryListQuery struct {
	ProjectID uint
	StartDate time.Time
	EndDate   time.Time
	Billable  *bool
	Invoiced  *bool
}

func (s *Store) ListTimeEntries(userID uint, q TimeEntryListQuery) ([]TimeEntry, error) {
	db := s.timeEntriesForUser(userID)
	if q.ProjectID != 0 {
		db = db.Where("time_entries.project_id = ?", q.ProjectID)
	}
	if !q.StartDate.IsZero() {
		db = db.Where("time_entries.date >= ?", q.StartDate)
	}
	if !q.EndDate.IsZero() {
		db = db.Where("time_entries.date <= ?", q.EndDate)
	}
	if q.Billable != nil {
		db = db.Where("time_entries.billable = ?", *q.Billable)
	}
	if q.Invoiced != nil {
		db = db.Where("time_entries.invoiced = ?", *q.Invoiced)
	}
	var es []TimeEntry
	if err := db.Order("time_entries.date desc").Find(&es).Error; err != nil {
		return nil, err
	}
	return es, nil
}

// TimeEntryUpdate carries the mutable fields; nil means "leave unchanged".
type TimeEntryUpdate struct {
	ProjectID   *uint
	Description *string
	Date        *time.Time
	Hours       *decimal.Decimal
	Billable    *bool
}

// UpdateTimeEntry applies the update. For invoiced entries, hours, billable
// and project may only be "changed" to their current values.
func (s *Store) UpdateTimeEntry(id any, userID uint, upd TimeEntryUpdate) (*TimeEntry, error) {
	e, err := s.LoadTimeEntry(id, userID)
	if err != nil {
		return nil, err
	}
	if e.Invoiced {
		if upd.Hours != nil && !upd.Hours.Equal(e.Hours) {
			return nil, ErrEntryInvoiced
		}
		if upd.Billable != nil && *upd.Billable != e.Billable {
			return nil, ErrEntryInvoiced
		}
		if upd.ProjectID != nil && *upd.ProjectID != e.ProjectID {
			return nil, ErrEntryInvoiced
		}
	}
	if upd.ProjectID != nil && *upd.ProjectID != e.ProjectID {
		if _, err := s.LoadProject(*upd.ProjectID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidReference
			}
			return nil, err
		}
		e.ProjectID = *upd.ProjectID
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Date != nil {
		e.Date = *upd.Date
	}
	if upd.Hours != nil {
		e.Hours = *upd.Hours
	}
	if upd.Billable != nil {
		e.Billable = *upd.Billable
	}
	if err := s.db.Save(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteTimeEntry removes an entry. Invoiced entries are protected.
func (s *Store) DeleteTimeEntry(id any, userID uint) error {
	e, err := s.LoadTimeEntry(id, userID)
	if err != nil {
		return err
	}
	if e.Invoiced {
		return ErrEntryInvoiced
	}
	return s.db.Delete(e).Error
}

// TimeSummary aggregates logged hours over a date range.
type TimeSummary struct {
	StartDate       time.Time
	EndDate         time.Time
	TotalHours      decimal.Decimal
	BillableHours   decimal.Decimal
	BillablePercent decimal.Decimal
	ByProject       []ProjectHours
	ByDay           []DayHours
}

type ProjectHours struct {
	ProjectID    uint
	ProjectTitle string
	Hours        decimal.Decimal
}

type DayHours struct {
	Date  time.Time
	Hours decimal.Decimal
}

// GetTimeSummary computes the summary for [start, end]. Zero bounds default
// to the current month up to today.
func (s *Store) GetTimeSummary(userID uint, start, end time.Time) (*TimeSummary, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if start.IsZero() {
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = today
	}
	sum := &TimeSummary{StartDate: start, EndDate: end}

	es, err := s.ListTimeEntries(userID, TimeEntryListQuery{StartDate: start, EndDate: end})
	if err != nil {
		return nil, err
	}

	byProject := map[uint]decimal.Decimal{}
	byDay := map[string]decimal.Decimal{}
	for _, e := range es {
		sum.TotalHours = sum.TotalHours.Add(e.Hours)
		if e.Billable {
			sum.BillableHours = sum.BillableHours.Add(e.Hours)
		}
		byProject[e.ProjectID] = byProject[e.ProjectID].Add(e.Hours)
		key := FormatDate(e.Date)
		byDay[key] = byDay[key].Add(e.Hours)
	}
	if sum.TotalHours.IsPositive() {
		sum.BillablePercent = sum.BillableHours.Div(sum.TotalHours).Mul(decimal.NewFromInt(100)).Round(2)
	}

	for pid, hours := range byProject {
		p, err := s.LoadProject(pid, userID)
		if err != nil {
			return nil, err
		}
		sum.ByProject = append(sum.ByProject, ProjectHours{ProjectID: pid, ProjectTitle: p.Title, Hours: hours})
	}
	sort.Slice(sum.ByProject, func(i, j int) bool {
		return sum.ByProject[i].ProjectID < sum.ByProject[j].ProjectID
	})

	// One bucket per calendar day, zero-filled, so charts have no gaps.
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		sum.ByDay = append(sum.ByDay, DayHours{Date: d, Hours: byDay[FormatDate(d)]})
	}
	return sum, nil
}
