package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Project is a unit of work for one client. It owns time entries, invoices
// and documents; deleting the project removes all of them.
type Project struct {
	gorm.Model
	UserID      uint `gorm:"index;not null"`
	ClientID    uint `gorm:"index;not null"`
	Title       string
	Description string
	Status      ProjectStatus `gorm:"type:text;not null;default:pending;check:status IN ('pending','active','completed','cancelled');index"`
	StartDate   time.Time
	EndDate     time.Time
	HourlyRate  decimal.NullDecimal `gorm:"type:decimal(20,8)"`
	FixedPrice  decimal.NullDecimal `gorm:"type:decimal(20,8)"`
	IsPublic    bool                `gorm:"not null;default:false"`
}

// BillingRate resolves the unit price used for time-derived invoice items:
// project rate, then the owner's default rate, then zero.
func (p *Project) BillingRate(owner *User) decimal.Decimal {
	if p.HourlyRate.Valid {
		return p.HourlyRate.Decimal
	}
	if owner != nil && !owner.HourlyRate.IsZero() {
		return owner.HourlyRate
	}
	return decimal.Zero
}

// CreateProject persists a project after checking that the referenced client
// belongs to the same user.
func (s *Store) CreateProject(p *Project, userID uint) error {
	if _, err := s.LoadClient(p.ClientID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidReference
		}
		return err
	}
	p.UserID = userID
	if p.Status == "" {
		p.Status = ProjectStatusPending
	}
	return s.db.Create(p).Error
}

func (s *Store) LoadProject(id any, userID uint) (*Project, error) {
	var p Project
	if err := s.db.Where("user_id = ?", userID).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectListQuery captures the optional list filters.
type ProjectListQuery struct {
	Status   string
	ClientID uint
	IsPublic *bool
}

func (s *Store) ListProjects(userID uint, q ProjectListQuery) ([]Project, error) {
	db := s.db.Where("user_id = ?", userID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.ClientID != 0 {
		db = db.Where("client_id = ?", q.ClientID)
	}
	if q.IsPublic != nil {
		db = db.Where("is_public = ?", *q.IsPublic)
	}
	var ps []Project
	if err := db.Order("created_at desc").Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

// SaveProject updates a project. A changed client reference is re-checked
// against the user's clients.
func (s *Store) SaveProject(p *Project, userID uint) error {
	if p.UserID != userID {
		return ErrInvalidReference
	}
	if _, err := s.LoadClient(p.ClientID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidReference
		}
		return err
	}
	return s.db.Save(p).Error
}

// DeleteProject removes the project and everything it owns: time entries,
// invoices with their items, and document records.
func (s *Store) DeleteProject(id any, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p Project
		if err := tx.Where("user_id = ?", userID).First(&p, id).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&TimeEntry{}).Error; err != nil {
			return err
		}
		var invIDs []uint
		if err := tx.Model(&Invoice{}).Where("project_id = ?", p.ID).Pluck("id", &invIDs).Error; err != nil {
			return err
		}
		if len(invIDs) > 0 {
			// Invoices go out unscoped so their numbers leave the unique
			// index; soft-deleted leftovers would block renumbering.
			if err := tx.Unscoped().Where("invoice_id IN ?", invIDs).Delete(&InvoiceItem{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("project_id = ?", p.ID).Delete(&Invoice{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&Document{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

// ProjectStats summarizes the user's projects for the dashboard.
type ProjectStats struct {
	Total    int64
	ByStatus map[ProjectStatus]int64
}

func (s *Store) GetProjectStats(userID uint) (*ProjectStats, error) {
	stats := &ProjectStats{ByStatus: map[ProjectStatus]int64{}}
	if err := s.db.Model(&Project{}).Where("user_id = ?", userID).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	for _, st := range []ProjectStatus{ProjectStatusPending, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusCancelled} {
		var n int64
		if err := s.db.Model(&Project{}).Where("user_id = ? AND status = ?", userID, st).Count(&n).Error; err != nil {
			return nil, err
		}
		stats.ByStatus[st] = n
	}
	return stats, nil
}
