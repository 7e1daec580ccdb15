package model

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Portfolio is the public projection of a user: profile fields plus the
// completed projects flagged public. It is derived on every read, nothing
// here is stored separately.
type Portfolio struct {
	Username       string
	Name           string
	Bio            string
	ProfileImage   string
	Specialization string
	Email          string
	IsPublic       bool
	Projects       []PortfolioProject
}

type PortfolioProject struct {
	ID          uint
	Title       string
	Description string
	StartDate   string
	EndDate     string
	TotalHours  decimal.Decimal
	TotalBilled decimal.Decimal
	IsPublic    bool
}

// ErrPortfolioPrivate is returned when a stranger requests a private
// portfolio. The controller renders it as not-found so private accounts are
// not enumerable.
var ErrPortfolioPrivate = errors.New("portfolio is private")

// projectTotals derives logged hours and the billed value of a project:
// fixed price when set, otherwise hours times the rate fallback chain.
func (s *Store) projectTotals(p *Project, owner *User) (hours, billed decimal.Decimal, err error) {
	var entries []TimeEntry
	if err = s.db.Where("project_id = ?", p.ID).Find(&entries).Error; err != nil {
		return
	}
	for i := range entries {
		hours = hours.Add(entries[i].Hours)
	}
	if p.FixedPrice.Valid {
		billed = p.FixedPrice.Decimal
		return
	}
	billed = hours.Mul(p.BillingRate(owner))
	return
}

// LoadPortfolio builds the public view of a user. A private portfolio is
// only visible to its owner (viewerID); anyone else gets
// ErrPortfolioPrivate. At most the five newest completed public projects are
// included.
func (s *Store) LoadPortfolio(username string, viewerID uint) (*Portfolio, error) {
	u, err := s.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if !u.IsPublic && viewerID != u.ID {
		return nil, ErrPortfolioPrivate
	}

	pf := &Portfolio{
		Username:       u.Username,
		Name:           u.FullName,
		Bio:            u.Bio,
		ProfileImage:   u.ProfileImage,
		Specialization: u.Specialization,
		Email:          u.Email,
		IsPublic:       u.IsPublic,
	}

	var projects []Project
	err = s.db.Where("user_id = ? AND status = ? AND is_public = ?",
		u.ID, ProjectStatusCompleted, true).
		Order("created_at desc").Limit(5).Find(&projects).Error
	if err != nil {
		return nil, err
	}
	for i := range projects {
		p := &projects[i]
		hours, billed, err := s.projectTotals(p, u)
		if err != nil {
			return nil, err
		}
		pf.Projects = append(pf.Projects, PortfolioProject{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			StartDate:   FormatDate(p.StartDate),
			EndDate:     FormatDate(p.EndDate),
			TotalHours:  hours,
			TotalBilled: billed,
			IsPublic:    p.IsPublic,
		})
	}
	return pf, nil
}

// PortfolioSettings is the owner's editing view: profile fields plus every
// completed project, public or not, so visibility can be toggled.
type PortfolioSettings struct {
	Username       string
	Name           string
	Bio            string
	ProfileImage   string
	Specialization string
	IsPublic       bool
	Projects       []PortfolioProject
}

func (s *Store) LoadPortfolioSettings(userID uint) (*PortfolioSettings, error) {
	u, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	settings := &PortfolioSettings{
		Username:       u.Username,
		Name:           u.FullName,
		Bio:            u.Bio,
		ProfileImage:   u.ProfileImage,
		Specialization: u.Specialization,
		IsPublic:       u.IsPublic,
	}
	var projects []Project
	err = s.db.Where("user_id = ? AND status = ?", userID, ProjectStatusCompleted).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	for i := range projects {
		p := &projects[i]
		hours, billed, err := s.projectTotals(p, u)
		if err != nil {
			return nil, err
		}
		settings.Projects = append(settings.Projects, PortfolioProject{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			StartDate:   FormatDate(p.StartDate),
			EndDate:     FormatDate(p.EndDate),
			TotalHours:  hours,
			TotalBilled: billed,
			IsPublic:    p.IsPublic,
		})
	}
	return settings, nil
}

// PortfolioSettingsUpdate mutates the public profile and per-project
// visibility flags. Project references not owned by the user are ignored.
type PortfolioSettingsUpdate struct {
	Bio            *string
	Specialization *string
	IsPublic       *bool
	Projects       []ProjectVisibility
}

type ProjectVisibility struct {
	ID       uint
	IsPublic bool
}

func (s *Store) UpdatePortfolioSettings(userID uint, upd PortfolioSettingsUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		changes := map[string]any{}
		if upd.Bio != nil {
			changes["bio"] = *upd.Bio
		}
		if upd.Specialization != nil {
			changes["specialization"] = *upd.Specialization
		}
		if upd.IsPublic != nil {
			changes["is_public"] = *upd.IsPublic
		}
		if len(changes) > 0 {
			if err := tx.Model(&User{}).Where("id = ?", userID).Updates(changes).Error; err != nil {
				return err
			}
		}
		for _, pv := range upd.Projects {
			err := tx.Model(&Project{}).
				Where("id = ? AND user_id = ?", pv.ID, userID).
				Update("is_public", pv.IsPublic).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
