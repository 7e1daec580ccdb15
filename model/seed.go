package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedDemoData creates a demo account with a client, a project, logged time
// and one invoice, so a fresh installation has something to look at. It is a
// no-op when the demo user already exists.
func (s *Store) SeedDemoData() error {
	if _, err := s.GetUserByUsername("demo"); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	u, err := s.CreateUser("demo", "demo@example.com", "demo-password")
	if err != nil {
		return fmt.Errorf("cannot create demo user: %w", err)
	}
	_, err = s.UpdateUserProfile(u.ID, UserProfileUpdate{
		FullName:       ptr("Demo Freelancer"),
		Bio:            ptr("Full-stack developer for hire."),
		Specialization: ptr("Web development"),
		HourlyRate:     ptr(decimal.NewFromInt(85)),
	})
	if err != nil {
		return err
	}

	client := &Client{
		Name:    "Jane Doe",
		Email:   "jane@acme.example",
		Company: "Acme Corp",
		Country: "DE",
	}
	if err := s.CreateClient(client, u.ID); err != nil {
		return err
	}

	project := &Project{
		ClientID:    client.ID,
		Title:       "Company website relaunch",
		Description: "New marketing site with CMS integration.",
		Status:      ProjectStatusActive,
		HourlyRate:  decimal.NewNullDecimal(decimal.NewFromInt(95)),
		IsPublic:    true,
	}
	if err := s.CreateProject(project, u.ID); err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i, desc := range []string{"Kickoff and planning", "Layout implementation", "CMS wiring"} {
		e := &TimeEntry{
			ProjectID:   project.ID,
			Description: desc,
			Date:        today.AddDate(0, 0, -7+i),
			Hours:       decimal.NewFromFloat(3.5),
		}
		if err := s.CreateTimeEntry(e, u.ID); err != nil {
			return err
		}
	}

	_, err = s.CreateInvoiceFromTime(CreateInvoiceFromTimeParams{
		ProjectID: project.ID,
		StartDate: FormatDate(today.AddDate(0, 0, -7)),
		EndDate:   FormatDate(today.AddDate(0, 0, -6)),
	}, u.ID)
	return err
}

func ptr[T any](v T) *T { return &v }
