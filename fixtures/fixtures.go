// Package fixtures provides an in-memory store and canned data for tests.
package fixtures

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lancerdesk/crm/model"
)

// NewTestStore opens a fresh in-memory database with the full schema.
func NewTestStore(t *testing.T) *model.Store {
	t.Helper()
	store, err := model.OpenTest()
	if err != nil {
		t.Fatalf("cannot open test store: %v", err)
	}
	return store
}

// SeedData is what SeedTestData creates: one user with one client and one
// project billed at 100/h.
type SeedData struct {
	User    *model.User
	Client  *model.Client
	Project *model.Project
}

// SeedTestData populates the store with a minimal working account.
func SeedTestData(t *testing.T, store *model.Store) *SeedData {
	t.Helper()
	user, err := store.CreateUser("erin", "erin@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("cannot seed user: %v", err)
	}
	user.HourlyRate = decimal.NewFromInt(50)
	user.FullName = "Erin Weber"
	if _, err := store.UpdateUserProfile(user.ID, model.UserProfileUpdate{
		HourlyRate: &user.HourlyRate,
		FullName:   &user.FullName,
	}); err != nil {
		t.Fatalf("cannot update seed user: %v", err)
	}

	client := &model.Client{Name: "Acme Corp", Company: "Acme", Email: "billing@acme.test"}
	if err := store.CreateClient(client, user.ID); err != nil {
		t.Fatalf("cannot seed client: %v", err)
	}

	project := NewProject(t, store, user.ID, client.ID, WithHourlyRate(100))
	return &SeedData{User: user, Client: client, Project: project}
}

// ProjectOption mutates a project before it is created.
type ProjectOption func(*model.Project)

func WithHourlyRate(rate float64) ProjectOption {
	return func(p *model.Project) {
		p.HourlyRate = decimal.NewNullDecimal(decimal.NewFromFloat(rate))
	}
}

func WithFixedPrice(price float64) ProjectOption {
	return func(p *model.Project) {
		p.FixedPrice = decimal.NewNullDecimal(decimal.NewFromFloat(price))
	}
}

func WithStatus(status model.ProjectStatus) ProjectOption {
	return func(p *model.Project) { p.Status = status }
}

func WithPublic() ProjectOption {
	return func(p *model.Project) { p.IsPublic = true }
}

// NewProject creates a project for the given user and client.
func NewProject(t *testing.T, store *model.Store, userID, clientID uint, opts ...ProjectOption) *model.Project {
	t.Helper()
	p := &model.Project{
		ClientID: clientID,
		Title:    "Website relaunch",
		Status:   model.ProjectStatusActive,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := store.CreateProject(p, userID); err != nil {
		t.Fatalf("cannot create project: %v", err)
	}
	return p
}

// EntryOption mutates a time entry before it is created.
type EntryOption func(*model.TimeEntry)

func NonBillable() EntryOption {
	return func(e *model.TimeEntry) { e.Billable = false }
}

// NewEntry logs time on a project. The date is a YYYY-MM-DD string.
func NewEntry(t *testing.T, store *model.Store, userID, projectID uint, desc, date string, hours float64, opts ...EntryOption) *model.TimeEntry {
	t.Helper()
	d, err := model.ParseDate(date)
	if err != nil {
		t.Fatalf("bad fixture date %q: %v", date, err)
	}
	e := &model.TimeEntry{
		ProjectID:   projectID,
		Description: desc,
		Date:        d,
		Hours:       decimal.NewFromFloat(hours),
		Billable:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := store.CreateTimeEntry(e, userID); err != nil {
		t.Fatalf("cannot create time entry: %v", err)
	}
	return e
}

// Item builds a manual invoice line item.
func Item(desc string, qty, price float64) model.InvoiceItemInput {
	return model.InvoiceItemInput{
		Description: desc,
		Quantity:    decimal.NewFromFloat(qty),
		UnitPrice:   decimal.NewFromFloat(price),
	}
}
