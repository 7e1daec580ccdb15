package model_test

import (
	"errors"
	"testing"

	"github.com/lancerdesk/crm/fixtures"
	"github.com/lancerdesk/crm/model"
)

func TestClientCountryNormalization(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	tests := []struct {
		in   string
		want string
	}{
		{"Germany", "DE"},
		{"United States", "US"},
		{"", ""},
		{"Atlantis", "Atlantis"}, // unknown values survive verbatim
	}
	for _, tt := range tests {
		c := &model.Client{Name: "n", Country: tt.in}
		if err := store.CreateClient(c, seed.User.ID); err != nil {
			t.Fatalf("create client with country %q: %v", tt.in, err)
		}
		if c.Country != tt.want {
			t.Errorf("country %q normalized to %q, want %q", tt.in, c.Country, tt.want)
		}
	}
}

func TestDeleteClientWithProjects(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	err := store.DeleteClient(seed.Client.ID, seed.User.ID)
	if !errors.Is(err, model.ErrClientHasProjects) {
		t.Fatalf("err = %v, want ErrClientHasProjects", err)
	}

	if err := store.DeleteProject(seed.Project.ID, seed.User.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteClient(seed.Client.ID, seed.User.ID); err != nil {
		t.Fatalf("delete after removing projects: %v", err)
	}
}

func TestSearchClients(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	for _, c := range []*model.Client{
		{Name: "Beta GmbH", Company: "Beta"},
		{Name: "Gamma Ltd", Company: "Acme Holdings"},
	} {
		if err := store.CreateClient(c, seed.User.ID); err != nil {
			t.Fatal(err)
		}
	}

	// Matches name or company, case insensitive.
	got, err := store.SearchClients("acme", seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("search 'acme' = %d clients, want 2", len(got))
	}

	none, err := store.SearchClients("zzz", seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("search 'zzz' = %d clients, want 0", len(none))
	}
}

func TestClientOwnershipScoping(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	other, err := store.CreateUser("peggy", "peggy@example.com", "peggy password")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadClient(seed.Client.ID, other.ID); err == nil {
		t.Error("foreign user could load client")
	}
	cs, err := store.LoadAllClients(other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 0 {
		t.Errorf("foreign user sees %d clients", len(cs))
	}
}
