package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lancerdesk/crm/fixtures"
	"github.com/lancerdesk/crm/model"
)

func TestAPITokenRoundtrip(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	plain, rec, err := store.CreateAPIToken(seed.User.ID, "ci", nil)
	if err != nil {
		t.Fatal(err)
	}
	if plain == "" {
		t.Fatal("no plaintext token returned")
	}
	if !strings.HasPrefix(plain, rec.TokenPrefix) {
		t.Errorf("token %q does not start with stored prefix %q", plain, rec.TokenPrefix)
	}
	if rec.TokenHash == plain {
		t.Error("token stored in plaintext")
	}

	got, err := store.ValidateAPIToken(plain)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != seed.User.ID {
		t.Errorf("validated token belongs to user %d, want %d", got.UserID, seed.User.ID)
	}
}

func TestAPITokenRejectsGarbage(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	plain, _, err := store.CreateAPIToken(seed.User.ID, "ci", nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, bad := range []string{"", "nonsense", plain + "x", plain[:len(plain)-1]} {
		if _, err := store.ValidateAPIToken(bad); err == nil {
			t.Errorf("token %q validated", bad)
		}
	}
}

func TestAPITokenExpiry(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	past := time.Now().UTC().Add(-time.Hour)
	plain, _, err := store.CreateAPIToken(seed.User.ID, "expired", &past)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.ValidateAPIToken(plain); !errors.Is(err, model.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestAPITokenRevocation(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	plain, rec, err := store.CreateAPIToken(seed.User.ID, "to revoke", nil)
	if err != nil {
		t.Fatal(err)
	}

	other, err := store.CreateUser("eve", "eve@example.com", "eve password")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RevokeAPIToken(other.ID, rec.ID); err == nil {
		t.Error("foreign user revoked token")
	}

	if err := store.RevokeAPIToken(seed.User.ID, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ValidateAPIToken(plain); err == nil {
		t.Error("revoked token still validates")
	}
}
