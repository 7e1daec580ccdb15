package model_test

import (
	"os"
	"testing"

	"github.com/lancerdesk/crm/fixtures"
	"github.com/lancerdesk/crm/model"
)

func TestAllowedDocumentName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"contract.pdf", true},
		{"scan.JPG", true},
		{"notes.txt", true},
		{"payload.exe", false},
		{"script.sh", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := model.AllowedDocumentName(tt.name); got != tt.want {
			t.Errorf("AllowedDocumentName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDocumentLifecycle(t *testing.T) {
	store := fixtures.NewTestStore(t)
	store.Config.Basedir = t.TempDir()
	seed := fixtures.SeedTestData(t, store)

	contents := []byte("dummy pdf bytes")
	doc, err := store.CreateDocument(seed.Project.ID, seed.User.ID, "contract.pdf", "contract", contents)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "contract.pdf" {
		t.Errorf("name = %q", doc.Name)
	}
	if doc.StoredName == "contract.pdf" {
		t.Error("stored under the original name")
	}
	if doc.Size != int64(len(contents)) {
		t.Errorf("size = %d, want %d", doc.Size, len(contents))
	}

	onDisk, err := os.ReadFile(store.DocumentPath(doc))
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != string(contents) {
		t.Error("stored file differs from upload")
	}

	other, err := store.CreateUser("oliver", "oliver@example.com", "oliver password")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadDocument(doc.ID, other.ID); err == nil {
		t.Error("foreign user could load document")
	}

	if err := store.DeleteDocument(doc.ID, seed.User.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.DocumentPath(doc)); !os.IsNotExist(err) {
		t.Error("file still on disk after deletion")
	}
	if _, err := store.LoadDocument(doc.ID, seed.User.ID); err == nil {
		t.Error("document record survived deletion")
	}
}
