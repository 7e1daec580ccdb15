package model_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lancerdesk/crm/fixtures"
	"github.com/lancerdesk/crm/model"
)

func TestInvoiceNumberSequence(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	year := time.Now().UTC().Year()
	for i := 1; i <= 3; i++ {
		inv, err := store.CreateInvoice(model.CreateInvoiceParams{
			ProjectID: seed.Project.ID,
			Items:     []model.InvoiceItemInput{fixtures.Item("Consulting", 1, 100)},
		}, seed.User.ID)
		if err != nil {
			t.Fatalf("create invoice %d: %v", i, err)
		}
		want := fmt.Sprintf("INV-%d-%d-%04d", seed.User.ID, year, i)
		if inv.InvoiceNumber != want {
			t.Errorf("invoice %d: number = %q, want %q", i, inv.InvoiceNumber, want)
		}
	}
}

func TestInvoiceNumberScopedPerUser(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	other, err := store.CreateUser("frank", "frank@example.com", "another password")
	if err != nil {
		t.Fatal(err)
	}
	otherClient := &model.Client{Name: "Globex"}
	if err := store.CreateClient(otherClient, other.ID); err != nil {
		t.Fatal(err)
	}
	otherProject := fixtures.NewProject(t, store, other.ID, otherClient.ID, fixtures.WithHourlyRate(80))

	if _, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Items:     []model.InvoiceItemInput{fixtures.Item("Work", 1, 100)},
	}, seed.User.ID); err != nil {
		t.Fatal(err)
	}
	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: otherProject.ID,
		Items:     []model.InvoiceItemInput{fixtures.Item("Work", 1, 80)},
	}, other.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Each user counts from 0001 in their own namespace.
	want := fmt.Sprintf("INV-%d-%d-0001", other.ID, time.Now().UTC().Year())
	if inv.InvoiceNumber != want {
		t.Errorf("number = %q, want %q", inv.InvoiceNumber, want)
	}
}

func TestCreateInvoiceWithTimeEntries(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	e1 := fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "API design", "2026-03-02", 4)
	e2 := fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Implementation", "2026-03-03", 6)

	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID:          seed.Project.ID,
		Items:              []model.InvoiceItemInput{fixtures.Item("Setup fee", 1, 250)},
		IncludeTimeEntries: true,
		TimeEntryIDs:       []uint{e1.ID, e2.ID},
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	if len(inv.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(inv.Items))
	}
	// 250 + (4+6)*100
	if got := inv.TotalAmount().String(); got != "1250" {
		t.Errorf("total = %s, want 1250", got)
	}

	found := false
	for _, it := range inv.Items {
		if it.Description == "Time: API design (2026-03-02)" {
			found = true
			if it.UnitPrice.String() != "100" {
				t.Errorf("time item rate = %s, want project rate 100", it.UnitPrice.String())
			}
		}
	}
	if !found {
		t.Errorf("expected a derived time item, got %+v", inv.Items)
	}

	for _, id := range []uint{e1.ID, e2.ID} {
		e, err := store.LoadTimeEntry(id, seed.User.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !e.Invoiced {
			t.Errorf("entry %d not marked invoiced", id)
		}
		if e.InvoiceID == nil || *e.InvoiceID != inv.ID {
			t.Errorf("entry %d not linked to invoice %d", id, inv.ID)
		}
	}
}

func TestCreateInvoiceSkipsAlreadyInvoicedEntries(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	e := fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Review", "2026-03-05", 2)
	if _, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID:          seed.Project.ID,
		IncludeTimeEntries: true,
		TimeEntryIDs:       []uint{e.ID},
	}, seed.User.ID); err != nil {
		t.Fatal(err)
	}

	second, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID:          seed.Project.ID,
		Items:              []model.InvoiceItemInput{fixtures.Item("Extra", 1, 10)},
		IncludeTimeEntries: true,
		TimeEntryIDs:       []uint{e.ID},
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Items) != 1 {
		t.Errorf("invoiced entry was billed twice: items = %+v", second.Items)
	}
}

func TestCreateInvoiceRejectsBadDate(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	_, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		IssueDate: "03/02/2026",
	}, seed.User.ID)
	if !errors.Is(err, model.ErrInvalidDateFormat) {
		t.Fatalf("err = %v, want ErrInvalidDateFormat", err)
	}

	// Nothing may have been written.
	invs, _, err := store.ListInvoices(seed.User.ID, model.InvoiceListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 0 {
		t.Errorf("invoice created despite invalid date: %+v", invs)
	}
}

func TestInvoiceStatusValidation(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	// Overdue is derived, never stored, and garbage is garbage.
	for _, status := range []string{"overdue", "banana"} {
		_, err := store.CreateInvoice(model.CreateInvoiceParams{
			ProjectID: seed.Project.ID,
			Status:    status,
			Items:     []model.InvoiceItemInput{fixtures.Item("Work", 1, 100)},
		}, seed.User.ID)
		if !errors.Is(err, model.ErrInvalidStatus) {
			t.Errorf("create with status %q: err = %v, want ErrInvalidStatus", status, err)
		}
	}

	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Status:    "sent",
		Items:     []model.InvoiceItemInput{fixtures.Item("Work", 1, 100)},
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != model.InvoiceStatusSent {
		t.Errorf("status = %q, want sent", inv.Status)
	}

	bad := "overdue"
	if _, err := store.UpdateInvoice(inv.ID, seed.User.ID, model.InvoiceUpdate{Status: &bad}); !errors.Is(err, model.ErrInvalidStatus) {
		t.Errorf("update to %q: err = %v, want ErrInvalidStatus", bad, err)
	}
	got, err := store.LoadInvoice(inv.ID, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.InvoiceStatusSent {
		t.Errorf("stored status after rejected update = %q, want sent", got.Status)
	}
}

func TestCreateInvoiceForeignProject(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	other, err := store.CreateUser("mallory", "mallory@example.com", "mallory password")
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Items:     []model.InvoiceItemInput{fixtures.Item("Work", 1, 1)},
	}, other.ID)
	if !errors.Is(err, model.ErrInvalidReference) {
		t.Fatalf("err = %v, want ErrInvalidReference", err)
	}
}

func TestCreateInvoiceFromTime(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Design", "2026-04-01", 3)
	fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Refinement", "2026-04-01", 2)
	fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Build", "2026-04-02", 5)
	fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Internal call", "2026-04-01", 1, fixtures.NonBillable())
	fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Out of range", "2026-05-01", 8)

	inv, err := store.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: seed.Project.ID,
		StartDate: "2026-04-01",
		EndDate:   "2026-04-30",
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	if len(inv.Items) != 2 {
		t.Fatalf("items = %d, want one per worked date", len(inv.Items))
	}
	if inv.Items[0].Description != "Work on 2026-04-01: Design, Refinement" {
		t.Errorf("first item = %q", inv.Items[0].Description)
	}
	if inv.Items[0].Quantity.String() != "5" {
		t.Errorf("first item hours = %s, want 5", inv.Items[0].Quantity.String())
	}
	if inv.Items[1].Description != "Work on 2026-04-02: Build" {
		t.Errorf("second item = %q", inv.Items[1].Description)
	}
	// (3+2+5) hours * 100
	if inv.TotalAmount().String() != "1000" {
		t.Errorf("total = %s, want 1000", inv.TotalAmount().String())
	}
	if inv.Notes != "Invoice for time worked on Website relaunch" {
		t.Errorf("notes = %q", inv.Notes)
	}
	if inv.DueDate.Sub(inv.IssueDate) != 30*24*time.Hour {
		t.Errorf("due date not 30 days after issue: %v -> %v", inv.IssueDate, inv.DueDate)
	}
}

func TestCreateInvoiceFromTimeUserRateFallback(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	project := fixtures.NewProject(t, store, seed.User.ID, seed.Client.ID)
	fixtures.NewEntry(t, store, seed.User.ID, project.ID, "Work", "2026-04-03", 2)

	inv, err := store.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: project.ID,
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	// User default rate is 50.
	if inv.TotalAmount().String() != "100" {
		t.Errorf("total = %s, want 100", inv.TotalAmount().String())
	}
}

func TestCreateInvoiceFromTimeNoBillableWork(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Admin", "2026-04-01", 2, fixtures.NonBillable())

	_, err := store.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID)
	if !errors.Is(err, model.ErrNoBillableWork) {
		t.Fatalf("err = %v, want ErrNoBillableWork", err)
	}
	if _, err := store.NextInvoiceNumber(seed.User.ID, time.Now().UTC().Year()); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateInvoiceReplacesItems(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Items: []model.InvoiceItemInput{
			fixtures.Item("First", 1, 100),
			fixtures.Item("Second", 2, 50),
		},
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	newItems := []model.InvoiceItemInput{fixtures.Item("Replacement", 3, 40)}
	notes := "revised"
	updated, err := store.UpdateInvoice(inv.ID, seed.User.ID, model.InvoiceUpdate{
		Notes: &notes,
		Items: &newItems,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Description != "Replacement" {
		t.Fatalf("items = %+v, want full replacement", updated.Items)
	}
	if updated.TotalAmount().String() != "120" {
		t.Errorf("total = %s, want 120", updated.TotalAmount().String())
	}
	if updated.Notes != "revised" {
		t.Errorf("notes = %q", updated.Notes)
	}
}

func TestUpdateInvoiceClearsDueDate(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		DueDate:   "2026-06-30",
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	empty := ""
	updated, err := store.UpdateInvoice(inv.ID, seed.User.ID, model.InvoiceUpdate{DueDate: &empty})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.DueDate.IsZero() {
		t.Errorf("due date not cleared: %v", updated.DueDate)
	}
}

func TestPaidInvoiceIsImmutable(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Items:     []model.InvoiceItemInput{fixtures.Item("Work", 1, 500)},
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.MarkInvoicePaid(inv.ID, seed.User.ID); err != nil {
		t.Fatal(err)
	}

	notes := "tamper"
	_, err = store.UpdateInvoice(inv.ID, seed.User.ID, model.InvoiceUpdate{Notes: &notes})
	if !errors.Is(err, model.ErrImmutableInvoice) {
		t.Fatalf("update err = %v, want ErrImmutableInvoice", err)
	}
	if err := store.DeleteInvoice(inv.ID, seed.User.ID); !errors.Is(err, model.ErrImmutableInvoice) {
		t.Fatalf("delete err = %v, want ErrImmutableInvoice", err)
	}

	// An update that keeps the status at paid is allowed.
	paid := "paid"
	if _, err := store.UpdateInvoice(inv.ID, seed.User.ID, model.InvoiceUpdate{Status: &paid, Notes: &notes}); err != nil {
		t.Fatalf("paid-to-paid update rejected: %v", err)
	}
}

func TestDeleteInvoiceReleasesTimeEntries(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	e := fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Work", "2026-04-10", 4)
	inv, err := store.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteInvoice(inv.ID, seed.User.ID); err != nil {
		t.Fatal(err)
	}

	released, err := store.LoadTimeEntry(e.ID, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if released.Invoiced {
		t.Error("entry still marked invoiced after invoice deletion")
	}
	if released.InvoiceID != nil {
		t.Error("entry still linked to deleted invoice")
	}

	// The released hours can be billed again.
	if _, err := store.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID); err != nil {
		t.Fatalf("re-billing released time: %v", err)
	}
}

func TestDeleteInvoiceKeepsOtherInvoicesEntries(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "First batch", "2026-04-01", 2)
	first, err := store.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	kept := fixtures.NewEntry(t, store, seed.User.ID, seed.Project.ID, "Second batch", "2026-04-02", 3)
	second, err := store.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteInvoice(first.ID, seed.User.ID); err != nil {
		t.Fatal(err)
	}

	e, err := store.LoadTimeEntry(kept.ID, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Invoiced || e.InvoiceID == nil || *e.InvoiceID != second.ID {
		t.Errorf("deleting one invoice released another invoice's entry: %+v", e)
	}
}

func TestNextInvoiceNumberAfterDeletion(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	first, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteInvoice(first.ID, seed.User.ID); err != nil {
		t.Fatal(err)
	}

	// The count-based scheme reuses the freed slot.
	next, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("INV-%d-%d-0001", seed.User.ID, time.Now().UTC().Year())
	if next.InvoiceNumber != want {
		t.Errorf("number = %q, want %q", next.InvoiceNumber, want)
	}
}
