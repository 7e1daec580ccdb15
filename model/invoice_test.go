package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lancerdesk/crm/fixtures"
	"github.com/lancerdesk/crm/model"
)

func item(desc string, qty, price float64) model.InvoiceItem {
	return model.InvoiceItem{
		Description: desc,
		Quantity:    decimal.NewFromFloat(qty),
		UnitPrice:   decimal.NewFromFloat(price),
	}
}

func TestInvoice_TotalAmount(t *testing.T) {
	tests := []struct {
		name  string
		items []model.InvoiceItem
		want  string
	}{
		{
			name:  "empty invoice",
			items: nil,
			want:  "0",
		},
		{
			name:  "single item",
			items: []model.InvoiceItem{item("Service", 2, 100)},
			want:  "200",
		},
		{
			name: "multiple items",
			items: []model.InvoiceItem{
				item("Development", 8, 120),
				item("Review", 2, 100),
				item("Setup", 1, 500),
			},
			want: "1660",
		},
		{
			name:  "fractional hours",
			items: []model.InvoiceItem{item("Support", 2.5, 90.50)},
			want:  "226.25",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := model.Invoice{Items: tt.items}
			if got := inv.TotalAmount().String(); got != tt.want {
				t.Errorf("TotalAmount() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInvoice_EffectiveStatus(t *testing.T) {
	now := time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)
	past := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  model.InvoiceStatus
		dueDate time.Time
		want    model.InvoiceStatus
	}{
		{"draft stays draft", model.InvoiceStatusDraft, past, model.InvoiceStatusDraft},
		{"sent before due", model.InvoiceStatusSent, future, model.InvoiceStatusSent},
		{"sent past due is overdue", model.InvoiceStatusSent, past, model.InvoiceStatusOverdue},
		{"sent without due date", model.InvoiceStatusSent, time.Time{}, model.InvoiceStatusSent},
		{"paid past due stays paid", model.InvoiceStatusPaid, past, model.InvoiceStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := model.Invoice{Status: tt.status, DueDate: tt.dueDate}
			if got := inv.EffectiveStatus(now); got != tt.want {
				t.Errorf("EffectiveStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMarkSentAndPaid(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Items:     []model.InvoiceItemInput{fixtures.Item("Work", 1, 100)},
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	sent, err := store.MarkInvoiceSent(inv.ID, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sent.Status != model.InvoiceStatusSent {
		t.Errorf("status = %s, want sent", sent.Status)
	}

	// Marking sent twice is a no-op, not an error.
	if _, err := store.MarkInvoiceSent(inv.ID, seed.User.ID); err != nil {
		t.Fatalf("second mark-sent: %v", err)
	}

	paid, err := store.MarkInvoicePaid(inv.ID, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != model.InvoiceStatusPaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}

	// Paid is final; mark-sent afterwards must not regress the status.
	after, err := store.MarkInvoiceSent(inv.ID, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != model.InvoiceStatusPaid {
		t.Errorf("status regressed to %s after mark-sent on paid invoice", after.Status)
	}
}

func TestListInvoicesFilters(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	draft, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		IssueDate: "2026-01-10",
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	overdue, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		IssueDate: "2026-01-05",
		DueDate:   "2026-01-20",
		Status:    "sent",
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	all, _, err := store.ListInvoices(seed.User.ID, model.InvoiceListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("list = %d invoices, want 2", len(all))
	}
	// Newest issue date first.
	if all[0].ID != draft.ID {
		t.Errorf("expected newest invoice first, got %s", all[0].InvoiceNumber)
	}

	od, _, err := store.ListInvoices(seed.User.ID, model.InvoiceListQuery{Status: "overdue"})
	if err != nil {
		t.Fatal(err)
	}
	if len(od) != 1 || od[0].ID != overdue.ID {
		t.Errorf("overdue filter returned %+v", od)
	}

	byClient, _, err := store.ListInvoices(seed.User.ID, model.InvoiceListQuery{ClientID: seed.Client.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(byClient) != 2 {
		t.Errorf("client filter = %d invoices, want 2", len(byClient))
	}
}

func TestListInvoicesPagination(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	for i := 0; i < 5; i++ {
		if _, err := store.CreateInvoice(model.CreateInvoiceParams{
			ProjectID: seed.Project.ID,
		}, seed.User.ID); err != nil {
			t.Fatal(err)
		}
	}

	page1, cursor, err := store.ListInvoices(seed.User.ID, model.InvoiceListQuery{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 || cursor == "" {
		t.Fatalf("page1 = %d items, cursor %q", len(page1), cursor)
	}

	seen := map[uint]bool{page1[0].ID: true, page1[1].ID: true}
	total := len(page1)
	for cursor != "" {
		var page []model.Invoice
		page, cursor, err = store.ListInvoices(seed.User.ID, model.InvoiceListQuery{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatal(err)
		}
		for _, inv := range page {
			if seen[inv.ID] {
				t.Fatalf("invoice %d returned twice", inv.ID)
			}
			seen[inv.ID] = true
		}
		total += len(page)
	}
	if total != 5 {
		t.Errorf("paged through %d invoices, want 5", total)
	}
}

func TestInvoiceOwnershipScoping(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	inv, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}

	other, err := store.CreateUser("oscar", "oscar@example.com", "oscar password")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadInvoice(inv.ID, other.ID); err == nil {
		t.Error("foreign user could load invoice")
	}
	if _, err := store.MarkInvoicePaid(inv.ID, other.ID); err == nil {
		t.Error("foreign user could mark invoice paid")
	}
	if err := store.DeleteInvoice(inv.ID, other.ID); err == nil {
		t.Error("foreign user could delete invoice")
	}
}

func TestGetInvoiceStats(t *testing.T) {
	store := fixtures.NewTestStore(t)
	seed := fixtures.SeedTestData(t, store)

	paid, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Items:     []model.InvoiceItemInput{fixtures.Item("Done", 1, 300)},
	}, seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.MarkInvoicePaid(paid.ID, seed.User.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateInvoice(model.CreateInvoiceParams{
		ProjectID: seed.Project.ID,
		Items:     []model.InvoiceItemInput{fixtures.Item("Pending", 1, 200)},
		Status:    "sent",
		DueDate:   "2026-01-01",
	}, seed.User.ID); err != nil {
		t.Fatal(err)
	}

	stats, err := store.GetInvoiceStats(seed.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalInvoiced.String() != "500" {
		t.Errorf("total invoiced = %s, want 500", stats.TotalInvoiced.String())
	}
	if stats.TotalPaid.String() != "300" {
		t.Errorf("total paid = %s, want 300", stats.TotalPaid.String())
	}
	if stats.PendingPayment.String() != "200" {
		t.Errorf("pending = %s, want 200", stats.PendingPayment.String())
	}
	if len(stats.Overdue) != 1 {
		t.Errorf("overdue = %d invoices, want 1", len(stats.Overdue))
	}
	if stats.ByStatus[model.InvoiceStatusPaid] != 1 {
		t.Errorf("by_status[paid] = %d, want 1", stats.ByStatus[model.InvoiceStatusPaid])
	}
}
