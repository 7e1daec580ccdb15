package controller

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lancerdesk/crm/model"
)

type APIError struct {
	Code    string `json:"code" xml:"code"`
	Message string `json:"message" xml:"message"`
}

func apiError(code, msg string) *APIError { return &APIError{Code: code, Message: msg} }

func wantsXML(c echo.Context) bool {
	if c.QueryParam("format") == "xml" {
		return true
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, "application/xml") || strings.Contains(accept, "text/xml")
}

func respond(c echo.Context, status int, v any) error {
	if wantsXML(c) {
		return c.XML(status, v)
	}
	return c.JSON(status, v)
}

// parseOptionalDate parses a YYYY-MM-DD query or body field; empty means
// unset and returns the zero time.
func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(s)
}

// ---- DTOs ----
//
// Money and hours are rendered as decimal strings, calendar dates as
// YYYY-MM-DD; empty string means "not set".

type APIClient struct {
	ID        uint      `json:"id" xml:"id"`
	Name      string    `json:"name" xml:"name"`
	Email     string    `json:"email" xml:"email"`
	Phone     string    `json:"phone" xml:"phone"`
	Company   string    `json:"company" xml:"company"`
	Address   string    `json:"address" xml:"address"`
	Country   string    `json:"country" xml:"country"`
	Notes     string    `json:"notes" xml:"notes"`
	CreatedAt time.Time `json:"created_at" xml:"created_at"`
}

type APIProject struct {
	ID          uint      `json:"id" xml:"id"`
	ClientID    uint      `json:"client_id" xml:"client_id"`
	Title       string    `json:"title" xml:"title"`
	Description string    `json:"description" xml:"description"`
	Status      string    `json:"status" xml:"status"`
	StartDate   string    `json:"start_date" xml:"start_date"`
	EndDate     string    `json:"end_date" xml:"end_date"`
	HourlyRate  string    `json:"hourly_rate,omitempty" xml:"hourly_rate,omitempty"`
	FixedPrice  string    `json:"fixed_price,omitempty" xml:"fixed_price,omitempty"`
	IsPublic    bool      `json:"is_public" xml:"is_public"`
	CreatedAt   time.Time `json:"created_at" xml:"created_at"`
}

type APITimeEntry struct {
	ID          uint      `json:"id" xml:"id"`
	ProjectID   uint      `json:"project_id" xml:"project_id"`
	Description string    `json:"description" xml:"description"`
	Date        string    `json:"date" xml:"date"`
	Hours       string    `json:"hours" xml:"hours"`
	Billable    bool      `json:"billable" xml:"billable"`
	Invoiced    bool      `json:"invoiced" xml:"invoiced"`
	CreatedAt   time.Time `json:"created_at" xml:"created_at"`
}

type APIInvoiceItem struct {
	ID          uint   `json:"id" xml:"id"`
	Description string `json:"description" xml:"description"`
	Quantity    string `json:"quantity" xml:"quantity"`
	UnitPrice   string `json:"unit_price" xml:"unit_price"`
	Total       string `json:"total" xml:"total"`
}

type APIInvoice struct {
	ID            uint             `json:"id" xml:"id"`
	ProjectID     uint             `json:"project_id" xml:"project_id"`
	InvoiceNumber string           `json:"invoice_number" xml:"invoice_number"`
	IssueDate     string           `json:"issue_date" xml:"issue_date"`
	DueDate       string           `json:"due_date" xml:"due_date"`
	Status        string           `json:"status" xml:"status"`
	Overdue       bool             `json:"overdue" xml:"overdue"`
	Notes         string           `json:"notes" xml:"notes"`
	TotalAmount   string           `json:"total_amount" xml:"total_amount"`
	Items         []APIInvoiceItem `json:"items" xml:"item"`
	CreatedAt     time.Time        `json:"created_at" xml:"created_at"`
}

type APIInvoiceList struct {
	XMLName    struct{}     `json:"-" xml:"invoices"`
	Items      []APIInvoice `json:"items" xml:"invoice"`
	NextCursor string       `json:"next_cursor,omitempty" xml:"next_cursor,omitempty"`
}

type APIDocument struct {
	ID           uint      `json:"id" xml:"id"`
	ProjectID    uint      `json:"project_id" xml:"project_id"`
	Name         string    `json:"name" xml:"name"`
	DocumentType string    `json:"document_type" xml:"document_type"`
	Size         int64     `json:"size" xml:"size"`
	UploadedAt   time.Time `json:"uploaded_at" xml:"uploaded_at"`
}

func toAPIClient(c *model.Client) APIClient {
	return APIClient{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Address:   c.Address,
		Country:   c.Country,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
	}
}

func toAPIProject(p *model.Project) APIProject {
	out := APIProject{
		ID:          p.ID,
		ClientID:    p.ClientID,
		Title:       p.Title,
		Description: p.Description,
		Status:      string(p.Status),
		StartDate:   model.FormatDate(p.StartDate),
		EndDate:     model.FormatDate(p.EndDate),
		IsPublic:    p.IsPublic,
		CreatedAt:   p.CreatedAt,
	}
	if p.HourlyRate.Valid {
		out.HourlyRate = p.HourlyRate.Decimal.String()
	}
	if p.FixedPrice.Valid {
		out.FixedPrice = p.FixedPrice.Decimal.String()
	}
	return out
}

func toAPITimeEntry(e *model.TimeEntry) APITimeEntry {
	return APITimeEntry{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Description: e.Description,
		Date:        model.FormatDate(e.Date),
		Hours:       e.Hours.String(),
		Billable:    e.Billable,
		Invoiced:    e.Invoiced,
		CreatedAt:   e.CreatedAt,
	}
}

func toAPIInvoice(inv *model.Invoice) APIInvoice {
	items := make([]APIInvoiceItem, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		items[i] = APIInvoiceItem{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   it.UnitPrice.String(),
			Total:       it.Total().String(),
		}
	}
	return APIInvoice{
		ID:            inv.ID,
		ProjectID:     inv.ProjectID,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     model.FormatDate(inv.IssueDate),
		DueDate:       model.FormatDate(inv.DueDate),
		Status:        string(inv.Status),
		Overdue:       inv.IsOverdue(time.Now().UTC()),
		Notes:         inv.Notes,
		TotalAmount:   inv.TotalAmount().String(),
		Items:         items,
		CreatedAt:     inv.CreatedAt,
	}
}

func toAPIDocument(d *model.Document) APIDocument {
	return APIDocument{
		ID:           d.ID,
		ProjectID:    d.ProjectID,
		Name:         d.Name,
		DocumentType: d.DocumentType,
		Size:         d.Size,
		UploadedAt:   d.CreatedAt,
	}
}
