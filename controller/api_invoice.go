package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/lancerdesk/crm/model"
)

type invoiceItemRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type invoiceCreateRequest struct {
	ProjectID          uint                 `json:"project_id"`
	Items              []invoiceItemRequest `json:"items"`
	IncludeTimeEntries bool                 `json:"include_time_entries"`
	TimeEntryIDs       []uint               `json:"time_entry_ids"`
	IssueDate          string               `json:"issue_date"`
	DueDate            string               `json:"due_date"`
	Status             string               `json:"status"`
	Notes              string               `json:"notes"`
}

type invoiceFromTimeRequest struct {
	ProjectID uint   `json:"project_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Notes     string `json:"notes"`
}

type invoiceUpdateRequest struct {
	IssueDate *string               `json:"issue_date"`
	DueDate   *string               `json:"due_date"`
	Status    *string               `json:"status"`
	Notes     *string               `json:"notes"`
	Items     *[]invoiceItemRequest `json:"items"`
}

func parseItemInputs(reqs []invoiceItemRequest) ([]model.InvoiceItemInput, error) {
	items := make([]model.InvoiceItemInput, len(reqs))
	for i, r := range reqs {
		qty, err := decimal.NewFromString(r.Quantity)
		if err != nil {
			return nil, ErrInvalid(err, fmt.Sprintf("items[%d].quantity must be a decimal number", i))
		}
		price, err := decimal.NewFromString(r.UnitPrice)
		if err != nil {
			return nil, ErrInvalid(err, fmt.Sprintf("items[%d].unit_price must be a decimal number", i))
		}
		items[i] = model.InvoiceItemInput{
			Description: r.Description,
			Quantity:    qty,
			UnitPrice:   price,
		}
	}
	return items, nil
}

func (ctrl *controller) apiInvoiceList(c echo.Context) error {
	q := model.InvoiceListQuery{
		Status: c.QueryParam("status"),
		Cursor: c.QueryParam("cursor"),
	}
	if v := c.QueryParam("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ErrInvalid(err, "project_id must be numeric")
		}
		q.ProjectID = uint(id)
	}
	if v := c.QueryParam("client_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ErrInvalid(err, "client_id must be numeric")
		}
		q.ClientID = uint(id)
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ErrInvalid(err, "limit must be numeric")
		}
		q.Limit = n
	}
	var err error
	if q.StartDate, err = parseOptionalDate(c.QueryParam("start_date")); err != nil {
		return err
	}
	if q.EndDate, err = parseOptionalDate(c.QueryParam("end_date")); err != nil {
		return err
	}

	invs, next, err := ctrl.model.ListInvoices(currentUserID(c), q)
	if err != nil {
		return err
	}
	out := APIInvoiceList{Items: make([]APIInvoice, len(invs)), NextCursor: next}
	for i := range invs {
		out.Items[i] = toAPIInvoice(&invs[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) apiInvoiceGet(c echo.Context) error {
	inv, err := ctrl.model.LoadInvoice(c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIInvoice(inv))
}

func (ctrl *controller) apiInvoiceCreate(c echo.Context) error {
	var req invoiceCreateRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	if req.ProjectID == 0 {
		return ErrInvalid(echo.ErrBadRequest, "project_id is required")
	}
	items, err := parseItemInputs(req.Items)
	if err != nil {
		return err
	}
	inv, err := ctrl.model.CreateInvoice(model.CreateInvoiceParams{
		ProjectID:          req.ProjectID,
		Items:              items,
		IncludeTimeEntries: req.IncludeTimeEntries,
		TimeEntryIDs:       req.TimeEntryIDs,
		IssueDate:          req.IssueDate,
		DueDate:            req.DueDate,
		Status:             req.Status,
		Notes:              req.Notes,
	}, currentUserID(c))
	if err != nil {
		return err
	}
	requestLogger(c).Info("invoice created",
		"invoice_id", inv.ID, "number", inv.InvoiceNumber)
	return respond(c, http.StatusCreated, toAPIInvoice(inv))
}

func (ctrl *controller) apiInvoiceFromTime(c echo.Context) error {
	var req invoiceFromTimeRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	if req.ProjectID == 0 {
		return ErrInvalid(echo.ErrBadRequest, "project_id is required")
	}
	inv, err := ctrl.model.CreateInvoiceFromTime(model.CreateInvoiceFromTimeParams{
		ProjectID: req.ProjectID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Notes:     req.Notes,
	}, currentUserID(c))
	if err != nil {
		return err
	}
	requestLogger(c).Info("invoice created from time entries",
		"invoice_id", inv.ID, "number", inv.InvoiceNumber)
	return respond(c, http.StatusCreated, toAPIInvoice(inv))
}

func (ctrl *controller) apiInvoiceUpdate(c echo.Context) error {
	var req invoiceUpdateRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	upd := model.InvoiceUpdate{
		IssueDate: req.IssueDate,
		DueDate:   req.DueDate,
		Status:    req.Status,
		Notes:     req.Notes,
	}
	if req.Items != nil {
		items, err := parseItemInputs(*req.Items)
		if err != nil {
			return err
		}
		upd.Items = &items
	}
	inv, err := ctrl.model.UpdateInvoice(c.Param("id"), currentUserID(c), upd)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIInvoice(inv))
}

func (ctrl *controller) apiInvoiceDelete(c echo.Context) error {
	if err := ctrl.model.DeleteInvoice(c.Param("id"), currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *controller) apiInvoiceMarkSent(c echo.Context) error {
	userID := currentUserID(c)
	inv, err := ctrl.model.MarkInvoiceSent(c.Param("id"), userID)
	if err != nil {
		return err
	}
	ctrl.notifyInvoiceSent(c, inv, userID)
	return respond(c, http.StatusOK, toAPIInvoice(inv))
}

// notifyInvoiceSent emails the project's client. Delivery is best effort; the
// status change has already been committed and is not rolled back on mail
// failure.
func (ctrl *controller) notifyInvoiceSent(c echo.Context, inv *model.Invoice, userID uint) {
	logger := requestLogger(c)
	project, err := ctrl.model.LoadProject(inv.ProjectID, userID)
	if err != nil {
		logger.Warn("cannot load project for invoice mail", "error", err)
		return
	}
	client, err := ctrl.model.LoadClient(project.ClientID, userID)
	if err != nil || client.Email == "" {
		logger.Info("no client email, skipping invoice mail", "invoice_id", inv.ID)
		return
	}
	subject := fmt.Sprintf("Invoice %s", inv.InvoiceNumber)
	body := fmt.Sprintf(
		"Hello %s,\n\ninvoice %s for project %q has been issued. Amount due: %s. Due date: %s.\n",
		client.Name, inv.InvoiceNumber, project.Title,
		inv.TotalAmount().String(), model.FormatDate(inv.DueDate))
	if err := ctrl.sendEmail(logger, client.Email, client.Name, subject, body); err != nil {
		logger.Warn("cannot send invoice mail", "invoice_id", inv.ID, "error", err)
	}
}

func (ctrl *controller) apiInvoiceMarkPaid(c echo.Context) error {
	inv, err := ctrl.model.MarkInvoicePaid(c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIInvoice(inv))
}

func (ctrl *controller) apiInvoiceStats(c echo.Context) error {
	stats, err := ctrl.model.GetInvoiceStats(currentUserID(c))
	if err != nil {
		return err
	}
	byStatus := map[string]int64{}
	for k, v := range stats.ByStatus {
		byStatus[string(k)] = v
	}
	recent := make([]APIInvoice, len(stats.Recent))
	for i := range stats.Recent {
		recent[i] = toAPIInvoice(&stats.Recent[i])
	}
	overdue := make([]APIInvoice, len(stats.Overdue))
	for i := range stats.Overdue {
		overdue[i] = toAPIInvoice(&stats.Overdue[i])
	}
	return respond(c, http.StatusOK, map[string]any{
		"total_invoiced":  stats.TotalInvoiced.String(),
		"total_paid":      stats.TotalPaid.String(),
		"pending_payment": stats.PendingPayment.String(),
		"by_status":       byStatus,
		"recent":          recent,
		"overdue":         overdue,
	})
}
