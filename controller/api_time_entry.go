package controller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/lancerdesk/crm/model"
)

type timeEntryRequest struct {
	ProjectID   *uint   `json:"project_id"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Hours       *string `json:"hours"`
	Billable    *bool   `json:"billable"`
}

func (ctrl *controller) apiTimeEntryList(c echo.Context) error {
	q := model.TimeEntryListQuery{}
	if v := c.QueryParam("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ErrInvalid(err, "project_id must be numeric")
		}
		q.ProjectID = uint(id)
	}
	var err error
	if q.StartDate, err = parseOptionalDate(c.QueryParam("start_date")); err != nil {
		return err
	}
	if q.EndDate, err = parseOptionalDate(c.QueryParam("end_date")); err != nil {
		return err
	}
	if v := c.QueryParam("billable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ErrInvalid(err, "billable must be true or false")
		}
		q.Billable = &b
	}
	if v := c.QueryParam("invoiced"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ErrInvalid(err, "invoiced must be true or false")
		}
		q.Invoiced = &b
	}

	es, err := ctrl.model.ListTimeEntries(currentUserID(c), q)
	if err != nil {
		return err
	}
	out := make([]APITimeEntry, len(es))
	for i := range es {
		out[i] = toAPITimeEntry(&es[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) apiTimeEntryCreate(c echo.Context) error {
	var req timeEntryRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	if req.ProjectID == nil || *req.ProjectID == 0 {
		return ErrInvalid(echo.ErrBadRequest, "project_id is required")
	}
	if req.Hours == nil {
		return ErrInvalid(echo.ErrBadRequest, "hours is required")
	}
	if req.Description == nil || *req.Description == "" {
		return ErrInvalid(echo.ErrBadRequest, "description is required")
	}
	hours, err := decimal.NewFromString(*req.Hours)
	if err != nil {
		return ErrInvalid(err, "hours must be a decimal number")
	}
	if hours.Sign() <= 0 {
		return ErrInvalid(echo.ErrBadRequest, "hours must be positive")
	}

	e := &model.TimeEntry{
		ProjectID:   *req.ProjectID,
		Description: *req.Description,
		Hours:       hours,
		Billable:    true,
	}
	if req.Billable != nil {
		e.Billable = *req.Billable
	}
	if req.Date != nil {
		if e.Date, err = parseOptionalDate(*req.Date); err != nil {
			return err
		}
	}
	if err := ctrl.model.CreateTimeEntry(e, currentUserID(c)); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toAPITimeEntry(e))
}

func (ctrl *controller) apiTimeEntryGet(c echo.Context) error {
	e, err := ctrl.model.LoadTimeEntry(c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPITimeEntry(e))
}

func (ctrl *controller) apiTimeEntryUpdate(c echo.Context) error {
	var req timeEntryRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	upd := model.TimeEntryUpdate{
		ProjectID:   req.ProjectID,
		Description: req.Description,
		Billable:    req.Billable,
	}
	if req.Hours != nil {
		hours, err := decimal.NewFromString(*req.Hours)
		if err != nil {
			return ErrInvalid(err, "hours must be a decimal number")
		}
		if hours.Sign() <= 0 {
			return ErrInvalid(echo.ErrBadRequest, "hours must be positive")
		}
		upd.Hours = &hours
	}
	if req.Date != nil {
		d, err := model.ParseDate(*req.Date)
		if err != nil {
			return err
		}
		upd.Date = &d
	}
	e, err := ctrl.model.UpdateTimeEntry(c.Param("id"), currentUserID(c), upd)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPITimeEntry(e))
}

func (ctrl *controller) apiTimeEntryDelete(c echo.Context) error {
	if err := ctrl.model.DeleteTimeEntry(c.Param("id"), currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *controller) apiTimeSummary(c echo.Context) error {
	start, err := parseOptionalDate(c.QueryParam("start_date"))
	if err != nil {
		return err
	}
	end, err := parseOptionalDate(c.QueryParam("end_date"))
	if err != nil {
		return err
	}
	sum, err := ctrl.model.GetTimeSummary(currentUserID(c), start, end)
	if err != nil {
		return err
	}

	byProject := make([]map[string]any, len(sum.ByProject))
	for i, p := range sum.ByProject {
		byProject[i] = map[string]any{
			"project_id":    p.ProjectID,
			"project_title": p.ProjectTitle,
			"hours":         p.Hours.String(),
		}
	}
	byDay := make([]map[string]any, len(sum.ByDay))
	for i, d := range sum.ByDay {
		byDay[i] = map[string]any{
			"date":  d.Date.Format(model.DateLayout),
			"hours": d.Hours.String(),
		}
	}
	return respond(c, http.StatusOK, map[string]any{
		"start_date":       sum.StartDate.Format(model.DateLayout),
		"end_date":         sum.EndDate.Format(model.DateLayout),
		"total_hours":      sum.TotalHours.String(),
		"billable_hours":   sum.BillableHours.String(),
		"billable_percent": sum.BillablePercent.String(),
		"by_project":       byProject,
		"by_day":           byDay,
	})
}
