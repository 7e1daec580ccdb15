package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/lancerdesk/crm/model"
)

type projectRequest struct {
	ClientID    uint    `json:"client_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	HourlyRate  *string `json:"hourly_rate"`
	FixedPrice  *string `json:"fixed_price"`
	IsPublic    bool    `json:"is_public"`
}

// applyTo validates the request and writes it onto the project record.
func (req *projectRequest) applyTo(p *model.Project) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrInvalid(echo.ErrBadRequest, "Project title is required.")
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return err
	}
	p.ClientID = req.ClientID
	p.Title = req.Title
	p.Description = req.Description
	p.StartDate = start
	p.EndDate = end
	p.IsPublic = req.IsPublic

	if req.Status != "" {
		switch model.ProjectStatus(req.Status) {
		case model.ProjectStatusPending, model.ProjectStatusActive,
			model.ProjectStatusCompleted, model.ProjectStatusCancelled:
			p.Status = model.ProjectStatus(req.Status)
		default:
			return ErrInvalid(echo.ErrBadRequest, "Unknown project status: "+req.Status)
		}
	}

	p.HourlyRate, err = parseOptionalDecimal(req.HourlyRate, "hourly_rate")
	if err != nil {
		return err
	}
	p.FixedPrice, err = parseOptionalDecimal(req.FixedPrice, "fixed_price")
	return err
}

func parseOptionalDecimal(s *string, field string) (decimal.NullDecimal, error) {
	if s == nil || *s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, ErrInvalid(err, field+" must be a decimal number")
	}
	return decimal.NewNullDecimal(d), nil
}

func (ctrl *controller) apiProjectList(c echo.Context) error {
	q := model.ProjectListQuery{Status: c.QueryParam("status")}
	if v := c.QueryParam("client_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ErrInvalid(err, "client_id must be numeric")
		}
		q.ClientID = uint(id)
	}
	if v := c.QueryParam("is_public"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ErrInvalid(err, "is_public must be true or false")
		}
		q.IsPublic = &b
	}
	ps, err := ctrl.model.ListProjects(currentUserID(c), q)
	if err != nil {
		return err
	}
	out := make([]APIProject, len(ps))
	for i := range ps {
		out[i] = toAPIProject(&ps[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) apiProjectStats(c echo.Context) error {
	stats, err := ctrl.model.GetProjectStats(currentUserID(c))
	if err != nil {
		return err
	}
	byStatus := map[string]int64{}
	for k, v := range stats.ByStatus {
		byStatus[string(k)] = v
	}
	return respond(c, http.StatusOK, map[string]any{
		"total":     stats.Total,
		"by_status": byStatus,
	})
}

func (ctrl *controller) apiProjectCreate(c echo.Context) error {
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	p := &model.Project{Status: model.ProjectStatusPending}
	if err := req.applyTo(p); err != nil {
		return err
	}
	if err := ctrl.model.CreateProject(p, currentUserID(c)); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toAPIProject(p))
}

func (ctrl *controller) apiProjectGet(c echo.Context) error {
	p, err := ctrl.model.LoadProject(c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIProject(p))
}

func (ctrl *controller) apiProjectUpdate(c echo.Context) error {
	userID := currentUserID(c)
	p, err := ctrl.model.LoadProject(c.Param("id"), userID)
	if err != nil {
		return err
	}
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	if err := req.applyTo(p); err != nil {
		return err
	}
	if err := ctrl.model.SaveProject(p, userID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIProject(p))
}

func (ctrl *controller) apiProjectDelete(c echo.Context) error {
	if err := ctrl.model.DeleteProject(c.Param("id"), currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
