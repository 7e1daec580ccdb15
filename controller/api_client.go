package controller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lancerdesk/crm/model"
)

type clientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Address string `json:"address"`
	Country string `json:"country"`
	Notes   string `json:"notes"`
}

func (ctrl *controller) apiClientList(c echo.Context) error {
	cs, err := ctrl.model.LoadAllClients(currentUserID(c))
	if err != nil {
		return err
	}
	out := make([]APIClient, len(cs))
	for i := range cs {
		out[i] = toAPIClient(&cs[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) apiClientSearch(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	cs, err := ctrl.model.SearchClients(q, currentUserID(c))
	if err != nil {
		return err
	}
	out := make([]APIClient, len(cs))
	for i := range cs {
		out[i] = toAPIClient(&cs[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) apiClientCreate(c echo.Context) error {
	var req clientRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return ErrInvalid(echo.ErrBadRequest, "Client name is required.")
	}
	cl := &model.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Address: req.Address,
		Country: req.Country,
		Notes:   req.Notes,
	}
	if err := ctrl.model.CreateClient(cl, currentUserID(c)); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toAPIClient(cl))
}

func (ctrl *controller) apiClientGet(c echo.Context) error {
	cl, err := ctrl.model.LoadClient(c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIClient(cl))
}

func (ctrl *controller) apiClientUpdate(c echo.Context) error {
	userID := currentUserID(c)
	cl, err := ctrl.model.LoadClient(c.Param("id"), userID)
	if err != nil {
		return err
	}
	var req clientRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return ErrInvalid(echo.ErrBadRequest, "Client name is required.")
	}
	cl.Name = req.Name
	cl.Email = req.Email
	cl.Phone = req.Phone
	cl.Company = req.Company
	cl.Address = req.Address
	cl.Country = req.Country
	cl.Notes = req.Notes
	if err := ctrl.model.SaveClient(cl, userID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIClient(cl))
}

func (ctrl *controller) apiClientDelete(c echo.Context) error {
	if err := ctrl.model.DeleteClient(c.Param("id"), currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
