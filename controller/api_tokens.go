package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lancerdesk/crm/model"
)

type tokenCreateRequest struct {
	Name      string `json:"name"`
	ExpiresAt string `json:"expires_at"` // YYYY-MM-DD, optional
}

type APIToken struct {
	ID         uint       `json:"id" xml:"id"`
	Name       string     `json:"name" xml:"name"`
	Prefix     string     `json:"prefix" xml:"prefix"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" xml:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" xml:"last_used_at,omitempty"`
	Disabled   bool       `json:"disabled" xml:"disabled"`
	CreatedAt  time.Time  `json:"created_at" xml:"created_at"`
}

func toAPIToken(t *model.APIToken) APIToken {
	return APIToken{
		ID:         t.ID,
		Name:       t.Name,
		Prefix:     t.TokenPrefix,
		ExpiresAt:  t.ExpiresAt,
		LastUsedAt: t.LastUsedAt,
		Disabled:   t.Disabled,
		CreatedAt:  t.CreatedAt,
	}
}

func (ctrl *controller) apiCreateToken(c echo.Context) error {
	var req tokenCreateRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := model.ParseDate(req.ExpiresAt)
		if err != nil {
			return err
		}
		expiresAt = &t
	}

	plain, rec, err := ctrl.model.CreateAPIToken(currentUserID(c), req.Name, expiresAt)
	if err != nil {
		return err
	}
	requestLogger(c).Info("api token created", "token_id", rec.ID, "name", rec.Name)

	// The plaintext is shown exactly once.
	return respond(c, http.StatusCreated, map[string]any{
		"token":      plain,
		"token_info": toAPIToken(rec),
	})
}

func (ctrl *controller) apiListTokens(c echo.Context) error {
	ts, err := ctrl.model.ListAPITokens(currentUserID(c))
	if err != nil {
		return err
	}
	out := make([]APIToken, len(ts))
	for i := range ts {
		out[i] = toAPIToken(&ts[i])
	}
	return respond(c, http.StatusOK, out)
}

func (ctrl *controller) apiRevokeToken(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return ErrInvalid(err, "token id must be numeric")
	}
	if err := ctrl.model.RevokeAPIToken(currentUserID(c), uint(id)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
