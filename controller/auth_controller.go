package controller

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/lancerdesk/crm/model"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type APIUser struct {
	ID             uint       `json:"id" xml:"id"`
	Username       string     `json:"username" xml:"username"`
	Email          string     `json:"email" xml:"email"`
	FullName       string     `json:"full_name" xml:"full_name"`
	Bio            string     `json:"bio" xml:"bio"`
	Specialization string     `json:"specialization" xml:"specialization"`
	HourlyRate     string     `json:"hourly_rate" xml:"hourly_rate"`
	IsPublic       bool       `json:"is_public" xml:"is_public"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty" xml:"last_login_at,omitempty"`
}

func toAPIUser(u *model.User) APIUser {
	return APIUser{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FullName:       u.FullName,
		Bio:            u.Bio,
		Specialization: u.Specialization,
		HourlyRate:     u.HourlyRate.String(),
		IsPublic:       u.IsPublic,
		LastLoginAt:    u.LastLoginAt,
	}
}

func (ctrl *controller) register(c echo.Context) error {
	if !ctrl.model.Config.RegistrationAllowed {
		return &appError{Code: "FORBIDDEN", Status: http.StatusForbidden,
			Err: fmt.Errorf("registration disabled"), Public: "Registration is currently closed."}
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		return ErrInvalid(fmt.Errorf("register: missing fields"),
			"Username, email and a password of at least 8 characters are required.")
	}

	u, err := ctrl.model.CreateUser(req.Username, req.Email, req.Password)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrInvalid(err, "Username or email is already taken.")
		}
		return err
	}
	requestLogger(c).Info("user registered", "user_id", u.ID, "username", u.Username)
	return respond(c, http.StatusCreated, toAPIUser(u))
}

func (ctrl *controller) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}

	u, err := ctrl.model.Authenticate(req.Email, req.Password)
	if err != nil {
		return err // ErrInvalidPassword maps to 401
	}
	_ = ctrl.model.TouchLastLogin(u)

	sess, err := loadSession(c)
	if err != nil {
		return ErrInternal(err)
	}
	sess.Values["uid"] = u.ID
	if err := saveSession(c, sess); err != nil {
		return ErrInternal(err)
	}

	requestLogger(c).Info("user logged in", "user_id", u.ID)
	return respond(c, http.StatusOK, toAPIUser(u))
}

func (ctrl *controller) logout(c echo.Context) error {
	if err := clearSession(c); err != nil {
		return ErrInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *controller) me(c echo.Context) error {
	u, err := ctrl.model.GetUserByID(currentUserID(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIUser(u))
}

type profileUpdateRequest struct {
	FullName       *string `json:"full_name"`
	Bio            *string `json:"bio"`
	Specialization *string `json:"specialization"`
	ProfileImage   *string `json:"profile_image"`
	HourlyRate     *string `json:"hourly_rate"`
	IsPublic       *bool   `json:"is_public"`
}

func (ctrl *controller) meUpdate(c echo.Context) error {
	var req profileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return ErrInvalid(err, "Malformed request body")
	}
	upd := model.UserProfileUpdate{
		FullName:       req.FullName,
		Bio:            req.Bio,
		Specialization: req.Specialization,
		ProfileImage:   req.ProfileImage,
		IsPublic:       req.IsPublic,
	}
	if req.HourlyRate != nil {
		rate, err := decimal.NewFromString(*req.HourlyRate)
		if err != nil {
			return ErrInvalid(err, "hourly_rate must be a decimal number")
		}
		upd.HourlyRate = &rate
	}
	u, err := ctrl.model.UpdateUserProfile(currentUserID(c), upd)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIUser(u))
}

// isDuplicateKey detects unique constraint violations across sqlite and
// postgres without depending on driver error types.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
