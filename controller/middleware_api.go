package controller

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const ctxUserIDKey = "uid"

// authMiddleware authenticates either a browser session or an API token.
// Tokens come as "Authorization: Bearer <token>" or an "Api-Key" header.
func (ctrl *controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := bearerToken(c); token != "" {
			apiToken, err := ctrl.model.ValidateAPIToken(token)
			if err != nil {
				return &appError{Code: "UNAUTHORIZED", Status: http.StatusUnauthorized, Err: err, Public: "Invalid or expired API token"}
			}
			c.Set(ctxUserIDKey, apiToken.UserID)
			return next(c)
		}

		sess, err := loadSession(c)
		if err == nil {
			if uid, ok := sess.Values["uid"].(uint); ok && uid > 0 {
				c.Set(ctxUserIDKey, uid)
				return next(c)
			}
		}

		return &appError{Code: "UNAUTHORIZED", Status: http.StatusUnauthorized, Err: echo.ErrUnauthorized, Public: "Authentication required."}
	}
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(c.Request().Header.Get("Api-Key"))
}

// currentUserID returns the authenticated user. Routes behind authMiddleware
// always have it; a zero return means a wiring bug, not a user error.
func currentUserID(c echo.Context) uint {
	uid, _ := c.Get(ctxUserIDKey).(uint)
	return uid
}

func requestLogger(c echo.Context) *slog.Logger {
	if l, ok := c.Get("logger").(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
