package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/lancerdesk/crm/model"
)

type appError struct {
	Code   string // stable, internal error code for ops/support
	Status int    // matching HTTP status
	Err    error  // original error (never handed to the client)
	Public string // safe text for users (optional)
}

func (e *appError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *appError) Unwrap() error { return e.Err }

func ErrNotFound(err error) *appError {
	return &appError{Code: "NOT_FOUND", Status: http.StatusNotFound, Err: err}
}
func ErrInvalid(err error, public string) *appError {
	return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err, Public: public}
}
func ErrInternal(err error) *appError {
	return &appError{Code: "INTERNAL", Status: http.StatusInternalServerError, Err: err}
}

// translateDomainError maps the model's failure taxonomy onto stable codes.
// Anything it does not recognize is a persistence or programming failure and
// is masked as INTERNAL.
func translateDomainError(err error) *appError {
	switch {
	case errors.Is(err, model.ErrInvalidReference):
		return &appError{Code: "INVALID_REFERENCE", Status: http.StatusBadRequest, Err: err, Public: err.Error()}
	case errors.Is(err, model.ErrInvalidDateFormat), errors.Is(err, model.ErrInvalidStatus):
		return &appError{Code: "INVALID_FORMAT", Status: http.StatusBadRequest, Err: err, Public: err.Error()}
	case errors.Is(err, model.ErrImmutableInvoice):
		return &appError{Code: "IMMUTABLE", Status: http.StatusConflict, Err: err, Public: err.Error()}
	case errors.Is(err, model.ErrNoBillableWork):
		return &appError{Code: "NO_BILLABLE_WORK", Status: http.StatusBadRequest, Err: err, Public: err.Error()}
	case errors.Is(err, model.ErrClientHasProjects):
		return &appError{Code: "CLIENT_HAS_PROJECTS", Status: http.StatusBadRequest, Err: err, Public: "Cannot delete client with associated projects. Please delete or reassign projects first."}
	case errors.Is(err, model.ErrEntryInvoiced):
		return &appError{Code: "ENTRY_INVOICED", Status: http.StatusConflict, Err: err, Public: err.Error()}
	case errors.Is(err, model.ErrInvalidPassword):
		return &appError{Code: "UNAUTHORIZED", Status: http.StatusUnauthorized, Err: err, Public: "Invalid email or password"}
	case errors.Is(err, model.ErrPortfolioPrivate),
		errors.Is(err, model.ErrTokenNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound(err)
	}
	return nil
}

type controller struct {
	model *model.Store
}

// NewController builds the HTTP surface and blocks serving it.
func NewController(store *model.Store) error {
	e, logger := newEcho(store)
	logger.Info("listening", "port", store.Config.Port)
	if err := e.Start(fmt.Sprintf(":%d", store.Config.Port)); err != nil {
		return fmt.Errorf("cannot start application %w", err)
	}
	return nil
}

// newEcho wires middleware, error handling and routes. Split from
// NewController so tests can exercise the full router without binding a port.
func newEcho(store *model.Store) (*echo.Echo, *slog.Logger) {
	// Prod: JSON, Info+; Dev: text, Debug.
	var logger *slog.Logger
	if store.Config.Mode == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.BodyLimit("20M"))
	e.Use(middleware.RequestID()) // adds X-Request-ID
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll:   false,
		DisablePrintStack: true,
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()
			rid := res.Header().Get(echo.HeaderXRequestID)

			// Request-scoped logger, stored in the context for handlers.
			reqLogger := logger.With(
				"request_id", rid,
			).WithGroup("http").With(
				"method", req.Method,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			c.Set("logger", reqLogger)

			err := next(c)

			if shouldSkipAccessLog(c) {
				return err
			}
			latency := time.Since(start)
			attrs := []any{
				"status", res.Status,
				"latency_ms", float64(latency.Microseconds()) / 1000.0,
			}
			switch {
			case res.Status >= 500:
				reqLogger.Error("http_request", attrs...)
			case res.Status >= 400:
				reqLogger.Warn("http_request", attrs...)
			default:
				reqLogger.Info("http_request", attrs...)
			}
			return err
		}
	})

	e.HTTPErrorHandler = httpErrorHandler(logger)

	cookieStore := sessions.NewCookieStore([]byte(store.Config.CookieSecret))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable in PROD with HTTPS
	}
	e.Use(session.Middleware(cookieStore))

	ctrl := &controller{model: store}
	ctrl.registerRoutes(e)
	return e, logger
}

// httpErrorHandler logs everything internally and hands out only a safe
// payload with a stable error code and the request id.
func httpErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		l, _ := c.Get("logger").(*slog.Logger)
		if l == nil {
			l = logger
		}

		var ae *appError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			// already wrapped
		case errors.As(err, &he):
			// Pass 4xx messages through, mask 5xx.
			public := ""
			if he.Code >= 400 && he.Code < 500 {
				public = fmt.Sprint(he.Message)
			}
			ae = &appError{
				Code:   httpStatusToCode(he.Code),
				Status: he.Code,
				Err:    fmt.Errorf("%v", he.Message),
				Public: public,
			}
		default:
			if ae = translateDomainError(err); ae == nil {
				ae = ErrInternal(err)
			}
		}

		attrs := []any{
			"status", ae.Status,
			"code", ae.Code,
			"error", ae.Err.Error(),
		}
		if ae.Status >= 500 {
			l.Error("handler_error", attrs...)
		} else {
			l.Warn("handler_error", attrs...)
		}

		if c.Response().Committed {
			return
		}
		_ = c.JSON(ae.Status, map[string]any{
			"error":      userMessage(ae),
			"error_code": ae.Code,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		})
	}
}

func (ctrl *controller) registerRoutes(e *echo.Echo) {
	// Public surface
	e.POST("/api/v1/auth/register", ctrl.register)
	e.POST("/api/v1/auth/login", ctrl.login)
	e.POST("/api/v1/auth/logout", ctrl.logout)
	e.GET("/portfolio/:username", ctrl.portfolioShow)

	api := e.Group("/api/v1", ctrl.authMiddleware)
	api.GET("/auth/me", ctrl.me)
	api.PUT("/auth/me", ctrl.meUpdate)

	api.POST("/tokens", ctrl.apiCreateToken)
	api.GET("/tokens", ctrl.apiListTokens)
	api.DELETE("/tokens/:id", ctrl.apiRevokeToken)

	api.GET("/clients", ctrl.apiClientList)
	api.GET("/clients/search", ctrl.apiClientSearch)
	api.POST("/clients", ctrl.apiClientCreate)
	api.GET("/clients/:id", ctrl.apiClientGet)
	api.PUT("/clients/:id", ctrl.apiClientUpdate)
	api.DELETE("/clients/:id", ctrl.apiClientDelete)

	api.GET("/projects", ctrl.apiProjectList)
	api.GET("/projects/stats", ctrl.apiProjectStats)
	api.POST("/projects", ctrl.apiProjectCreate)
	api.GET("/projects/:id", ctrl.apiProjectGet)
	api.PUT("/projects/:id", ctrl.apiProjectUpdate)
	api.DELETE("/projects/:id", ctrl.apiProjectDelete)

	api.GET("/time-entries", ctrl.apiTimeEntryList)
	api.GET("/time-entries/summary", ctrl.apiTimeSummary)
	api.POST("/time-entries", ctrl.apiTimeEntryCreate)
	api.GET("/time-entries/:id", ctrl.apiTimeEntryGet)
	api.PUT("/time-entries/:id", ctrl.apiTimeEntryUpdate)
	api.DELETE("/time-entries/:id", ctrl.apiTimeEntryDelete)

	api.GET("/invoices", ctrl.apiInvoiceList)
	api.GET("/invoices/stats", ctrl.apiInvoiceStats)
	api.POST("/invoices", ctrl.apiInvoiceCreate)
	api.POST("/invoices/from-time", ctrl.apiInvoiceFromTime)
	api.GET("/invoices/:id", ctrl.apiInvoiceGet)
	api.PUT("/invoices/:id", ctrl.apiInvoiceUpdate)
	api.DELETE("/invoices/:id", ctrl.apiInvoiceDelete)
	api.POST("/invoices/:id/mark-sent", ctrl.apiInvoiceMarkSent)
	api.POST("/invoices/:id/mark-paid", ctrl.apiInvoiceMarkPaid)

	api.GET("/documents", ctrl.apiDocumentList)
	api.POST("/documents", ctrl.apiDocumentUpload)
	api.GET("/documents/:id", ctrl.apiDocumentGet)
	api.GET("/documents/:id/download", ctrl.apiDocumentDownload)
	api.DELETE("/documents/:id", ctrl.apiDocumentDelete)

	api.GET("/export/xlsx", ctrl.apiExportXLSX)

	api.GET("/portfolio/settings", ctrl.portfolioSettingsGet)
	api.PUT("/portfolio/settings", ctrl.portfolioSettingsUpdate)
}

func userMessage(ae *appError) string {
	if ae.Public != "" {
		return ae.Public
	}
	switch ae.Code {
	case "INVALID_INPUT":
		return "The input is invalid. Please check and resubmit."
	case "NOT_FOUND":
		return "The requested resource was not found."
	case "UNAUTHORIZED":
		return "Authentication required."
	case "METHOD_NOT_ALLOWED":
		return "This HTTP method is not supported here."
	default:
		return "Something went wrong. Please try again later."
	}
}

func httpStatusToCode(status int) string {
	switch status {
	case 400:
		return "INVALID_INPUT"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 405:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= 500 {
			return "INTERNAL"
		}
		return "ERROR"
	}
}

func shouldSkipAccessLog(c echo.Context) bool {
	p := c.Request().URL.Path
	if strings.HasPrefix(p, "/static/") {
		return true
	}
	switch p {
	case "/favicon.ico", "/robots.txt", "/metrics":
		return true
	}
	m := c.Request().Method
	if m == http.MethodHead || m == http.MethodOptions {
		return true
	}
	return false
}
