package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lancerdesk/crm/fixtures"
)

// do runs a request through the fully wired router, including sessions and
// the auth middleware.
func do(t *testing.T, e http.Handler, method, path, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthFlow(t *testing.T) {
	store := fixtures.NewTestStore(t)
	store.Config.CookieSecret = "test-secret"
	store.Config.RegistrationAllowed = true
	e, _ := newEcho(store)

	// Unauthenticated requests are rejected.
	rec := do(t, e, http.MethodGet, "/api/v1/clients", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	rec = do(t, e, http.MethodPost, "/api/v1/auth/register",
		`{"username": "nora", "email": "nora@example.com", "password": "a long password"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodPost, "/api/v1/auth/login",
		`{"email": "nora@example.com", "password": "a long password"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no session cookie")
	}
	withSession := func(req *http.Request) {
		for _, c := range cookies {
			req.AddCookie(c)
		}
	}

	// The session authenticates API calls.
	rec = do(t, e, http.MethodGet, "/api/v1/clients", "", withSession)
	if rec.Code != http.StatusOK {
		t.Fatalf("session-authenticated status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Issue an API token over the session, then use it as a Bearer token.
	rec = do(t, e, http.MethodPost, "/api/v1/tokens", `{"name": "ci"}`, withSession)
	if rec.Code != http.StatusCreated {
		t.Fatalf("token create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tokenResp); err != nil {
		t.Fatal(err)
	}
	if tokenResp.Token == "" {
		t.Fatal("no plaintext token in response")
	}

	rec = do(t, e, http.MethodGet, "/api/v1/auth/me", "", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tokenResp.Token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "nora") {
		t.Errorf("me response = %s", rec.Body.String())
	}

	// A damaged token is rejected.
	rec = do(t, e, http.MethodGet, "/api/v1/auth/me", "", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+tokenResp.Token+"broken")
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("broken bearer status = %d, want 401", rec.Code)
	}

	// Logout invalidates the session.
	rec = do(t, e, http.MethodPost, "/api/v1/auth/logout", "", withSession)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
}

func TestRegistrationDisabled(t *testing.T) {
	store := fixtures.NewTestStore(t)
	store.Config.CookieSecret = "test-secret"
	e, _ := newEcho(store)

	rec := do(t, e, http.MethodPost, "/api/v1/auth/register",
		`{"username": "x", "email": "x@example.com", "password": "a long password"}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
