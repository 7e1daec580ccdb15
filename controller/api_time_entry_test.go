package controller

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAPITimeEntryCreateRequiresDescription(t *testing.T) {
	e, _, seed := setupTestAPI(t)

	body := fmt.Sprintf(`{"project_id": %d, "hours": "2", "description": ""}`, seed.Project.ID)
	rec := call(t, e, seed.User.ID, http.MethodPost, "/api/v1/time-entries", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "description is required") {
		t.Errorf("body = %s", rec.Body.String())
	}

	body = fmt.Sprintf(`{"project_id": %d, "hours": "2"}`, seed.Project.ID)
	rec = call(t, e, seed.User.ID, http.MethodPost, "/api/v1/time-entries", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status without field = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	body = fmt.Sprintf(`{"project_id": %d, "hours": "2", "description": "API work"}`, seed.Project.ID)
	rec = call(t, e, seed.User.ID, http.MethodPost, "/api/v1/time-entries", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}
