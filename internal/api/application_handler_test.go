package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"careerVault/internal/database"
)

type applicationEnvelope struct {
	Message     string            `json:"message"`
	Application applicationDetail `json:"application"`
}

func TestApplications_CreateThenGet(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice@example.com")
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	w := doJSON(t, router, http.MethodPost, "/api/applications", "alice@example.com", map[string]any{
		"title":       "Backend Engineer",
		"company":     "Acme",
		"job_type":    "Full-time",
		"location":    "Remote",
		"description": "Build APIs.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created applicationEnvelope
	decodeBody(t, w, &created)
	if created.Application.Status != database.DefaultApplicationStatus {
		t.Fatalf("expected default status, got %q", created.Application.Status)
	}

	w = doJSON(t, router, http.MethodGet, "/api/applications/"+created.Application.ID.String(), "alice@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var got applicationDetail
	decodeBody(t, w, &got)
	if got.Title != "Backend Engineer" || got.Company != "Acme" || got.Description != "Build APIs." {
		t.Fatalf("unexpected application %+v", got)
	}
	if got.ResumeUsed != nil {
		t.Fatalf("expected no resume, got %v", got.ResumeUsed)
	}
}

func TestCreateApplication_RequiresTitleAndCompany(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice@example.com")
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	w := doJSON(t, router, http.MethodPost, "/api/applications", "alice@example.com", map[string]any{
		"title": "Backend Engineer",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestCreateApplication_AcceptsCompanyNameAlias(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice@example.com")
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	w := doJSON(t, router, http.MethodPost, "/api/applications", "alice@example.com", map[string]any{
		"title":        "Designer",
		"company_name": "Globex",
		"status":       "Interviewing",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created applicationEnvelope
	decodeBody(t, w, &created)
	if created.Application.Company != "Globex" || created.Application.Status != "Interviewing" {
		t.Fatalf("unexpected application %+v", created.Application)
	}
}

func TestCreateApplication_RejectsForeignResume(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	resume := database.Resume{UserID: bob.ID, ObjectKey: "resumes/b/1.pdf", Filename: "b.pdf", FileURL: "u"}
	if err := db.Create(&resume).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	w := doJSON(t, router, http.MethodPost, "/api/applications", "alice@example.com", map[string]any{
		"title":       "Engineer",
		"company":     "Acme",
		"resume_used": resume.ID.String(),
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}

func TestUpdateApplication_PartialAndClearResume(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice@example.com")
	resume := database.Resume{UserID: alice.ID, ObjectKey: "resumes/a/1.pdf", Filename: "a.pdf", FileURL: "u"}
	if err := db.Create(&resume).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	app := database.JobApplication{UserID: alice.ID, Title: "Engineer", CompanyName: "Acme", Location: "Berlin", ResumeUsed: &resume.ID}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	w := doJSON(t, router, http.MethodPatch, "/api/applications/"+app.ID.String(), "alice@example.com", map[string]any{
		"status":      "Offer",
		"resume_used": nil,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var updated applicationEnvelope
	decodeBody(t, w, &updated)
	if updated.Application.Status != "Offer" {
		t.Fatalf("status not updated: %q", updated.Application.Status)
	}
	if updated.Application.Location != "Berlin" || updated.Application.Title != "Engineer" {
		t.Fatalf("untouched fields changed: %+v", updated.Application)
	}
	if updated.Application.ResumeUsed != nil {
		t.Fatalf("expected resume cleared, got %v", updated.Application.ResumeUsed)
	}
}

func TestApplication_OtherUserForbidden(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice@example.com")
	seedUser(t, db, "bob@example.com")
	app := database.JobApplication{UserID: alice.ID, Title: "Engineer", CompanyName: "Acme"}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})
	path := "/api/applications/" + app.ID.String()

	if w := doJSON(t, router, http.MethodGet, path, "bob@example.com", nil); w.Code != http.StatusForbidden {
		t.Fatalf("GET: expected 403 got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPatch, path, "bob@example.com", map[string]any{"status": "Rejected"}); w.Code != http.StatusForbidden {
		t.Fatalf("PATCH: expected 403 got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodDelete, path, "bob@example.com", nil); w.Code != http.StatusForbidden {
		t.Fatalf("DELETE: expected 403 got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/api/applications/"+uuid.NewString(), "alice@example.com", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing: expected 404 got %d", w.Code)
	}
}

func TestDeleteApplication(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice@example.com")
	app := database.JobApplication{UserID: alice.ID, Title: "Engineer", CompanyName: "Acme"}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	w := doJSON(t, router, http.MethodDelete, "/api/applications/"+app.ID.String(), "alice@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var count int64
	db.Model(&database.JobApplication{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected application deleted")
	}
}

func TestApplicationStats(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	for _, a := range []database.JobApplication{
		{UserID: alice.ID, Title: "A", CompanyName: "X", Status: "Applied", JobType: "Full-time"},
		{UserID: alice.ID, Title: "B", CompanyName: "Y", Status: "Applied", JobType: "Contract"},
		{UserID: alice.ID, Title: "C", CompanyName: "Z", Status: "Rejected"},
		{UserID: bob.ID, Title: "D", CompanyName: "W", Status: "Offer", JobType: "Full-time"},
	} {
		if err := db.Create(&a).Error; err != nil {
			t.Fatalf("seed application: %v", err)
		}
	}
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	w := doJSON(t, router, http.MethodGet, "/api/applications/stats", "alice@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var stats struct {
		Total     int64            `json:"total"`
		ByStatus  map[string]int64 `json:"by_status"`
		ByJobType map[string]int64 `json:"by_job_type"`
	}
	decodeBody(t, w, &stats)
	if stats.Total != 3 {
		t.Fatalf("expected total 3 got %d", stats.Total)
	}
	if stats.ByStatus["Applied"] != 2 || stats.ByStatus["Rejected"] != 1 || stats.ByStatus["Offer"] != 0 {
		t.Fatalf("unexpected by_status %v", stats.ByStatus)
	}
	if stats.ByJobType["Unknown"] != 1 || stats.ByJobType["Full-time"] != 1 {
		t.Fatalf("unexpected by_job_type %v", stats.ByJobType)
	}
}

func TestProtectedRoutes_Identity(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice@example.com")
	router := newTestRouter(t, Deps{DB: db, Storage: newFakeStorage()})

	id := "00000000-0000-0000-0000-000000000001"
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/resumes"},
		{http.MethodGet, "/api/resumes"},
		{http.MethodDelete, "/api/resumes/" + id},
		{http.MethodGet, "/api/resumes/" + id + "/signed-url"},
		{http.MethodGet, "/api/applications"},
		{http.MethodPost, "/api/applications"},
		{http.MethodGet, "/api/applications/stats"},
		{http.MethodGet, "/api/applications/" + id},
		{http.MethodPatch, "/api/applications/" + id},
		{http.MethodDelete, "/api/applications/" + id},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := doJSON(t, router, rt.method, rt.path, "", map[string]string{})
			if w.Code != http.StatusBadRequest {
				t.Fatalf("missing header: expected 400 got %d body=%s", w.Code, w.Body.String())
			}
		})
	}

	if w := doJSON(t, router, http.MethodGet, "/api/applications", "ghost@example.com", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401 got %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodGet, "/api/applications", "Alice@Example.com", nil); w.Code != http.StatusOK {
		t.Fatalf("case-insensitive email: expected 200 got %d", w.Code)
	}
}
