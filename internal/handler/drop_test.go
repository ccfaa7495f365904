package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/qelal/qelal/internal/model"
	"github.com/qelal/qelal/internal/service"
)

const testBaseURL = "http://localhost:8080"

func newTestDropHandler(drops map[string]*model.Drop) *DropHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewDropService(&fakeDropStore{drops: drops}, fakeGrantStore{}, fakeSlugCache{}, &fakePublisher{}, logger, nil)
	return NewDropHandler(svc, testBaseURL, logger)
}

func serveDrop(h *DropHandler, method, slug, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/drops/{slug}", h.Get)
	r.Patch("/drops/{slug}", h.Update)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/drops/"+slug, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDropGet_AnonymousOpenBundle(t *testing.T) {
	t.Parallel()

	owner := int64(1)
	h := newTestDropHandler(map[string]*model.Drop{
		"b-open": {
			ID:          1,
			Variant:     model.VariantBundle,
			Slug:        "b-open",
			OwnerID:     &owner,
			Title:       "Public links",
			AccessLevel: model.AccessView,
		},
	})

	// No user in the request context: the bundle's access level decides.
	rec := serveDrop(h, http.MethodGet, "b-open", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Role         string `json:"role"`
		ManagerToken string `json:"manager_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Role != "viewer" {
		t.Errorf("role = %q, want viewer", resp.Role)
	}
	if resp.ManagerToken != "" {
		t.Error("anonymous read must not expose share tokens")
	}
}

func TestDropGet_AnonymousRestrictedBundle(t *testing.T) {
	t.Parallel()

	owner := int64(1)
	h := newTestDropHandler(map[string]*model.Drop{
		"b-priv": {
			ID:          1,
			Variant:     model.VariantBundle,
			Slug:        "b-priv",
			OwnerID:     &owner,
			Title:       "Private",
			AccessLevel: model.AccessRestricted,
		},
	})

	rec := serveDrop(h, http.MethodGet, "b-priv", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestDropUpdate_AnonymousEditBundle(t *testing.T) {
	t.Parallel()

	owner := int64(1)
	h := newTestDropHandler(map[string]*model.Drop{
		"b-wall": {
			ID:          1,
			Variant:     model.VariantBundle,
			Slug:        "b-wall",
			OwnerID:     &owner,
			Title:       "Guest wall",
			AccessLevel: model.AccessEdit,
		},
	})

	// Content fields are editable anonymously on an edit-level bundle.
	rec := serveDrop(h, http.MethodPatch, "b-wall", `{"title":"Signed wall"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Title != "Signed wall" {
		t.Errorf("title = %q, want Signed wall", resp.Title)
	}

	// Permission-locked fields stay closed to anonymous editors.
	rec = serveDrop(h, http.MethodPatch, "b-wall", `{"is_cloaked":true}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("locked field status = %d, want 403", rec.Code)
	}
}
