package projects

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *Service, *SQLRepository) {
	t.Helper()
	svc, repo := newTestService(t, nil)
	h := NewHandler(svc, discardLogger())

	r := chi.NewRouter()
	r.Get("/api/projects", h.PublicList)
	r.Get("/api/projects/{slug}", h.PublicGetBySlug)
	r.Get("/api/admin/projects", h.AdminList)
	r.Post("/api/admin/projects", h.AdminCreate)
	r.Get("/api/admin/projects/{id}", h.AdminGet)
	r.Put("/api/admin/projects/{id}", h.AdminUpdate)
	r.Delete("/api/admin/projects/{id}", h.AdminDelete)
	return r, svc, repo
}

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details"`
	Pagination *struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestHandlerCreateAndFetch(t *testing.T) {
	h, _, _ := newTestRouter(t)

	body := `{"title":"Sky Garden","architect":"Studio","location":"Shenzhen","category":"空间设计","project_year":2021,"details":{"html":"<p>x</p>"},"status":"published","images":[{"original_url":"https://cdn/x.jpg","alt":"x","width":0,"height":0,"thumbnail_url":"https://cdn/x.jpg"}]}`
	code, env := do(t, h, http.MethodPost, "/api/admin/projects", body)
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.True(t, env.Success)

	var created Project
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "sky-garden", created.Slug)

	code, env = do(t, h, http.MethodGet, "/api/projects/sky-garden", "")
	require.Equal(t, http.StatusOK, code)
	var got Project
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.JSONEq(t, `{"html":"<p>x</p>"}`, string(got.Details))

	code, env = do(t, h, http.MethodGet, "/api/admin/projects/"+created.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestHandlerPublicListPagination(t *testing.T) {
	h, svc, _ := newTestRouter(t)
	seedProjects(t, svc, "空间设计", StatusPublished, 14, "Space")
	seedProjects(t, svc, "展览策划", StatusPublished, 2, "Expo")

	code, env := do(t, h, http.MethodGet, "/api/projects?category=%E7%A9%BA%E9%97%B4%E8%AE%BE%E8%AE%A1&page=2&limit=12", "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 12, env.Pagination.Limit)
	assert.Equal(t, 14, env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.TotalPages)

	var items []Project
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	for _, p := range items {
		assert.Equal(t, "空间设计", p.Category)
		assert.Equal(t, StatusPublished, p.Status)
	}

	code, env = do(t, h, http.MethodGet, "/api/projects?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func TestHandlerPublishMissingFieldIs400(t *testing.T) {
	h, _, repo := newTestRouter(t)
	require.NoError(t, repo.Create(context.Background(), Project{
		ID:          "p-draft",
		Title:       "Draft",
		Location:    "Hangzhou",
		Category:    "专项游学",
		ProjectYear: 2022,
		Details:     json.RawMessage(`"body"`),
		Slug:        "draft",
		Status:      StatusDraft,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}))

	code, env := do(t, h, http.MethodPut, "/api/admin/projects/p-draft", `{"status":"published"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "architect")
}

func TestHandlerDeleteMissingIs404(t *testing.T) {
	h, _, _ := newTestRouter(t)

	code, env := do(t, h, http.MethodDelete, "/api/admin/projects/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "project not found", env.Error)
}

func TestHandlerRejectsBadBodies(t *testing.T) {
	h, _, _ := newTestRouter(t)

	code, env := do(t, h, http.MethodPost, "/api/admin/projects", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid json", env.Error)

	code, _ = do(t, h, http.MethodPost, "/api/admin/projects", `{"title":"x","unexpected":1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, h, http.MethodPost, "/api/admin/projects", `{"title":"x","architect":"y","location":"z","category":"空间设计","project_year":1899,"details":"d"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "project_year", firstKey(env.Details))
}

func TestHandlerUpdateSlugConflictIs400(t *testing.T) {
	h, svc, _ := newTestRouter(t)
	a, err := svc.Create(context.Background(), validCreate("One"))
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), validCreate("Two"))
	require.NoError(t, err)

	code, env := do(t, h, http.MethodPut, "/api/admin/projects/"+b.ID, `{"slug":"`+a.Slug+`"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "slug already exists", env.Error)
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
