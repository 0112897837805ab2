package projects

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arjenou/5000React/internal/httpx"
	"github.com/arjenou/5000React/internal/metrics"
	"github.com/arjenou/5000React/internal/middleware"
	"github.com/arjenou/5000React/internal/transport"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "projects public list", DefaultPublicLimit, h.service.ListPublic)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "admin projects list", DefaultAdminLimit, h.service.ListAdmin)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, op string, defaultLimit int,
	fetch func(context.Context, ListFilter) (Page, error)) {
	log := h.logWithRequest(r)
	q := r.URL.Query()

	page, limit, err := httpx.ParsePage(q, defaultLimit, MaxLimit)
	if err != nil {
		log.Warn(op+": invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("search")),
		Status:   strings.TrimSpace(q.Get("status")),
		Page:     page,
		Limit:    limit,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	result, err := fetch(ctx, filter)
	if err != nil {
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info(op+": ok", slog.Int("count", len(result.Items)), slog.Int("total", result.Total))
	transport.WritePage(w, result.Items, transport.NewPagination(result.Page, result.Limit, result.Total))
}

func (h *Handler) PublicGetBySlug(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		log.Warn("projects public get: missing slug")
		transport.WriteError(w, http.StatusBadRequest, "missing slug", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.service.GetPublishedBySlug(ctx, slug)
	if err != nil {
		h.writeServiceError(w, log, "projects public get", err)
		return
	}

	log.Info("projects public get: ok", slog.String("slug", slug))
	transport.WriteData(w, http.StatusOK, item)
}

func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id, ok := h.pathID(w, r, log, "admin projects get")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.writeServiceError(w, log, "admin projects get", err)
		return
	}

	log.Info("admin projects get: ok", slog.String("project_id", id))
	transport.WriteData(w, http.StatusOK, item)
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin projects create: invalid json", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeServiceError(w, log, "admin projects create", err)
		return
	}

	metrics.RecordProjectWrite("create")
	log.Info("admin projects create: ok", slog.String("project_id", item.ID), slog.String("slug", item.Slug), slog.String("by", adminName(r)))
	transport.WriteMessage(w, http.StatusCreated, item, "project created")
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id, ok := h.pathID(w, r, log, "admin projects update")
	if !ok {
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin projects update: invalid json", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Update(ctx, id, req)
	if err != nil {
		h.writeServiceError(w, log, "admin projects update", err)
		return
	}

	metrics.RecordProjectWrite("update")
	log.Info("admin projects update: ok", slog.String("project_id", id), slog.String("slug", item.Slug), slog.String("by", adminName(r)))
	transport.WriteMessage(w, http.StatusOK, item, "project updated")
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id, ok := h.pathID(w, r, log, "admin projects delete")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(w, log, "admin projects delete", err)
		return
	}

	metrics.RecordProjectWrite("delete")
	log.Info("admin projects delete: ok", slog.String("project_id", id), slog.String("by", adminName(r)))
	transport.WriteMessage(w, http.StatusOK, nil, "project deleted")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn(op + ": missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return "", false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		log.Warn(op+": validation error", slog.String("field", ve.Field))
		transport.WriteError(w, http.StatusBadRequest, ve.Error(), ve.Details)
	case errors.Is(err, ErrNotFound):
		log.Warn(op + ": not found")
		transport.WriteError(w, http.StatusNotFound, "project not found", nil)
	case errors.Is(err, ErrSlugExists):
		log.Warn(op + ": slug exists")
		transport.WriteError(w, http.StatusBadRequest, "slug already exists", nil)
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}

func adminName(r *http.Request) string {
	if u, ok := middleware.AdminUserFromContext(r.Context()); ok {
		return u.Username
	}
	return ""
}
