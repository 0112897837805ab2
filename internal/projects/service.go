package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arjenou/5000React/internal/cache"
	"github.com/arjenou/5000React/internal/utils"
	"github.com/arjenou/5000React/internal/validation"
)

const (
	DefaultPublicLimit = 12
	DefaultAdminLimit  = 20
	MaxLimit           = 100

	cachePrefix = "projects:"
)

type Service struct {
	repo     Repository
	val      *validation.Validator
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService builds the project service. Public reads are cached in responses
// for ttl; every successful write drops the whole projects namespace.
func NewService(repo Repository, val *validation.Validator, responses cache.Cache, ttl time.Duration, log *slog.Logger) *Service {
	if responses == nil {
		responses = cache.NewNoop()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		val:      val,
		cache:    responses,
		cacheTTL: ttl,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) ListPublic(ctx context.Context, f ListFilter) (Page, error) {
	q := s.query(f, DefaultPublicLimit)
	q.Status = StatusPublished
	q.ExcludeRich = true

	key := publicListKey(q)
	var page Page
	if s.cached(ctx, key, &page) {
		return page, nil
	}

	page, err := s.list(ctx, q)
	if err != nil {
		return Page{}, err
	}
	s.store(ctx, key, page)
	return page, nil
}

// publicListKey keeps the search term as typed. Case folding differs between
// stores (sqlite LOWER is ASCII-only), so folding here could merge queries the
// store answers differently.
func publicListKey(q ListQuery) string {
	return fmt.Sprintf("%spublic:list:%s:%q:%d:%d", cachePrefix, q.Category, q.Search, q.Offset, q.Limit)
}

func (s *Service) ListAdmin(ctx context.Context, f ListFilter) (Page, error) {
	q := s.query(f, DefaultAdminLimit)
	q.Status = normalizeAll(f.Status)
	q.ByUpdatedAt = true
	q.ExcludeRich = true
	return s.list(ctx, q)
}

func (s *Service) query(f ListFilter, defaultLimit int) ListQuery {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return ListQuery{
		Category: normalizeAll(f.Category),
		Search:   strings.TrimSpace(f.Search),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
}

// list runs the page and count queries concurrently.
func (s *Service) list(ctx context.Context, q ListQuery) (Page, error) {
	var (
		items []Project
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.List(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: q.Offset/q.Limit + 1, Limit: q.Limit}, nil
}

func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (Project, error) {
	slug = strings.TrimSpace(slug)
	key := cachePrefix + "public:slug:" + slug

	var p Project
	if s.cached(ctx, key, &p) {
		return p, nil
	}
	p, err := s.repo.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return Project{}, err
	}
	s.store(ctx, key, p)
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Project, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Project, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Architect = strings.TrimSpace(req.Architect)
	req.Location = strings.TrimSpace(req.Location)
	req.Category = strings.TrimSpace(req.Category)

	if err := s.validate(req); err != nil {
		return Project{}, err
	}
	if detailsEmpty(req.Details) {
		return Project{}, required("details")
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}

	id := s.newID()
	slug := deriveSlug(req.Slug, req.Title, id)
	exists, err := s.repo.SlugExists(ctx, slug, "")
	if err != nil {
		return Project{}, err
	}
	now := s.timestamp()
	if exists {
		slug = slug + "-" + strconv.FormatInt(now.UnixMilli(), 10)
	}

	images := req.Images
	if images == nil {
		images = []ImageRef{}
	}
	p := Project{
		ID:           id,
		Title:        req.Title,
		Architect:    req.Architect,
		Location:     req.Location,
		Category:     req.Category,
		Area:         req.Area,
		ProjectYear:  req.ProjectYear,
		Photographer: trimmedPtr(req.Photographer),
		Details:      compact(req.Details),
		Images:       images,
		Slug:         slug,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Project{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Project, error) {
	id = strings.TrimSpace(id)
	if err := s.validate(req); err != nil {
		return Project{}, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Project{}, err
	}

	c := Changes{
		Title:        trimmedPtr(req.Title),
		Architect:    trimmedPtr(req.Architect),
		Location:     trimmedPtr(req.Location),
		Category:     trimmedPtr(req.Category),
		Area:         req.Area,
		ProjectYear:  req.ProjectYear,
		Photographer: trimmedPtr(req.Photographer),
		Details:      compact(req.Details),
		Images:       req.Images,
		Status:       req.Status,
	}

	if req.Slug != nil {
		slug := utils.Slugify(*req.Slug)
		if slug == "" {
			return Project{}, &ValidationError{Field: "slug", Message: "is invalid", Details: map[string]string{"slug": "invalid"}}
		}
		if slug != existing.Slug {
			taken, err := s.repo.SlugExists(ctx, slug, id)
			if err != nil {
				return Project{}, err
			}
			if taken {
				return Project{}, ErrSlugExists
			}
		}
		c.Slug = &slug
	}

	// Publishing validates the merged record. Rows already published are not
	// re-checked by later edits.
	if req.Status != nil && *req.Status == StatusPublished {
		if err := publishable(merge(existing, c)); err != nil {
			return Project{}, err
		}
	}

	c.UpdatedAt = s.timestamp()
	updated, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return Project{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) validate(v interface{}) error {
	err := s.val.Struct(v)
	if err == nil {
		return nil
	}
	errs := s.val.ValidationErrors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	ve := &ValidationError{Field: first.Field(), Message: s.describe(first.Tag(), first.Param()), Details: map[string]string{}}
	for _, fe := range errs {
		ve.Details[fe.Field()] = fe.Tag()
	}
	return ve
}

func (s *Service) describe(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "category":
		return "must be one of " + strings.Join(validation.Categories, ", ")
	case "projectyear":
		return fmt.Sprintf("must be between %d and %d", validation.MinProjectYear, s.val.CurrentYear())
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	case "max":
		return "must be at most " + param + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		return "is invalid"
	}
}

func (s *Service) cached(ctx context.Context, key string, dst interface{}) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("projects cache: get failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("projects cache: corrupt entry", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.log.Warn("projects cache: set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.log.Warn("projects cache: invalidate failed", slog.String("error", err.Error()))
	}
}

// publishable reports the first required field missing from p.
func publishable(p Project) error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return required("title")
	case strings.TrimSpace(p.Architect) == "":
		return required("architect")
	case strings.TrimSpace(p.Location) == "":
		return required("location")
	case strings.TrimSpace(p.Category) == "":
		return required("category")
	case p.ProjectYear == 0:
		return required("project_year")
	case detailsEmpty(p.Details):
		return required("details")
	}
	return nil
}

func merge(p Project, c Changes) Project {
	if c.Title != nil {
		p.Title = *c.Title
	}
	if c.Architect != nil {
		p.Architect = *c.Architect
	}
	if c.Location != nil {
		p.Location = *c.Location
	}
	if c.Category != nil {
		p.Category = *c.Category
	}
	if c.Area != nil {
		p.Area = c.Area
	}
	if c.ProjectYear != nil {
		p.ProjectYear = *c.ProjectYear
	}
	if c.Photographer != nil {
		p.Photographer = c.Photographer
	}
	if c.Details != nil {
		p.Details = c.Details
	}
	if c.Images != nil {
		p.Images = c.Images
	}
	if c.Slug != nil {
		p.Slug = *c.Slug
	}
	if c.Status != nil {
		p.Status = *c.Status
	}
	return p
}

func deriveSlug(requested, title, id string) string {
	raw := strings.TrimSpace(requested)
	if raw == "" {
		raw = title
	}
	if slug := utils.Slugify(raw); slug != "" {
		return slug
	}
	prefix := id
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "project-" + prefix
}

func normalizeAll(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// compact normalizes a details payload. A JSON null reads as "not supplied".
func compact(raw json.RawMessage) json.RawMessage {
	if raw == nil || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return json.RawMessage(buf.Bytes())
}
