package projects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arjenou/5000React/internal/db"
)

const (
	listColumns = `id, title, architect, location, category, area, project_year, photographer, images, slug, status, created_at, updated_at`
	fullColumns = `id, title, architect, location, category, area, project_year, photographer, details, images, slug, status, created_at, updated_at`
)

type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSQLRepository(conn *sql.DB, dialect db.Dialect) *SQLRepository {
	return &SQLRepository{db: conn, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, p Project) error {
	images, err := encodeImages(p.Images)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO projects (`+fullColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Title, p.Architect, p.Location, p.Category, nullFloat(p.Area), p.ProjectYear,
		nullString(p.Photographer), string(p.Details), images, p.Slug, p.Status,
		db.FormatTime(p.CreatedAt), db.FormatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *SQLRepository) Update(ctx context.Context, id string, c Changes) (Project, error) {
	sets := make([]string, 0, 12)
	args := make([]interface{}, 0, 13)
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if c.Title != nil {
		set("title", *c.Title)
	}
	if c.Architect != nil {
		set("architect", *c.Architect)
	}
	if c.Location != nil {
		set("location", *c.Location)
	}
	if c.Category != nil {
		set("category", *c.Category)
	}
	if c.Area != nil {
		set("area", *c.Area)
	}
	if c.ProjectYear != nil {
		set("project_year", *c.ProjectYear)
	}
	if c.Photographer != nil {
		set("photographer", *c.Photographer)
	}
	if c.Details != nil {
		set("details", string(c.Details))
	}
	if c.Images != nil {
		images, err := encodeImages(c.Images)
		if err != nil {
			return Project{}, err
		}
		set("images", images)
	}
	if c.Slug != nil {
		set("slug", *c.Slug)
	}
	if c.Status != nil {
		set("status", *c.Status)
	}
	set("updated_at", db.FormatTime(c.UpdatedAt))
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Project{}, ErrSlugExists
		}
		return Project{}, fmt.Errorf("update project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Project{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *SQLRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (Project, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+fullColumns+` FROM projects WHERE id = ?`), id)
	return scanOne(row)
}

func (r *SQLRepository) GetPublishedBySlug(ctx context.Context, slug string) (Project, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT `+fullColumns+` FROM projects WHERE slug = ? AND status = ?`), slug, StatusPublished)
	return scanOne(row)
}

func (r *SQLRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	query := `SELECT id FROM projects WHERE slug = ?`
	args := []interface{}{slug}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}
	var id string
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query+` LIMIT 1`), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return true, nil
}

func (r *SQLRepository) List(ctx context.Context, q ListQuery) ([]Project, error) {
	where, args := whereClause(q)
	order := "created_at"
	if q.ByUpdatedAt {
		order = "updated_at"
	}
	cols := fullColumns
	if q.ExcludeRich {
		cols = listColumns
	}
	query := `SELECT ` + cols + ` FROM projects` + where + ` ORDER BY ` + order + ` DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows, !q.ExcludeRich)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return items, nil
}

func (r *SQLRepository) Count(ctx context.Context, q ListQuery) (int, error) {
	where, args := whereClause(q)
	var total int
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM projects`+where), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return total, nil
}

func whereClause(q ListQuery) (string, []interface{}) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)
	if q.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, q.Status)
	}
	if q.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		conds = append(conds, "(LOWER(title) LIKE LOWER(?) OR LOWER(architect) LIKE LOWER(?) OR LOWER(location) LIKE LOWER(?))")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOne(row scanner) (Project, error) {
	p, err := scanProject(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return p, err
}

func scanProject(row scanner, withDetails bool) (Project, error) {
	var (
		p                    Project
		area                 sql.NullFloat64
		photographer         sql.NullString
		details              sql.NullString
		images               sql.NullString
		createdAt, updatedAt string
	)
	dest := []interface{}{&p.ID, &p.Title, &p.Architect, &p.Location, &p.Category, &area, &p.ProjectYear, &photographer}
	if withDetails {
		dest = append(dest, &details)
	}
	dest = append(dest, &images, &p.Slug, &p.Status, &createdAt, &updatedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, err
		}
		return Project{}, fmt.Errorf("scan project: %w", err)
	}

	if area.Valid {
		v := area.Float64
		p.Area = &v
	}
	if photographer.Valid {
		v := photographer.String
		p.Photographer = &v
	}
	if details.Valid && details.String != "" {
		p.Details = json.RawMessage(details.String)
	}
	p.Images = []ImageRef{}
	if images.Valid && images.String != "" {
		if err := json.Unmarshal([]byte(images.String), &p.Images); err != nil {
			return Project{}, fmt.Errorf("decode images for %s: %w", p.ID, err)
		}
	}
	var err error
	if p.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Project{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return Project{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return p, nil
}

func encodeImages(images []ImageRef) (string, error) {
	if images == nil {
		images = []ImageRef{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	return string(b), nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
