package projects

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arjenou/5000React/internal/db"
)

func TestSQLListPostgresPlaceholders(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewSQLRepository(conn, db.Postgres)
	mock.ExpectQuery(`SELECT id, title, architect, location, category, area, project_year, photographer, images, slug, status, created_at, updated_at FROM projects WHERE status = \$1 AND category = \$2 AND \(LOWER\(title\) LIKE LOWER\(\$3\) OR LOWER\(architect\) LIKE LOWER\(\$4\) OR LOWER\(location\) LIKE LOWER\(\$5\)\) ORDER BY created_at DESC, id DESC LIMIT \$6 OFFSET \$7`).
		WithArgs(StatusPublished, "空间设计", "%tower%", "%tower%", "%tower%", 12, 12).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "architect", "location", "category", "area", "project_year", "photographer", "images", "slug", "status", "created_at", "updated_at"}).
			AddRow("p-1", "Tower", "A", "B", "空间设计", nil, 2018, nil, `[{"original_url":"u","alt":"","width":0,"height":0,"thumbnail_url":"u"}]`, "tower", "published", "2025-01-01T00:00:00.000Z", "2025-01-02T00:00:00.000Z"))

	items, err := repo.List(context.Background(), ListQuery{
		Status:      StatusPublished,
		Category:    "空间设计",
		Search:      "tower",
		Limit:       12,
		Offset:      12,
		ExcludeRich: true,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Area)
	assert.Nil(t, items[0].Photographer)
	assert.Equal(t, "u", items[0].Images[0].ThumbnailURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdateBuildsPartialSet(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewSQLRepository(conn, db.Postgres)
	mock.ExpectExec(`UPDATE projects SET title = \$1, status = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("New", StatusPublished, "2025-06-01T10:00:00.000Z", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = repo.Update(context.Background(), "p-1", Changes{
		Title:     strPtr("New"),
		Status:    strPtr(StatusPublished),
		UpdatedAt: testNow,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreErrorsAreWrapped(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	repo := NewSQLRepository(conn, db.SQLite)
	mock.ExpectQuery(`SELECT id FROM projects WHERE slug = \? LIMIT 1`).WillReturnError(errors.New("database is locked"))
	mock.ExpectExec(`DELETE FROM projects WHERE id = \?`).WillReturnError(errors.New("disk full"))

	_, err = repo.SlugExists(context.Background(), "x", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check slug")

	_, err = repo.Delete(context.Background(), "p-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMongoListFilter(t *testing.T) {
	f := listFilter(ListQuery{Status: StatusPublished, Category: "专项游学", Search: "a.b"})
	assert.Equal(t, StatusPublished, f["status"])
	assert.Equal(t, "专项游学", f["category"])
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 3)

	assert.Empty(t, listFilter(ListQuery{}))
}

func TestMongoChangeSet(t *testing.T) {
	set := changeSet(Changes{Title: strPtr("T"), Images: []ImageRef{}, UpdatedAt: testNow})
	assert.Equal(t, "T", set["title"])
	assert.Contains(t, set, "images")
	assert.Contains(t, set, "updated_at")
	assert.NotContains(t, set, "slug")
	assert.NotContains(t, set, "details")
}

func TestMongoDocRoundTrip(t *testing.T) {
	area := 1250.5
	photographer := "Iwan Baan"
	in := Project{
		ID:           "p-1",
		Title:        "Harbour Pavilion",
		Architect:    "Studio Pei-Zhu",
		Location:     "Qingdao",
		Category:     "空间设计",
		Area:         &area,
		ProjectYear:  2021,
		Photographer: &photographer,
		Details:      json.RawMessage(`{"blocks":[{"type":"p","text":"tide"}]}`),
		Images: []ImageRef{
			{OriginalURL: "https://cdn/3.jpg", Alt: "third", ThumbnailURL: "https://cdn/3.jpg"},
			{OriginalURL: "https://cdn/1.jpg", Alt: "first", Width: 800, Height: 600, ThumbnailURL: "https://cdn/1.jpg"},
			{OriginalURL: "https://cdn/2.jpg", Alt: "second", ThumbnailURL: "https://cdn/2.jpg"},
		},
		Slug:      "harbour-pavilion",
		Status:    StatusPublished,
		CreatedAt: testNow,
		UpdatedAt: testNow.Add(time.Hour),
	}

	raw, err := bson.Marshal(toDoc(in))
	require.NoError(t, err)
	assert.Equal(t, "p-1", bson.Raw(raw).Lookup("_id").StringValue())

	var doc projectDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, in, doc.project())
}

func TestMongoDocOptionalFields(t *testing.T) {
	raw, err := bson.Marshal(toDoc(Project{ID: "p-2", Slug: "bare", Status: StatusDraft, CreatedAt: testNow, UpdatedAt: testNow}))
	require.NoError(t, err)
	for _, field := range []string{"area", "photographer", "details"} {
		_, lookupErr := bson.Raw(raw).LookupErr(field)
		assert.Error(t, lookupErr, field)
	}

	var doc projectDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	out := doc.project()
	assert.Nil(t, out.Details)
	assert.Nil(t, out.Area)
	assert.NotNil(t, out.Images)
	assert.Empty(t, out.Images)
}

func TestMongoUpdateErrors(t *testing.T) {
	assert.ErrorIs(t, updateError(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, updateError(mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error"}), ErrSlugExists)
	assert.ErrorIs(t, updateError(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}), ErrSlugExists)

	other := errors.New("server selection timeout")
	assert.Equal(t, other, updateError(other))
}
