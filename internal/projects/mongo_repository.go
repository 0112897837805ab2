package projects

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// projectDoc is the stored document shape. details is kept as its serialized
// JSON text, the same as the relational column.
type projectDoc struct {
	ID           string     `bson:"_id"`
	Title        string     `bson:"title"`
	Architect    string     `bson:"architect"`
	Location     string     `bson:"location"`
	Category     string     `bson:"category"`
	Area         *float64   `bson:"area,omitempty"`
	ProjectYear  int        `bson:"project_year"`
	Photographer *string    `bson:"photographer,omitempty"`
	Details      string     `bson:"details,omitempty"`
	Images       []ImageRef `bson:"images"`
	Slug         string     `bson:"slug"`
	Status       string     `bson:"status"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toDoc(p Project) projectDoc {
	images := p.Images
	if images == nil {
		images = []ImageRef{}
	}
	return projectDoc{
		ID:           p.ID,
		Title:        p.Title,
		Architect:    p.Architect,
		Location:     p.Location,
		Category:     p.Category,
		Area:         p.Area,
		ProjectYear:  p.ProjectYear,
		Photographer: p.Photographer,
		Details:      string(p.Details),
		Images:       images,
		Slug:         p.Slug,
		Status:       p.Status,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (d projectDoc) project() Project {
	p := Project{
		ID:           d.ID,
		Title:        d.Title,
		Architect:    d.Architect,
		Location:     d.Location,
		Category:     d.Category,
		Area:         d.Area,
		ProjectYear:  d.ProjectYear,
		Photographer: d.Photographer,
		Images:       d.Images,
		Slug:         d.Slug,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.Details != "" {
		p.Details = json.RawMessage(d.Details)
	}
	if p.Images == nil {
		p.Images = []ImageRef{}
	}
	return p
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, p Project) error {
	_, err := r.col.InsertOne(ctx, toDoc(p))
	return err
}

func (r *MongoRepository) Update(ctx context.Context, id string, c Changes) (Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": changeSet(c)}

	var updated projectDoc
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return Project{}, updateError(err)
	}
	return updated.project(), nil
}

// updateError maps driver errors from an update to the repository's sentinels.
func updateError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrSlugExists
	default:
		return err
	}
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Project, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetPublishedBySlug(ctx context.Context, slug string) (Project, error) {
	return r.findOne(ctx, bson.M{"slug": slug, "status": StatusPublished})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (Project, error) {
	var doc projectDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return doc.project(), nil
}

func (r *MongoRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	filter := bson.M{"slug": slug}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoRepository) List(ctx context.Context, q ListQuery) ([]Project, error) {
	sortKey := "created_at"
	if q.ByUpdatedAt {
		sortKey = "updated_at"
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortKey, Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(q.Limit)).
		SetSkip(int64(q.Offset))
	if q.ExcludeRich {
		opts.SetProjection(bson.M{"details": 0})
	}

	cursor, err := r.col.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Project, 0)
	for cursor.Next(ctx) {
		var doc projectDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, doc.project())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, q ListQuery) (int, error) {
	n, err := r.col.CountDocuments(ctx, listFilter(q))
	return int(n), err
}

func listFilter(q ListQuery) bson.M {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"architect": re},
			bson.M{"location": re},
		}
	}
	return filter
}

func changeSet(c Changes) bson.M {
	set := bson.M{"updated_at": c.UpdatedAt}
	if c.Title != nil {
		set["title"] = *c.Title
	}
	if c.Architect != nil {
		set["architect"] = *c.Architect
	}
	if c.Location != nil {
		set["location"] = *c.Location
	}
	if c.Category != nil {
		set["category"] = *c.Category
	}
	if c.Area != nil {
		set["area"] = *c.Area
	}
	if c.ProjectYear != nil {
		set["project_year"] = *c.ProjectYear
	}
	if c.Photographer != nil {
		set["photographer"] = *c.Photographer
	}
	if c.Details != nil {
		set["details"] = string(c.Details)
	}
	if c.Images != nil {
		set["images"] = c.Images
	}
	if c.Slug != nil {
		set["slug"] = *c.Slug
	}
	if c.Status != nil {
		set["status"] = *c.Status
	}
	return set
}
