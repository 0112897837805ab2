package projects

import "context"

type Repository interface {
	Create(ctx context.Context, p Project) error
	Update(ctx context.Context, id string, c Changes) (Project, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (Project, error)
	GetPublishedBySlug(ctx context.Context, slug string) (Project, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, q ListQuery) ([]Project, error)
	Count(ctx context.Context, q ListQuery) (int, error)
}
