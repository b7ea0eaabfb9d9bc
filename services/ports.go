package services

import (
	"context"

	"github.com/rpupo63/meetup-site-backend/models"
)

// PostStore is the storage port the post service runs against. Implementations translate
// their native failures into errs.NotFound, errs.Conflict and errs.StorageUnavailable.
type PostStore interface {
	// FindByID returns the post with id regardless of status.
	FindByID(ctx context.Context, id string) (*models.BlogPost, error)

	// FindBySlug returns the post with slug regardless of status.
	FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error)

	// FindPage returns the posts matching q in listing order, sliced by q.Offset/q.Limit,
	// together with the number of matches before slicing.
	FindPage(ctx context.Context, q models.PostQuery) ([]*models.BlogPost, int64, error)

	Create(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id string) error

	// IncrementViews atomically adds n to the post's view counter.
	IncrementViews(ctx context.Context, id string, n int64) error

	// Categories and Tags return distinct values over posts in status.
	Categories(ctx context.Context, status models.PostStatus) ([]string, error)
	Tags(ctx context.Context, status models.PostStatus) ([]string, error)
}

// PostCache accelerates lookups by slug. A miss is (nil, false, nil).
type PostCache interface {
	Get(ctx context.Context, slug string) (*models.BlogPost, bool, error)
	Set(ctx context.Context, slug string, post *models.BlogPost) error
	Delete(ctx context.Context, slugs ...string) error
}
