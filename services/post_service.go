package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/metrics"
	"github.com/rpupo63/meetup-site-backend/models"
)

const postEntity = "blog post"

// Config holds the paging limits and storage deadline of the post service
type Config struct {
	DefaultPageSize      int
	MaxPageSize          int
	DefaultFeaturedLimit int
	StoreTimeout         time.Duration
}

// DefaultConfig returns the limits used when nothing is configured
func DefaultConfig() Config {
	return Config{
		DefaultPageSize:      10,
		MaxPageSize:          50,
		DefaultFeaturedLimit: 5,
		StoreTimeout:         5 * time.Second,
	}
}

// PostService answers listing and lookup queries over the published subset of posts and
// performs authoring operations. It holds no store-specific logic.
type PostService struct {
	store  PostStore
	cache  PostCache
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	views sync.WaitGroup
	// invalidations counts cache invalidations; a fill that overlaps one is withdrawn
	invalidations atomic.Uint64
}

// Option customises a PostService
type Option func(*PostService)

// WithLogger replaces the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *PostService) {
		s.logger = logger
	}
}

// WithClock replaces the time source used for publishedAt and bookkeeping timestamps
func WithClock(now func() time.Time) Option {
	return func(s *PostService) {
		s.now = now
	}
}

// NewPostService builds the service. cache may be nil.
func NewPostService(store PostStore, cache PostCache, cfg Config, opts ...Option) *PostService {
	defaults := DefaultConfig()
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaults.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaults.MaxPageSize
	}
	if cfg.DefaultFeaturedLimit <= 0 {
		cfg.DefaultFeaturedLimit = defaults.DefaultFeaturedLimit
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaults.StoreTimeout
	}

	s := &PostService{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: log.With().Str("serviceName", "postService").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration
func (s *PostService) Config() Config {
	return s.cfg
}

// ListPosts returns one page of published posts matching filter, newest first
func (s *PostService) ListPosts(ctx context.Context, filter models.PostFilter, page, pageSize int) (models.PostPage, error) {
	if page < 1 {
		return models.PostPage{}, errs.NewValidationError("page", "page must be a positive integer")
	}
	if pageSize < 1 {
		return models.PostPage{}, errs.NewValidationError("pageSize", "page size must be a positive integer")
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	if page-1 > math.MaxInt32/pageSize {
		return models.PostPage{}, errs.NewValidationError("page", "page is out of range")
	}

	q := models.PostQuery{
		Filter: filter.Normalize(),
		Status: models.StatusPublished,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	var total int64
	posts, err := call(ctx, s, "list posts", func(ctx context.Context) ([]*models.BlogPost, error) {
		posts, n, err := s.store.FindPage(ctx, q)
		total = n
		return posts, err
	})
	if err != nil {
		return models.PostPage{}, err
	}
	return models.NewPostPage(posts, total, page, pageSize), nil
}

// GetFeatured returns up to limit published featured posts, newest first
func (s *PostService) GetFeatured(ctx context.Context, limit int) ([]*models.BlogPost, error) {
	if limit < 1 {
		return nil, errs.NewValidationError("limit", "limit must be a positive integer")
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	q := models.PostQuery{
		Status:       models.StatusPublished,
		FeaturedOnly: true,
		Limit:        limit,
	}
	posts, err := call(ctx, s, "list featured posts", func(ctx context.Context) ([]*models.BlogPost, error) {
		posts, _, err := s.store.FindPage(ctx, q)
		return posts, err
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.BlogPost{}
	}
	return posts, nil
}

// GetBySlug resolves a published post by slug and records a view in the background.
// Drafts and archived posts are reported as not found.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errs.NewValidationError("slug", "slug is required")
	}

	if post, ok := s.cachedPost(ctx, slug); ok {
		s.recordView(post.ID)
		return post, nil
	}

	generation := s.invalidations.Load()
	post, err := call(ctx, s, "find post by slug", func(ctx context.Context) (*models.BlogPost, error) {
		return s.store.FindBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, errs.NewNotFound(postEntity)
	}

	s.fillCache(ctx, slug, post, generation)
	s.recordView(post.ID)
	return post, nil
}

// GetByID returns a post of any status. It backs the admin editor.
func (s *PostService) GetByID(ctx context.Context, id string) (*models.BlogPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errs.NewValidationError("id", "id is required")
	}
	return call(ctx, s, "find post by id", func(ctx context.Context) (*models.BlogPost, error) {
		return s.store.FindByID(ctx, id)
	})
}

// ListCategories returns the distinct categories of published posts in no particular order
func (s *PostService) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := call(ctx, s, "list categories", func(ctx context.Context) ([]string, error) {
		return s.store.Categories(ctx, models.StatusPublished)
	})
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// ListTags returns the union of tags over published posts in no particular order
func (s *PostService) ListTags(ctx context.Context) ([]string, error) {
	tags, err := call(ctx, s, "list tags", func(ctx context.Context) ([]string, error) {
		return s.store.Tags(ctx, models.StatusPublished)
	})
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// CreatePost validates input, derives the slug when absent and stores a new post
func (s *PostService) CreatePost(ctx context.Context, input CreatePostInput) (*models.BlogPost, error) {
	input = input.normalize()
	if err := errs.FromValidation(input.Validate()); err != nil {
		return nil, err
	}

	slug := input.Slug
	if slug == "" {
		slug = models.Slugify(input.Title)
		if slug == "" {
			return nil, errs.NewValidationError("slug", "a slug cannot be derived from the title; supply one")
		}
		if models.IsReservedSlug(slug) {
			return nil, errs.NewValidationError("slug", "the slug derived from the title is reserved; supply one")
		}
	}
	if err := s.ensureSlugFree(ctx, slug, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	post := &models.BlogPost{
		ID:                 uuid.NewString(),
		Title:              input.Title,
		Slug:               slug,
		Excerpt:            input.Excerpt,
		Content:            input.Content,
		Author:             input.Author,
		Category:           input.Category,
		Tags:               input.Tags,
		Status:             input.Status,
		FeaturedImage:      input.FeaturedImage,
		IsFeatured:         input.IsFeatured,
		ReadingTimeMinutes: models.ReadingTimeMinutes(input.Content),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if post.Status == models.StatusPublished {
		post.PublishedAt = &now
	}

	if _, err := call(ctx, s, "create post", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Create(ctx, post)
	}); err != nil {
		return nil, err
	}

	s.logger.Info().Str("postID", post.ID).Str("slug", post.Slug).Str("status", string(post.Status)).Msg("blog post created")
	return post, nil
}

// UpdatePost applies a partial patch. publishedAt is set on the first transition into
// published and never changed afterwards.
func (s *PostService) UpdatePost(ctx context.Context, id string, patch UpdatePostInput) (*models.BlogPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errs.NewValidationError("id", "id is required")
	}
	patch = patch.normalize()
	if err := errs.FromValidation(patch.Validate()); err != nil {
		return nil, err
	}

	post, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.ID != nil && *patch.ID != post.ID {
		return nil, errs.NewValidationError("id", "id cannot be changed")
	}
	if patch.CreatedAt != nil && !patch.CreatedAt.Equal(post.CreatedAt) {
		return nil, errs.NewValidationError("createdAt", "createdAt cannot be changed")
	}

	oldSlug := post.Slug
	patch.apply(post)

	if patch.Status != nil {
		if !post.Status.CanTransitionTo(*patch.Status) {
			return nil, errs.NewValidationError("status", "cannot move a post from "+string(post.Status)+" to "+string(*patch.Status))
		}
		post.Status = *patch.Status
	}

	now := s.now().UTC()
	if post.Status == models.StatusPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}
	if post.Slug != oldSlug {
		if err := s.ensureSlugFree(ctx, post.Slug, post.ID); err != nil {
			return nil, err
		}
	}
	post.ReadingTimeMinutes = models.ReadingTimeMinutes(post.Content)
	post.UpdatedAt = now

	if _, err := call(ctx, s, "update post", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Update(ctx, post)
	}); err != nil {
		return nil, err
	}

	s.invalidate(ctx, oldSlug, post.Slug)
	s.logger.Info().Str("postID", post.ID).Str("slug", post.Slug).Str("status", string(post.Status)).Msg("blog post updated")
	return post, nil
}

// DeletePost removes a post permanently
func (s *PostService) DeletePost(ctx context.Context, id string) error {
	post, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := call(ctx, s, "delete post", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Delete(ctx, post.ID)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, post.Slug)
	s.logger.Info().Str("postID", post.ID).Str("slug", post.Slug).Msg("blog post deleted")
	return nil
}

// Wait blocks until every background view increment started so far has finished
func (s *PostService) Wait() {
	s.views.Wait()
}

func (s *PostService) ensureSlugFree(ctx context.Context, slug, ownerID string) error {
	existing, err := call(ctx, s, "find post by slug", func(ctx context.Context) (*models.BlogPost, error) {
		return s.store.FindBySlug(ctx, slug)
	})
	switch {
	case errs.IsNotFound(err):
		return nil
	case err != nil:
		return err
	case existing.ID != ownerID:
		return errs.NewConflict(postEntity, "slug", slug)
	}
	return nil
}

func (s *PostService) cachedPost(ctx context.Context, slug string) (*models.BlogPost, bool) {
	if s.cache == nil {
		return nil, false
	}
	post, ok, err := s.cache.Get(ctx, slug)
	switch {
	case err != nil:
		metrics.RecordCacheLookup("error")
		s.logger.Warn().Err(err).Str("slug", slug).Msg("post cache lookup failed, falling back to store")
		return nil, false
	case !ok || post == nil || !post.IsPublished():
		metrics.RecordCacheLookup("miss")
		return nil, false
	}
	metrics.RecordCacheLookup("hit")
	return post, true
}

// recordView increments the durable view counter without holding up the caller. The
// increment runs on its own deadline so a disconnected client does not cancel it.
func (s *PostService) recordView(postID string) {
	s.views.Add(1)
	go func() {
		defer s.views.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
		defer cancel()

		err := s.store.IncrementViews(ctx, postID, 1)
		metrics.RecordViewIncrement(err)
		if err != nil {
			s.logger.Warn().Err(err).Str("postID", postID).Msg("failed to record post view")
		}
	}()
}

// fillCache stores a freshly read post. generation is the invalidation count observed
// before the store read. The count is checked again after Set: if a write was
// acknowledged in between, the entry may predate it and is removed. An invalidation
// that lands after the check deletes the entry itself.
func (s *PostService) fillCache(ctx context.Context, slug string, post *models.BlogPost, generation uint64) {
	if s.cache == nil || s.invalidations.Load() != generation {
		return
	}
	if err := s.cache.Set(ctx, slug, post); err != nil {
		s.logger.Warn().Err(err).Str("slug", slug).Msg("failed to cache post")
		return
	}
	if s.invalidations.Load() != generation {
		s.invalidate(ctx, slug)
	}
}

// invalidate drops cache entries after the store has acknowledged a write
func (s *PostService) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	s.invalidations.Add(1)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, slugs...); err != nil {
		metrics.CacheInvalidationFailures.Inc()
		s.logger.Error().Err(err).Strs("slugs", slugs).Msg("failed to invalidate cached posts")
	}
}

// call runs one store operation under the service deadline and maps raw failures onto
// StorageUnavailable so that a failed fetch never looks like an empty result.
func call[T any](ctx context.Context, s *PostService, operation string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	v, err := fn(ctx)
	metrics.RecordStoreCall(operation, time.Since(start).Seconds(), err)
	if err == nil {
		return v, nil
	}

	var apiErr *errs.ApiErr
	switch {
	case errors.As(err, &apiErr):
		if errs.IsStorageUnavailable(err) {
			s.logger.Error().Err(err).Str("operation", operation).Msg("post store unavailable")
		}
		return v, err
	case errs.IsTimeout(err):
		err = errs.NewStorageTimeout(operation, s.cfg.StoreTimeout, err)
	default:
		err = errs.NewStorageUnavailable(operation, err)
	}
	s.logger.Error().Err(err).Str("operation", operation).Msg("post store unavailable")
	return v, err
}
