// Package memory is a process-local post store. It backs development runs and tests and
// defines the reference behaviour the other stores are checked against.
package memory

import (
	"context"
	"sync"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
)

const postEntity = "blog post"

type Store struct {
	mu     sync.RWMutex
	byID   map[string]*models.BlogPost
	bySlug map[string]string
}

func NewStore() *Store {
	return &Store{
		byID:   make(map[string]*models.BlogPost),
		bySlug: make(map[string]string),
	}
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.byID[id]
	if !ok {
		return nil, errs.NewNotFound(postEntity)
	}
	return post.Clone(), nil
}

func (s *Store) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySlug[slug]
	if !ok {
		return nil, errs.NewNotFound(postEntity)
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindPage(ctx context.Context, q models.PostQuery) ([]*models.BlogPost, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	all := make([]*models.BlogPost, 0, len(s.byID))
	for _, p := range s.byID {
		all = append(all, p)
	}
	page, total := q.Apply(all)
	out := make([]*models.BlogPost, 0, len(page))
	for _, p := range page {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()
	return out, total, nil
}

func (s *Store) Create(ctx context.Context, post *models.BlogPost) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[post.ID]; ok {
		return errs.NewConflict(postEntity, "id", post.ID)
	}
	if _, ok := s.bySlug[post.Slug]; ok {
		return errs.NewConflict(postEntity, "slug", post.Slug)
	}
	s.byID[post.ID] = post.Clone()
	s.bySlug[post.Slug] = post.ID
	return nil
}

// Update replaces the authored fields of the stored post. Counters are kept as stored so a
// concurrent view increment is never lost to an edit.
func (s *Store) Update(ctx context.Context, post *models.BlogPost) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[post.ID]
	if !ok {
		return errs.NewNotFound(postEntity)
	}
	if owner, taken := s.bySlug[post.Slug]; taken && owner != post.ID {
		return errs.NewConflict(postEntity, "slug", post.Slug)
	}

	next := post.Clone()
	next.ViewCount = current.ViewCount
	next.LikeCount = current.LikeCount
	next.CommentCount = current.CommentCount
	next.CreatedAt = current.CreatedAt

	delete(s.bySlug, current.Slug)
	s.byID[post.ID] = next
	s.bySlug[next.Slug] = next.ID
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.byID[id]
	if !ok {
		return errs.NewNotFound(postEntity)
	}
	delete(s.bySlug, post.Slug)
	delete(s.byID, id)
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id string, n int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.byID[id]
	if !ok {
		return errs.NewNotFound(postEntity)
	}
	post.ViewCount += n
	return nil
}

func (s *Store) Categories(ctx context.Context, status models.PostStatus) ([]string, error) {
	posts, err := s.withStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return models.DistinctCategories(posts), nil
}

func (s *Store) Tags(ctx context.Context, status models.PostStatus) ([]string, error) {
	posts, err := s.withStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return models.DistinctTags(posts), nil
}

// Len returns the number of stored posts regardless of status
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) withStatus(ctx context.Context, status models.PostStatus) ([]*models.BlogPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*models.BlogPost, 0, len(s.byID))
	for _, p := range s.byID {
		if status == "" || p.Status == status {
			posts = append(posts, p.Clone())
		}
	}
	return posts, nil
}
