package database

import (
	"context"
	"errors"
	"strings"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const postEntity = "blog post"

// authoredColumns are rewritten by Update. Counters and created_at are left to the store.
var authoredColumns = []string{
	"title", "slug", "excerpt", "content", "author_id", "author_name", "category", "status",
	"featured_image", "is_featured", "reading_time_minutes", "published_at", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type BlogPostRepo struct {
	db   *gorm.DB
	tags *BlogTagRepo
}

func NewBlogPostRepo(db *gorm.DB, tags *BlogTagRepo) *BlogPostRepo {
	return &BlogPostRepo{db: db, tags: tags}
}

// FindByID returns a blog post by its ID
func (r *BlogPostRepo) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.WithContext(ctx).Preload("TagRows").First(&post, "id = ?", id).Error
	if err != nil {
		return nil, translateError("find", "", err)
	}
	return withTags(&post), nil
}

// FindBySlug returns a blog post by its slug
func (r *BlogPostRepo) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.WithContext(ctx).Preload("TagRows").First(&post, "slug = ?", slug).Error
	if err != nil {
		return nil, translateError("find", slug, err)
	}
	return withTags(&post), nil
}

// FindPage pushes the listing filter into SQL and returns one ordered page plus the total
func (r *BlogPostRepo) FindPage(ctx context.Context, q models.PostQuery) ([]*models.BlogPost, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, translateError("count", "", err)
	}
	if total == 0 || int64(q.Offset) >= total {
		return []*models.BlogPost{}, total, nil
	}

	tx := r.filtered(ctx, q).
		Preload("TagRows").
		Order("published_at DESC NULLS LAST").
		Order("id DESC").
		Offset(q.Offset)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var posts []*models.BlogPost
	if err := tx.Find(&posts).Error; err != nil {
		return nil, 0, translateError("list", "", err)
	}
	for i := range posts {
		posts[i] = withTags(posts[i])
	}
	return posts, total, nil
}

// Create inserts a new blog post together with its tags
func (r *BlogPostRepo) Create(ctx context.Context, post *models.BlogPost) error {
	rec := post.Clone()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(rec).Error; err != nil {
			return err
		}
		return r.tags.Replace(tx, rec.ID, rec.Tags)
	})
	return translateError("create", post.Slug, err)
}

// Update rewrites the authored fields and tags of an existing blog post
func (r *BlogPostRepo) Update(ctx context.Context, post *models.BlogPost) error {
	rec := post.Clone()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(rec).Select(authoredColumns).Updates(rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return r.tags.Replace(tx, rec.ID, rec.Tags)
	})
	return translateError("update", post.Slug, err)
}

// Delete removes a blog post and its tags by id
func (r *BlogPostRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_post_id = ?", id).Delete(&models.BlogTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.BlogPost{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translateError("delete", "", err)
}

// IncrementViews adds n to view_count in a single statement
func (r *BlogPostRepo) IncrementViews(ctx context.Context, id string, n int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.BlogPost{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", n))
	if res.Error != nil {
		return translateError("increment views of", "", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound(postEntity)
	}
	return nil
}

// Categories returns the distinct categories of posts in status
func (r *BlogPostRepo) Categories(ctx context.Context, status models.PostStatus) ([]string, error) {
	var categories []string
	tx := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	if err := tx.Distinct().Pluck("category", &categories).Error; err != nil {
		return nil, translateError("list categories of", "", err)
	}
	return categories, nil
}

// Tags returns the distinct tags of posts in status
func (r *BlogPostRepo) Tags(ctx context.Context, status models.PostStatus) ([]string, error) {
	tags, err := r.tags.DistinctValues(ctx, status)
	if err != nil {
		return nil, translateError("list tags of", "", err)
	}
	return tags, nil
}

func (r *BlogPostRepo) filtered(ctx context.Context, q models.PostQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.FeaturedOnly {
		tx = tx.Where("is_featured = ?", true)
	}

	f := q.Filter
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.Tag != "" {
		tx = tx.Where("id IN (?)", r.tags.postIDsWithTag(f.Tag))
	}
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		tx = tx.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(excerpt) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)
	}
	if f.Author != "" {
		tx = tx.Where(`LOWER(author_name) LIKE ? ESCAPE '\'`, containsPattern(f.Author))
	}
	return tx
}

// containsPattern turns user input into a case-insensitive LIKE pattern with wildcards escaped
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func withTags(post *models.BlogPost) *models.BlogPost {
	post.Tags = models.TagValues(post.TagRows)
	post.TagRows = nil
	return post
}

func translateError(operation, slug string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NewNotFound(postEntity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.NewConflict(postEntity, "slug", slug)
	}
	return errs.NewDatabaseError(operation, postEntity, err)
}
