package database

import (
	"context"

	"github.com/rpupo63/meetup-site-backend/models"
	"gorm.io/gorm"
)

type BlogTagRepo struct {
	db *gorm.DB
}

func NewBlogTagRepo(db *gorm.DB) *BlogTagRepo {
	return &BlogTagRepo{db}
}

// Replace swaps the tag rows of a post for tags inside tx
func (r *BlogTagRepo) Replace(tx *gorm.DB, postID string, tags []string) error {
	if err := tx.Where("blog_post_id = ?", postID).Delete(&models.BlogTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	rows := models.TagRowsFor(postID, tags)
	return tx.Create(&rows).Error
}

// DistinctValues returns every tag used by at least one post in status
func (r *BlogTagRepo) DistinctValues(ctx context.Context, status models.PostStatus) ([]string, error) {
	var values []string
	tx := r.db.WithContext(ctx).
		Model(&models.BlogTag{}).
		Joins("JOIN blog_posts ON blog_posts.id = blog_tags.blog_post_id")
	if status != "" {
		tx = tx.Where("blog_posts.status = ?", status)
	}
	err := tx.Distinct().Pluck("blog_tags.value", &values).Error
	return values, err
}

// postIDsWithTag is a subquery selecting the posts carrying tag
func (r *BlogTagRepo) postIDsWithTag(tag string) *gorm.DB {
	return r.db.Model(&models.BlogTag{}).Select("blog_post_id").Where("value = ?", tag)
}
