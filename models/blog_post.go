package models

import (
	"time"
)

// PostStatus is the publication state of a blog post
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// Valid reports whether s is one of the known statuses
func (s PostStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether a post in status s may move to next.
// Unpublishing back to draft is not allowed; archiving is the way to hide a post.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusDraft:
		return next == StatusPublished || next == StatusArchived
	case StatusPublished:
		return next == StatusArchived
	case StatusArchived:
		return next == StatusPublished
	}
	return false
}

// Author is a reference to the author of a post. The post does not own the author.
type Author struct {
	ID   string `json:"id" bson:"id" dynamodbav:"id"`
	Name string `json:"name" bson:"name" dynamodbav:"name"`
}

// BlogPost represents a complete blog post with metadata
type BlogPost struct {
	ID                 string     `json:"id" bson:"_id" dynamodbav:"id" gorm:"type:uuid;primaryKey;not null"`
	Title              string     `json:"title" bson:"title" dynamodbav:"title" gorm:"type:varchar(200);not null"`
	Slug               string     `json:"slug" bson:"slug" dynamodbav:"slug" gorm:"type:varchar(255);not null;uniqueIndex:idx_blog_posts_slug"`
	Excerpt            string     `json:"excerpt" bson:"excerpt" dynamodbav:"excerpt" gorm:"type:varchar(500);not null"`
	Content            string     `json:"content" bson:"content" dynamodbav:"content" gorm:"type:text;not null"`
	Author             Author     `json:"author" bson:"author" dynamodbav:"author" gorm:"embedded;embeddedPrefix:author_"`
	Category           string     `json:"category" bson:"category" dynamodbav:"category" gorm:"type:text;not null;index:idx_blog_posts_category"`
	Tags               []string   `json:"tags" bson:"tags" dynamodbav:"tags" gorm:"-"`
	Status             PostStatus `json:"status" bson:"status" dynamodbav:"status" gorm:"type:varchar(20);not null;index:idx_blog_posts_status_published,priority:1"`
	FeaturedImage      *string    `json:"featuredImage,omitempty" bson:"featured_image,omitempty" dynamodbav:"featured_image,omitempty" gorm:"type:text"`
	IsFeatured         bool       `json:"isFeatured" bson:"is_featured" dynamodbav:"is_featured" gorm:"not null;default:false"`
	ViewCount          int64      `json:"viewCount" bson:"view_count" dynamodbav:"view_count" gorm:"not null;default:0"`
	LikeCount          int64      `json:"likeCount" bson:"like_count" dynamodbav:"like_count" gorm:"not null;default:0"`
	CommentCount       int64      `json:"commentCount" bson:"comment_count" dynamodbav:"comment_count" gorm:"not null;default:0"`
	ReadingTimeMinutes int        `json:"readingTimeMinutes" bson:"reading_time_minutes" dynamodbav:"reading_time_minutes" gorm:"not null;default:0"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty" bson:"published_at,omitempty" dynamodbav:"published_at,omitempty" gorm:"index:idx_blog_posts_status_published,priority:2"`
	CreatedAt          time.Time  `json:"createdAt" bson:"created_at" dynamodbav:"created_at" gorm:"not null"`
	UpdatedAt          time.Time  `json:"updatedAt" bson:"updated_at" dynamodbav:"updated_at" gorm:"not null"`

	TagRows []BlogTag `json:"-" bson:"-" dynamodbav:"-" gorm:"foreignKey:BlogPostID;references:ID;constraint:OnDelete:CASCADE"`
}

// IsPublished reports whether the post is visible to public queries
func (p *BlogPost) IsPublished() bool {
	return p.Status == StatusPublished
}

// Clone returns a deep copy so callers can hand posts out without sharing slices or pointers
func (p *BlogPost) Clone() *BlogPost {
	if p == nil {
		return nil
	}
	c := *p
	// an untagged post always carries an empty set, never nil
	c.Tags = append(make([]string, 0, len(p.Tags)), p.Tags...)
	if p.FeaturedImage != nil {
		img := *p.FeaturedImage
		c.FeaturedImage = &img
	}
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		c.PublishedAt = &at
	}
	c.TagRows = nil
	return &c
}
