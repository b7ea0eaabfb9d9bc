package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/rpupo63/meetup-site-backend/models"
)

const (
	maxTitleLength   = 200
	maxExcerptLength = 500
	maxTagLength     = 50
)

var validStatuses = []interface{}{models.StatusDraft, models.StatusPublished, models.StatusArchived}

var slugRule = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if !models.IsValidSlug(s) {
		return errors.New("must contain only lowercase letters, digits and single hyphens")
	}
	if models.IsReservedSlug(s) {
		return fmt.Errorf("'%s' is reserved", s)
	}
	return nil
})

var tagsRule = validation.By(func(value interface{}) error {
	var tags []string
	switch v := value.(type) {
	case []string:
		tags = v
	case *[]string:
		if v != nil {
			tags = *v
		}
	}
	for _, t := range tags {
		if len([]rune(t)) > maxTagLength {
			return fmt.Errorf("tag '%s' is longer than %d characters", t, maxTagLength)
		}
	}
	return nil
})

// CreatePostInput carries the authoring fields of a new post
type CreatePostInput struct {
	Title         string            `json:"title"`
	Slug          string            `json:"slug,omitempty"`
	Excerpt       string            `json:"excerpt"`
	Content       string            `json:"content"`
	Author        models.Author     `json:"author"`
	Category      string            `json:"category"`
	Tags          []string          `json:"tags,omitempty"`
	Status        models.PostStatus `json:"status,omitempty"`
	FeaturedImage *string           `json:"featuredImage,omitempty"`
	IsFeatured    bool              `json:"isFeatured"`
}

func (in CreatePostInput) normalize() CreatePostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	in.Author.Name = strings.TrimSpace(in.Author.Name)
	in.Tags = models.NormalizeTags(in.Tags)
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if in.FeaturedImage != nil {
		img := strings.TrimSpace(*in.FeaturedImage)
		if img == "" {
			in.FeaturedImage = nil
		} else {
			in.FeaturedImage = &img
		}
	}
	return in
}

// Validate checks field presence and bounds. Call it on a normalized input.
func (in CreatePostInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required.Error("title is required"), validation.RuneLength(1, maxTitleLength)),
		validation.Field(&in.Slug, slugRule),
		validation.Field(&in.Excerpt, validation.Required.Error("excerpt is required"), validation.RuneLength(1, maxExcerptLength)),
		validation.Field(&in.Content, validation.Required.Error("content is required")),
		validation.Field(&in.Category, validation.Required.Error("category is required")),
		validation.Field(&in.Tags, tagsRule),
		validation.Field(&in.Status, validation.In(validStatuses...).Error("must be one of draft, published, archived")),
		validation.Field(&in.FeaturedImage, is.URL),
	)
}

// UpdatePostInput is a partial patch. Nil fields are left untouched. ID and CreatedAt are
// accepted only when they repeat the stored values, so clients can send a full post back.
type UpdatePostInput struct {
	ID            *string            `json:"id,omitempty"`
	CreatedAt     *time.Time         `json:"createdAt,omitempty"`
	Title         *string            `json:"title,omitempty"`
	Slug          *string            `json:"slug,omitempty"`
	Excerpt       *string            `json:"excerpt,omitempty"`
	Content       *string            `json:"content,omitempty"`
	Author        *models.Author     `json:"author,omitempty"`
	Category      *string            `json:"category,omitempty"`
	Tags          *[]string          `json:"tags,omitempty"`
	Status        *models.PostStatus `json:"status,omitempty"`
	FeaturedImage *string            `json:"featuredImage,omitempty"`
	IsFeatured    *bool              `json:"isFeatured,omitempty"`
}

func (in UpdatePostInput) normalize() UpdatePostInput {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		t := strings.TrimSpace(*s)
		return &t
	}
	in.Title = trim(in.Title)
	in.Slug = trim(in.Slug)
	in.Excerpt = trim(in.Excerpt)
	in.Content = trim(in.Content)
	in.Category = trim(in.Category)
	in.FeaturedImage = trim(in.FeaturedImage)
	if in.Tags != nil {
		tags := models.NormalizeTags(*in.Tags)
		in.Tags = &tags
	}
	return in
}

// Validate checks the fields present in the patch. Call it on a normalized input.
func (in UpdatePostInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NilOrNotEmpty.Error("title cannot be empty"), validation.RuneLength(1, maxTitleLength)),
		validation.Field(&in.Slug, validation.NilOrNotEmpty.Error("slug cannot be empty"), slugRule),
		validation.Field(&in.Excerpt, validation.NilOrNotEmpty.Error("excerpt cannot be empty"), validation.RuneLength(1, maxExcerptLength)),
		validation.Field(&in.Content, validation.NilOrNotEmpty.Error("content cannot be empty")),
		validation.Field(&in.Category, validation.NilOrNotEmpty.Error("category cannot be empty")),
		validation.Field(&in.Tags, tagsRule),
		validation.Field(&in.Status, validation.In(validStatuses...).Error("must be one of draft, published, archived")),
		validation.Field(&in.FeaturedImage, is.URL),
	)
}

// apply copies the patch onto post. Status changes are handled by the caller.
func (in UpdatePostInput) apply(post *models.BlogPost) {
	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Slug != nil {
		post.Slug = *in.Slug
	}
	if in.Excerpt != nil {
		post.Excerpt = *in.Excerpt
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Author != nil {
		post.Author = models.Author{ID: in.Author.ID, Name: strings.TrimSpace(in.Author.Name)}
	}
	if in.Category != nil {
		post.Category = *in.Category
	}
	if in.Tags != nil {
		post.Tags = *in.Tags
	}
	if in.FeaturedImage != nil {
		if *in.FeaturedImage == "" {
			post.FeaturedImage = nil
		} else {
			img := *in.FeaturedImage
			post.FeaturedImage = &img
		}
	}
	if in.IsFeatured != nil {
		post.IsFeatured = *in.IsFeatured
	}
}
