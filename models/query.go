package models

import (
	"sort"
	"strings"
)

// PostFilter narrows a listing. Empty fields are ignored; set fields are AND-combined.
type PostFilter struct {
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Search   string `json:"search,omitempty"`
	Author   string `json:"author,omitempty"`
}

// Normalize trims every field so that whitespace-only values count as absent
func (f PostFilter) Normalize() PostFilter {
	return PostFilter{
		Category: strings.TrimSpace(f.Category),
		Tag:      strings.TrimSpace(f.Tag),
		Search:   strings.TrimSpace(f.Search),
		Author:   strings.TrimSpace(f.Author),
	}
}

// PostQuery is what the service hands to a store when it needs a page of posts
type PostQuery struct {
	Filter       PostFilter
	Status       PostStatus
	FeaturedOnly bool
	Offset       int
	Limit        int
}

// Matches reports whether p satisfies the status, featured flag and filter of q
func (q PostQuery) Matches(p *BlogPost) bool {
	if q.Status != "" && p.Status != q.Status {
		return false
	}
	if q.FeaturedOnly && !p.IsFeatured {
		return false
	}
	f := q.Filter
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Tag != "" && !containsString(p.Tags, f.Tag) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Excerpt), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) {
			return false
		}
	}
	if f.Author != "" && !strings.Contains(strings.ToLower(p.Author.Name), strings.ToLower(f.Author)) {
		return false
	}
	return true
}

// Apply filters, orders and slices posts in memory. It is the reference behaviour for stores
// that cannot push the query down to the backend.
func (q PostQuery) Apply(posts []*BlogPost) ([]*BlogPost, int64) {
	matched := make([]*BlogPost, 0, len(posts))
	for _, p := range posts {
		if q.Matches(p) {
			matched = append(matched, p)
		}
	}
	SortNewestFirst(matched)

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []*BlogPost{}, total
	}
	end := len(matched)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total
}

// NewerThan is the listing order: publishedAt descending, then id descending.
// Posts without publishedAt sort last.
func NewerThan(a, b *BlogPost) bool {
	switch {
	case a.PublishedAt == nil && b.PublishedAt != nil:
		return false
	case a.PublishedAt != nil && b.PublishedAt == nil:
		return true
	case a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
		return a.PublishedAt.After(*b.PublishedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst sorts posts in place using NewerThan
func SortNewestFirst(posts []*BlogPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return NewerThan(posts[i], posts[j])
	})
}

// PostPage is one page of a listing
type PostPage struct {
	Posts      []*BlogPost `json:"posts"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	HasNext    bool        `json:"hasNext"`
	HasPrev    bool        `json:"hasPrev"`
}

// NewPostPage computes the paging envelope for a slice taken at page with pageSize
func NewPostPage(posts []*BlogPost, total int64, page, pageSize int) PostPage {
	if posts == nil {
		posts = []*BlogPost{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PostPage{
		Posts:      posts,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// NormalizeTags trims tags, drops empty ones and removes duplicates keeping first occurrence
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// DistinctCategories returns the set of categories over posts
func DistinctCategories(posts []*BlogPost) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range posts {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// DistinctTags returns the union of tags over posts
func DistinctTags(posts []*BlogPost) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range posts {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
