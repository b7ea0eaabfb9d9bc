package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/meetup-site-backend/models"
)

func publishedAt(minutes int) *time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	return &t
}

func samplePost(id string, minutes int) *models.BlogPost {
	return &models.BlogPost{
		ID:          id,
		Title:       "Post " + id,
		Slug:        "post-" + id,
		Excerpt:     "excerpt",
		Content:     "content",
		Author:      models.Author{ID: "a1", Name: "Ada Lovelace"},
		Category:    "Tech",
		Tags:        []string{"go"},
		Status:      models.StatusPublished,
		PublishedAt: publishedAt(minutes),
	}
}

func TestPostFilterNormalize(t *testing.T) {
	f := models.PostFilter{Category: " Tech ", Tag: "\t", Search: " go ", Author: ""}.Normalize()
	assert.Equal(t, models.PostFilter{Category: "Tech", Search: "go"}, f)
}

func TestPostQueryMatches(t *testing.T) {
	post := samplePost("1", 0)
	post.Title = "Understanding Channels"
	post.Excerpt = "A short tour"
	post.Content = "Buffered and unbuffered"
	post.IsFeatured = false

	testCases := []struct {
		name  string
		query models.PostQuery
		want  bool
	}{
		{name: "empty query", query: models.PostQuery{}, want: true},
		{name: "status match", query: models.PostQuery{Status: models.StatusPublished}, want: true},
		{name: "status mismatch", query: models.PostQuery{Status: models.StatusDraft}, want: false},
		{name: "featured only", query: models.PostQuery{FeaturedOnly: true}, want: false},
		{name: "category exact", query: models.PostQuery{Filter: models.PostFilter{Category: "Tech"}}, want: true},
		{name: "category wrong case", query: models.PostQuery{Filter: models.PostFilter{Category: "TECH"}}, want: false},
		{name: "tag member", query: models.PostQuery{Filter: models.PostFilter{Tag: "go"}}, want: true},
		{name: "tag is exact", query: models.PostQuery{Filter: models.PostFilter{Tag: "Go"}}, want: false},
		{name: "search title", query: models.PostQuery{Filter: models.PostFilter{Search: "channels"}}, want: true},
		{name: "search excerpt", query: models.PostQuery{Filter: models.PostFilter{Search: "TOUR"}}, want: true},
		{name: "search content", query: models.PostQuery{Filter: models.PostFilter{Search: "unbuffered"}}, want: true},
		{name: "search miss", query: models.PostQuery{Filter: models.PostFilter{Search: "mutex"}}, want: false},
		{name: "author substring", query: models.PostQuery{Filter: models.PostFilter{Author: "love"}}, want: true},
		{name: "author miss", query: models.PostQuery{Filter: models.PostFilter{Author: "hopper"}}, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.query.Matches(post))
		})
	}
}

func TestNewerThan(t *testing.T) {
	older := samplePost("z", 0)
	newer := samplePost("a", 10)
	assert.True(t, models.NewerThan(newer, older))
	assert.False(t, models.NewerThan(older, newer))

	// equal timestamps fall back to id descending
	b := samplePost("b", 5)
	c := samplePost("c", 5)
	assert.True(t, models.NewerThan(c, b))
	assert.False(t, models.NewerThan(b, c))

	unpublished := samplePost("zz", 0)
	unpublished.PublishedAt = nil
	assert.True(t, models.NewerThan(older, unpublished))
	assert.False(t, models.NewerThan(unpublished, older))
}

func TestPostQueryApply(t *testing.T) {
	posts := []*models.BlogPost{
		samplePost("a", 1),
		samplePost("b", 3),
		samplePost("c", 2),
		samplePost("d", 3),
	}
	draft := samplePost("e", 9)
	draft.Status = models.StatusDraft
	posts = append(posts, draft)

	q := models.PostQuery{Status: models.StatusPublished, Offset: 0, Limit: 3}
	page, total := q.Apply(posts)
	require.Len(t, page, 3)
	assert.EqualValues(t, 4, total)
	assert.Equal(t, []string{"d", "b", "c"}, ids(page))

	q.Offset = 3
	page, total = q.Apply(posts)
	assert.EqualValues(t, 4, total)
	assert.Equal(t, []string{"a"}, ids(page))

	q.Offset = 10
	page, total = q.Apply(posts)
	assert.EqualValues(t, 4, total)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	q = models.PostQuery{Status: models.StatusPublished}
	page, _ = q.Apply(posts)
	assert.Len(t, page, 4, "a zero limit returns every match")
}

func ids(posts []*models.BlogPost) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestNewPostPage(t *testing.T) {
	testCases := []struct {
		name           string
		total          int64
		page, pageSize int
		wantPages      int
		wantNext       bool
		wantPrev       bool
	}{
		{name: "empty", total: 0, page: 1, pageSize: 10, wantPages: 0},
		{name: "exact fit", total: 20, page: 1, pageSize: 10, wantPages: 2, wantNext: true},
		{name: "last partial page", total: 21, page: 3, pageSize: 10, wantPages: 3, wantPrev: true},
		{name: "middle", total: 21, page: 2, pageSize: 10, wantPages: 3, wantNext: true, wantPrev: true},
		{name: "beyond end", total: 5, page: 4, pageSize: 5, wantPages: 1, wantPrev: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := models.NewPostPage(nil, tc.total, tc.page, tc.pageSize)
			assert.NotNil(t, p.Posts)
			assert.Equal(t, tc.total, p.Total)
			assert.Equal(t, tc.page, p.Page)
			assert.Equal(t, tc.wantPages, p.TotalPages)
			assert.Equal(t, tc.wantNext, p.HasNext)
			assert.Equal(t, tc.wantPrev, p.HasPrev)
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "web", "Go"}, models.NormalizeTags([]string{" go", "web", "", "go ", "Go"}))
	assert.Equal(t, []string{}, models.NormalizeTags(nil))
}

func TestDistinctCategoriesAndTags(t *testing.T) {
	a := samplePost("a", 0)
	a.Tags = []string{"go", "web"}
	b := samplePost("b", 1)
	b.Category = "Travel"
	b.Tags = []string{"web", "lisbon"}
	c := samplePost("c", 2)

	assert.ElementsMatch(t, []string{"Tech", "Travel"}, models.DistinctCategories([]*models.BlogPost{a, b, c}))
	assert.ElementsMatch(t, []string{"go", "web", "lisbon"}, models.DistinctTags([]*models.BlogPost{a, b, c}))
	assert.Equal(t, []string{}, models.DistinctTags(nil))
}
