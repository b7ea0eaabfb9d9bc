package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
)

func newPost(id, slug string, status models.PostStatus, minutes int) *models.BlogPost {
	post := &models.BlogPost{
		ID:       id,
		Slug:     slug,
		Title:    "Title " + id,
		Excerpt:  "excerpt",
		Content:  "content",
		Category: "Tech",
		Tags:     []string{"go"},
		Status:   status,
	}
	if status != models.StatusDraft {
		at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
		post.PublishedAt = &at
	}
	return post
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	post := newPost("1", "first", models.StatusPublished, 0)
	require.NoError(t, s.Create(ctx, post))

	byID, err := s.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "first", byID.Slug)

	bySlug, err := s.FindBySlug(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "1", bySlug.ID)

	// returned posts are copies
	bySlug.Tags[0] = "mutated"
	again, err := s.FindBySlug(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "go", again.Tags[0])

	_, err = s.FindByID(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
	_, err = s.FindBySlug(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestUntaggedPostKeepsEmptyTagSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	post := newPost("1", "untagged", models.StatusPublished, 0)
	post.Tags = []string{}
	require.NoError(t, s.Create(ctx, post))

	got, err := s.FindBySlug(ctx, "untagged")
	require.NoError(t, err)
	require.NotNil(t, got.Tags)
	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tags":[]`)

	page, _, err := s.FindPage(ctx, models.PostQuery{Status: models.StatusPublished, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.NotNil(t, page[0].Tags)
}

func TestCreateConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, newPost("1", "taken", models.StatusDraft, 0)))

	err := s.Create(ctx, newPost("2", "taken", models.StatusDraft, 0))
	assert.True(t, errs.IsConflict(err))

	err = s.Create(ctx, newPost("1", "other", models.StatusDraft, 0))
	assert.True(t, errs.IsConflict(err))
	assert.Equal(t, 1, s.Len())
}

func TestUpdateKeepsCountersAndMovesSlug(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	post := newPost("1", "old-slug", models.StatusPublished, 0)
	require.NoError(t, s.Create(ctx, post))
	require.NoError(t, s.Create(ctx, newPost("2", "someone-else", models.StatusDraft, 0)))
	require.NoError(t, s.IncrementViews(ctx, "1", 4))

	edited := post.Clone()
	edited.Slug = "new-slug"
	edited.ViewCount = 0
	require.NoError(t, s.Update(ctx, edited))

	_, err := s.FindBySlug(ctx, "old-slug")
	assert.True(t, errs.IsNotFound(err))
	stored, err := s.FindBySlug(ctx, "new-slug")
	require.NoError(t, err)
	assert.EqualValues(t, 4, stored.ViewCount)

	edited.Slug = "someone-else"
	assert.True(t, errs.IsConflict(s.Update(ctx, edited)))

	assert.True(t, errs.IsNotFound(s.Update(ctx, newPost("9", "ghost", models.StatusDraft, 0))))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, newPost("1", "gone", models.StatusPublished, 0)))

	require.NoError(t, s.Delete(ctx, "1"))
	_, err := s.FindBySlug(ctx, "gone")
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, errs.IsNotFound(s.Delete(ctx, "1")))

	// the slug is free again
	assert.NoError(t, s.Create(ctx, newPost("2", "gone", models.StatusDraft, 0)))
}

func TestIncrementViewsConcurrently(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, newPost("1", "busy", models.StatusPublished, 0)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.IncrementViews(ctx, "1", 1))
		}()
	}
	wg.Wait()

	post, err := s.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 50, post.ViewCount)
	assert.True(t, errs.IsNotFound(s.IncrementViews(ctx, "missing", 1)))
}

func TestFindPage(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, newPost(fmt.Sprint(i), fmt.Sprintf("post-%d", i), models.StatusPublished, i)))
	}
	require.NoError(t, s.Create(ctx, newPost("d", "draft", models.StatusDraft, 0)))

	posts, total, err := s.FindPage(ctx, models.PostQuery{Status: models.StatusPublished, Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, posts, 2)
	assert.Equal(t, "3", posts[0].ID)
	assert.Equal(t, "2", posts[1].ID)
}

func TestCategoriesAndTagsByStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	published := newPost("1", "pub", models.StatusPublished, 0)
	draft := newPost("2", "draft", models.StatusDraft, 0)
	draft.Category = "Hidden"
	draft.Tags = []string{"secret"}
	require.NoError(t, s.Create(ctx, published))
	require.NoError(t, s.Create(ctx, draft))

	categories, err := s.Categories(ctx, models.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech"}, categories)

	tags, err := s.Tags(ctx, models.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags)

	all, err := s.Categories(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Tech", "Hidden"}, all)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStore()

	_, _, err := s.FindPage(ctx, models.PostQuery{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Create(ctx, newPost("1", "x", models.StatusDraft, 0)), context.Canceled)
}
