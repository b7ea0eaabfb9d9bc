package models_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rpupo63/meetup-site-backend/models"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		title string
		want  string
	}{
		{title: "Hello, World!", want: "hello-world"},
		{title: "My First Post", want: "my-first-post"},
		{title: "  Leading and trailing  ", want: "leading-and-trailing"},
		{title: "Go 1.22 -- what's new?", want: "go-122-whats-new"},
		{title: "tabs\tand\nnewlines", want: "tabs-and-newlines"},
		{title: "Café déjà vu", want: "caf-dj-vu"},
		{title: "already-a-slug", want: "already-a-slug"},
		{title: "!!!", want: ""},
		{title: "", want: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.title, func(t *testing.T) {
			got := models.Slugify(tc.title)
			assert.Equal(t, tc.want, got)
			if got != "" {
				assert.True(t, models.IsValidSlug(got))
			}
		})
	}
}

func TestSlugifyIsDeterministic(t *testing.T) {
	assert.Equal(t, models.Slugify("Hello, World!"), models.Slugify("Hello, World!"))
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, models.IsValidSlug("hello-world"))
	assert.True(t, models.IsValidSlug("post-2"))
	assert.True(t, models.IsValidSlug("a"))

	assert.False(t, models.IsValidSlug(""))
	assert.False(t, models.IsValidSlug("Hello-World"))
	assert.False(t, models.IsValidSlug("-leading"))
	assert.False(t, models.IsValidSlug("trailing-"))
	assert.False(t, models.IsValidSlug("double--hyphen"))
	assert.False(t, models.IsValidSlug("with space"))
}

func TestIsReservedSlug(t *testing.T) {
	for _, s := range []string{"featured", "categories", "tags"} {
		assert.True(t, models.IsReservedSlug(s), s)
	}
	assert.False(t, models.IsReservedSlug("featured-posts"))
	assert.False(t, models.IsReservedSlug("Tags"))
}

func TestReadingTimeMinutes(t *testing.T) {
	assert.Equal(t, 0, models.ReadingTimeMinutes(""))
	assert.Equal(t, 0, models.ReadingTimeMinutes("   \n\t"))
	assert.Equal(t, 1, models.ReadingTimeMinutes("a few words"))
	assert.Equal(t, 1, models.ReadingTimeMinutes(strings.Repeat("word ", 200)))
	assert.Equal(t, 2, models.ReadingTimeMinutes(strings.Repeat("word ", 201)))
}
