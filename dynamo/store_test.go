package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
)

// fakeTable is a single-table DynamoDB stand-in that understands the expressions the store
// emits. Scan returns pages of scanPageSize items.
type fakeTable struct {
	mu           sync.Mutex
	items        map[string]map[string]types.AttributeValue
	scanPageSize int
	scans        int
	failWith     error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: map[string]map[string]types.AttributeValue{}, scanPageSize: 2}
}

func idOf(k map[string]types.AttributeValue) string {
	return k["id"].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &dynamodb.GetItemOutput{Item: f.items[idOf(in.Key)]}, nil
}

func (f *fakeTable) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := idOf(in.Item)
	if _, ok := f.items[id]; ok && strings.Contains(aws.ToString(in.ConditionExpression), "attribute_not_exists") {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[idOf(in.Key)]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}

	expr := aws.ToString(in.UpdateExpression)
	name := func(n string) string { return in.ExpressionAttributeNames[strings.TrimSpace(n)] }
	value := func(v string) types.AttributeValue { return in.ExpressionAttributeValues[strings.TrimSpace(v)] }

	if strings.HasPrefix(expr, "ADD ") {
		parts := strings.Fields(strings.TrimPrefix(expr, "ADD "))
		attr := name(parts[0])
		delta, _ := strconv.ParseInt(value(parts[1]).(*types.AttributeValueMemberN).Value, 10, 64)
		var current int64
		if n, ok := item[attr].(*types.AttributeValueMemberN); ok {
			current, _ = strconv.ParseInt(n.Value, 10, 64)
		}
		item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+delta, 10)}
		return &dynamodb.UpdateItemOutput{}, nil
	}

	setPart, removePart, _ := strings.Cut(strings.TrimPrefix(expr, "SET "), " REMOVE ")
	for _, assignment := range strings.Split(setPart, ", ") {
		lhs, rhs, _ := strings.Cut(assignment, " = ")
		item[name(lhs)] = value(rhs)
	}
	if removePart != "" {
		for _, n := range strings.Split(removePart, ", ") {
			delete(item, name(n))
		}
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := idOf(in.Key)
	if _, ok := f.items[id]; !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeTable) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	want := in.ExpressionAttributeValues[":slug"].(*types.AttributeValueMemberS).Value
	for _, item := range f.items {
		if s, ok := item["slug"].(*types.AttributeValueMemberS); ok && s.Value == want {
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil
		}
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeTable) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.scans++

	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := idOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(ids, after) + 1
	}
	end := start + f.scanPageSize
	if end > len(ids) {
		end = len(ids)
	}

	out := &dynamodb.ScanOutput{}
	for _, id := range ids[start:end] {
		item := f.items[id]
		if in.FilterExpression != nil {
			want := in.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS).Value
			if item["status"].(*types.AttributeValueMemberS).Value != want {
				continue
			}
		}
		out.Items = append(out.Items, item)
	}
	if end < len(ids) {
		out.LastEvaluatedKey = key(ids[end-1])
	}
	return out, nil
}

var _ API = (*fakeTable)(nil)

func dynamoPost(id, slug string, status models.PostStatus, minutes int) *models.BlogPost {
	created := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	post := &models.BlogPost{
		ID:        id,
		Slug:      slug,
		Title:     "Title " + id,
		Excerpt:   "excerpt",
		Content:   "content",
		Author:    models.Author{ID: "a1", Name: "Ada"},
		Category:  "Tech",
		Tags:      []string{"go"},
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if status != models.StatusDraft {
		at := created.Add(time.Duration(minutes) * time.Minute)
		post.PublishedAt = &at
	}
	return post
}

func TestStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	s := NewStore(table, "blog_posts", "")
	img := "https://cdn.example.com/a.png"
	post := dynamoPost("p1", "first", models.StatusPublished, 0)
	post.FeaturedImage = &img
	require.NoError(t, s.Create(ctx, post))

	got, err := s.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Slug)
	assert.Equal(t, "Ada", got.Author.Name)
	assert.Equal(t, img, *got.FeaturedImage)
	assert.True(t, post.PublishedAt.Equal(*got.PublishedAt))

	bySlug, err := s.FindBySlug(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "p1", bySlug.ID)

	_, err = s.FindByID(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
	_, err = s.FindBySlug(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))

	assert.True(t, errs.IsConflict(s.Create(ctx, post)))
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	s := NewStore(table, "blog_posts", DefaultSlugIndex)
	img := "https://cdn.example.com/a.png"
	post := dynamoPost("p1", "before", models.StatusPublished, 0)
	post.FeaturedImage = &img
	require.NoError(t, s.Create(ctx, post))
	require.NoError(t, s.IncrementViews(ctx, "p1", 2))

	edited := post.Clone()
	edited.Slug = "after"
	edited.Tags = nil
	edited.FeaturedImage = nil
	edited.ViewCount = 0
	require.NoError(t, s.Update(ctx, edited))

	got, err := s.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Slug)
	assert.Nil(t, got.FeaturedImage)
	assert.Equal(t, []string{}, got.Tags)
	assert.EqualValues(t, 2, got.ViewCount, "counters are not part of the update")

	assert.True(t, errs.IsNotFound(s.Update(ctx, dynamoPost("ghost", "ghost", models.StatusDraft, 0))))
}

func TestStoreDeleteAndIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeTable(), "blog_posts", "")
	require.NoError(t, s.Create(ctx, dynamoPost("p1", "short", models.StatusPublished, 0)))

	require.NoError(t, s.IncrementViews(ctx, "p1", 1))
	require.NoError(t, s.IncrementViews(ctx, "p1", 1))
	got, err := s.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.ViewCount)

	require.NoError(t, s.Delete(ctx, "p1"))
	assert.True(t, errs.IsNotFound(s.Delete(ctx, "p1")))
	assert.True(t, errs.IsNotFound(s.IncrementViews(ctx, "p1", 1)))
}

func TestStoreFindPageFollowsScanPages(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	s := NewStore(table, "blog_posts", "")
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, dynamoPost(fmt.Sprintf("p%d", i), fmt.Sprintf("post-%d", i), models.StatusPublished, i)))
	}
	require.NoError(t, s.Create(ctx, dynamoPost("p9", "draft", models.StatusDraft, 0)))

	posts, total, err := s.FindPage(ctx, models.PostQuery{Status: models.StatusPublished, Offset: 0, Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, posts, 3)
	assert.Equal(t, "p4", posts[0].ID)
	assert.Equal(t, "p2", posts[2].ID)
	assert.Equal(t, 3, table.scans, "six items at two per page")

	categories, err := s.Categories(ctx, models.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech"}, categories)
}

func TestStoreFailuresAreUnavailable(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	table.failWith = errors.New("throttled")
	s := NewStore(table, "blog_posts", "")

	_, _, err := s.FindPage(ctx, models.PostQuery{})
	assert.True(t, errs.IsStorageUnavailable(err))
	_, err = s.FindBySlug(ctx, "x")
	assert.True(t, errs.IsStorageUnavailable(err))

	table.failWith = &types.ResourceNotFoundException{Message: aws.String("no table")}
	_, err = s.FindByID(ctx, "x")
	assert.True(t, errs.IsStorageUnavailable(err))
	assert.Contains(t, err.Error(), "table missing")
}

func TestUpdateExpressionIsDeterministic(t *testing.T) {
	expr, names, values, err := updateExpression(map[string]interface{}{
		"title": "T",
		"slug":  "s",
	}, []string{"featured_image"})
	require.NoError(t, err)

	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1 REMOVE #r0", expr)
	assert.Equal(t, map[string]string{"#f0": "slug", "#f1": "title", "#r0": "featured_image"}, names)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "s"}, values[":v0"])
}
