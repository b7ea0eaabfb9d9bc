// Package dynamo stores blog posts in a single DynamoDB table keyed by id. Listing scans the
// table and applies the shared in-memory filter and ordering.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
)

const (
	postEntity       = "blog post"
	DefaultSlugIndex = "slug-index"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Store struct {
	client    API
	table     string
	slugIndex string
}

func NewStore(client API, table, slugIndex string) *Store {
	if slugIndex == "" {
		slugIndex = DefaultSlugIndex
	}
	return &Store{client: client, table: table, slugIndex: slugIndex}
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, translateError("find", err)
	}
	if len(out.Item) == 0 {
		return nil, errs.NewNotFound(postEntity)
	}
	return decode(out.Item)
}

func (s *Store) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.slugIndex),
		KeyConditionExpression: aws.String("#slug = :slug"),
		ExpressionAttributeNames: map[string]string{
			"#slug": "slug",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":slug": &types.AttributeValueMemberS{Value: slug},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, translateError("find", err)
	}
	if len(out.Items) == 0 {
		return nil, errs.NewNotFound(postEntity)
	}
	return decode(out.Items[0])
}

func (s *Store) FindPage(ctx context.Context, q models.PostQuery) ([]*models.BlogPost, int64, error) {
	posts, err := s.scan(ctx, q.Status)
	if err != nil {
		return nil, 0, err
	}
	page, total := q.Apply(posts)
	return page, total, nil
}

func (s *Store) Create(ctx context.Context, post *models.BlogPost) error {
	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return errs.NewInternalErrorWithCause("encode blog post", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if isConditionFailed(err) {
		return errs.NewConflict(postEntity, "id", post.ID)
	}
	return translateError("create", err)
}

// Update rewrites the authored attributes with SET/REMOVE. Counters are not part of the
// expression so concurrent ADDs survive.
func (s *Store) Update(ctx context.Context, post *models.BlogPost) error {
	fields := map[string]interface{}{
		"title":                post.Title,
		"slug":                 post.Slug,
		"excerpt":              post.Excerpt,
		"content":              post.Content,
		"author":               post.Author,
		"category":             post.Category,
		"tags":                 tagsOrEmpty(post.Tags),
		"status":               post.Status,
		"is_featured":          post.IsFeatured,
		"reading_time_minutes": post.ReadingTimeMinutes,
		"updated_at":           post.UpdatedAt,
	}
	var remove []string
	if post.FeaturedImage != nil {
		fields["featured_image"] = *post.FeaturedImage
	} else {
		remove = append(remove, "featured_image")
	}
	if post.PublishedAt != nil {
		fields["published_at"] = *post.PublishedAt
	} else {
		remove = append(remove, "published_at")
	}

	expr, names, values, err := updateExpression(fields, remove)
	if err != nil {
		return errs.NewInternalErrorWithCause("encode blog post update", err)
	}
	names["#id"] = "id"
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(post.ID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		return errs.NewNotFound(postEntity)
	}
	return translateError("update", err)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.table),
		Key:                      key(id),
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if isConditionFailed(err) {
		return errs.NewNotFound(postEntity)
	}
	return translateError("delete", err)
}

func (s *Store) IncrementViews(ctx context.Context, id string, n int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 key(id),
		UpdateExpression:    aws.String("ADD #views :n"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#views": "view_count",
			"#id":    "id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", n)},
		},
	})
	if isConditionFailed(err) {
		return errs.NewNotFound(postEntity)
	}
	return translateError("increment views of", err)
}

func (s *Store) Categories(ctx context.Context, status models.PostStatus) ([]string, error) {
	posts, err := s.scan(ctx, status)
	if err != nil {
		return nil, err
	}
	return models.DistinctCategories(posts), nil
}

func (s *Store) Tags(ctx context.Context, status models.PostStatus) ([]string, error) {
	posts, err := s.scan(ctx, status)
	if err != nil {
		return nil, err
	}
	return models.DistinctTags(posts), nil
}

// scan reads every post in status, following LastEvaluatedKey until the table is exhausted
func (s *Store) scan(ctx context.Context, status models.PostStatus) ([]*models.BlogPost, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	}
	if status != "" {
		input.FilterExpression = aws.String("#status = :status")
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		}
	}

	var posts []*models.BlogPost
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, translateError("scan", err)
		}
		for _, item := range out.Items {
			post, err := decode(item)
			if err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return posts, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// updateExpression renders "SET #a = :a, ... REMOVE #x, ..." with attribute names sorted so
// the expression is deterministic.
func updateExpression(set map[string]interface{}, remove []string) (string, map[string]string, map[string]types.AttributeValue, error) {
	names := make(map[string]string, len(set)+len(remove))
	values := make(map[string]types.AttributeValue, len(set))

	attrs := make([]string, 0, len(set))
	for attr := range set {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	assignments := make([]string, 0, len(attrs))
	for i, attr := range attrs {
		av, err := attributevalue.Marshal(set[attr])
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal %s: %w", attr, err)
		}
		name, value := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[name] = attr
		values[value] = av
		assignments = append(assignments, name+" = "+value)
	}
	expr := "SET " + strings.Join(assignments, ", ")

	if len(remove) > 0 {
		removals := make([]string, 0, len(remove))
		for i, attr := range remove {
			name := fmt.Sprintf("#r%d", i)
			names[name] = attr
			removals = append(removals, name)
		}
		expr += " REMOVE " + strings.Join(removals, ", ")
	}
	return expr, names, values, nil
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func decode(item map[string]types.AttributeValue) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := attributevalue.UnmarshalMap(item, &post); err != nil {
		return nil, errs.NewInternalErrorWithCause("decode blog post", err)
	}
	post.Tags = tagsOrEmpty(post.Tags)
	return &post, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func translateError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		return err
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return errs.NewStorageUnavailable(operation+" "+postEntity+": table missing", err)
	}
	return errs.NewStorageUnavailable(operation+" "+postEntity, err)
}
