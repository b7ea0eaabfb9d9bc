// Package mongodb stores blog posts as documents in a single collection.
package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
)

const (
	postEntity     = "blog post"
	collectionName = "blog_posts"
)

// Connect opens a client against uri and verifies it with a ping
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errs.NewStorageUnavailable("connect to mongo", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errs.NewStorageUnavailable("ping mongo", err)
	}
	return client, nil
}

type Store struct {
	col *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{col: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique slug index and the listing index
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_slug"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "published_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("status_published_at"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("tags"),
		},
	})
	return translateError("create indexes on", "", err)
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	return s.findOne(ctx, bson.M{"_id": id}, "")
}

func (s *Store) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	return s.findOne(ctx, bson.M{"slug": slug}, slug)
}

// FindPage runs the count and the page query concurrently
func (s *Store) FindPage(ctx context.Context, q models.PostQuery) ([]*models.BlogPost, int64, error) {
	filter := BuildFilter(q)

	var (
		total int64
		posts []*models.BlogPost
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.col.CountDocuments(gctx, filter)
		if err != nil {
			return translateError("count", "", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		page, err := s.page(gctx, filter, q)
		posts = page
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *Store) page(ctx context.Context, filter bson.M, q models.PostQuery) ([]*models.BlogPost, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateError("list", "", err)
	}
	defer cur.Close(ctx)

	posts := make([]*models.BlogPost, 0, q.Limit)
	for cur.Next(ctx) {
		var p models.BlogPost
		if err := cur.Decode(&p); err != nil {
			return nil, translateError("decode", "", err)
		}
		posts = append(posts, normalize(&p))
	}
	if err := cur.Err(); err != nil {
		return nil, translateError("list", "", err)
	}
	return posts, nil
}

func (s *Store) Create(ctx context.Context, post *models.BlogPost) error {
	_, err := s.col.InsertOne(ctx, post)
	return translateError("create", post.Slug, err)
}

// Update sets the authored fields. Counters and created_at are left untouched so concurrent
// $inc operations are not overwritten.
func (s *Store) Update(ctx context.Context, post *models.BlogPost) error {
	set := bson.M{
		"title":                post.Title,
		"slug":                 post.Slug,
		"excerpt":              post.Excerpt,
		"content":              post.Content,
		"author":               post.Author,
		"category":             post.Category,
		"tags":                 nonNilTags(post.Tags),
		"status":               post.Status,
		"is_featured":          post.IsFeatured,
		"reading_time_minutes": post.ReadingTimeMinutes,
		"updated_at":           post.UpdatedAt,
	}
	unset := bson.M{}
	if post.FeaturedImage != nil {
		set["featured_image"] = *post.FeaturedImage
	} else {
		unset["featured_image"] = ""
	}
	if post.PublishedAt != nil {
		set["published_at"] = *post.PublishedAt
	} else {
		unset["published_at"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.col.UpdateByID(ctx, post.ID, update)
	if err != nil {
		return translateError("update", post.Slug, err)
	}
	if res.MatchedCount == 0 {
		return errs.NewNotFound(postEntity)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError("delete", "", err)
	}
	if res.DeletedCount == 0 {
		return errs.NewNotFound(postEntity)
	}
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id string, n int64) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"view_count": n}})
	if err != nil {
		return translateError("increment views of", "", err)
	}
	if res.MatchedCount == 0 {
		return errs.NewNotFound(postEntity)
	}
	return nil
}

func (s *Store) Categories(ctx context.Context, status models.PostStatus) ([]string, error) {
	return s.distinct(ctx, "category", status)
}

func (s *Store) Tags(ctx context.Context, status models.PostStatus) ([]string, error) {
	return s.distinct(ctx, "tags", status)
}

func (s *Store) distinct(ctx context.Context, field string, status models.PostStatus) ([]string, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	raw, err := s.col.Distinct(ctx, field, filter)
	if err != nil {
		return nil, translateError("list distinct "+field+" of", "", err)
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			values = append(values, str)
		}
	}
	return values, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := s.col.FindOne(ctx, filter).Decode(&post); err != nil {
		return nil, translateError("find", slug, err)
	}
	return normalize(&post), nil
}

// BuildFilter translates a listing query into a BSON filter. User input is quoted before it
// reaches $regex so it only ever matches literally.
func BuildFilter(q models.PostQuery) bson.M {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.FeaturedOnly {
		filter["is_featured"] = true
	}

	f := q.Filter
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	if f.Search != "" {
		rx := containsRegex(f.Search)
		filter["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"excerpt": rx},
			bson.M{"content": rx},
		}
	}
	if f.Author != "" {
		filter["author.name"] = containsRegex(f.Author)
	}
	return filter
}

func containsRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func normalize(p *models.BlogPost) *models.BlogPost {
	p.Tags = nonNilTags(p.Tags)
	if p.PublishedAt != nil {
		at := p.PublishedAt.UTC()
		p.PublishedAt = &at
	}
	return p
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func translateError(operation, slug string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errs.NewNotFound(postEntity)
	case mongo.IsDuplicateKeyError(err):
		return errs.NewConflict(postEntity, "slug", slug)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errs.IsTimeout(err):
		return errs.NewStorageUnavailable(operation+" "+postEntity, err)
	}
	return errs.NewDatabaseError(operation, postEntity, err)
}
