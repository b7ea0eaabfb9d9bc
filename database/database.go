package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
)

type Database struct {
	blogPostRepo *BlogPostRepo
	blogTagRepo  *BlogTagRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	tagRepo := NewBlogTagRepo(db)
	return Database{
		blogPostRepo: NewBlogPostRepo(db, tagRepo),
		blogTagRepo:  tagRepo,
	}
}

// Accessor methods for each repository

func (d Database) BlogPostRepo() *BlogPostRepo {
	return d.blogPostRepo
}

func (d Database) BlogTagRepo() *BlogTagRepo {
	return d.blogTagRepo
}

// Options describes how to reach Postgres
type Options struct {
	Host        string
	User        string
	Password    string
	Name        string
	Port        string
	SSLMode     string
	ReplicaDSNs []string
}

// DSN renders the primary connection string
func (o Options) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		o.Host, o.User, o.Password, o.Name, o.Port, o.SSLMode)
}

// Open connects to Postgres and, when replicas are configured, routes reads to them
func Open(opts Options) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  opts.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt:    false,
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errs.NewStorageUnavailable("connect to postgres", err)
	}

	if len(opts.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(opts.ReplicaDSNs))
		for _, dsn := range opts.ReplicaDSNs {
			replicas = append(replicas, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, errs.NewStorageUnavailable("register read replicas", err)
		}
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, errs.NewStorageUnavailable("ping postgres", err)
	}
	return db, nil
}

// Migrate creates or updates the blog tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.BlogPost{}, &models.BlogTag{}); err != nil {
		return errs.NewStorageUnavailable("migrate blog tables", err)
	}
	return nil
}
