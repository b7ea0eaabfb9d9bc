package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/meetup-site-backend/api"
	"github.com/rpupo63/meetup-site-backend/cache"
	"github.com/rpupo63/meetup-site-backend/config"
	"github.com/rpupo63/meetup-site-backend/database"
	"github.com/rpupo63/meetup-site-backend/dynamo"
	"github.com/rpupo63/meetup-site-backend/memory"
	"github.com/rpupo63/meetup-site-backend/models"
	"github.com/rpupo63/meetup-site-backend/mongodb"
	"github.com/rpupo63/meetup-site-backend/services"
)

// closer releases a backing connection on shutdown
type closer func(context.Context) error

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	env := config.New()
	if prefix := config.GetString(env, "SSM_PARAMETER_PATH", ""); prefix != "" {
		if err := overlaySSM(env, prefix); err != nil {
			fmt.Printf("Error loading parameters from SSM: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.StoreType).Msg("could not open post store")
	}
	if store == nil {
		// model generation ran instead of the server
		return
	}

	postCache, closeCache, err := openCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("cache", cfg.CacheType).Msg("could not open post cache")
	}

	service := services.NewPostService(store, postCache, services.Config{
		DefaultPageSize:      cfg.DefaultPageSize,
		MaxPageSize:          cfg.MaxPageSize,
		DefaultFeaturedLimit: cfg.FeaturedLimit,
		StoreTimeout:         cfg.StoreTimeout,
	}, services.WithLogger(log.With().Str("component", "postService").Logger()))

	errChannel := api.NewErrorChannel()

	server, err := api.NewServer(service, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)

	// Let background view increments land before the store goes away
	service.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	for _, c := range []closer{closeCache, closeStore} {
		if c == nil {
			continue
		}
		if err := c(closeCtx); err != nil {
			log.Error().Err(err).Msg("error closing connection")
		}
	}
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "blog").Logger()
}

func overlaySSM(env map[string]string, prefix string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := config.NewSSMClient(ctx, config.GetString(env, "AWS_REGION", "us-east-1"))
	if err != nil {
		return err
	}
	n, err := config.OverlaySSM(ctx, client, prefix, env)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d parameters from %s\n", n, prefix)
	return nil
}

// openStore connects the configured post store. A nil store with a nil error means the
// process only generated models.
func openStore(ctx context.Context, cfg config.Config) (services.PostStore, closer, error) {
	switch cfg.StoreType {
	case config.StorePostgres:
		db, err := database.Open(database.Options{
			Host:        cfg.DBHost,
			User:        cfg.DBUser,
			Password:    cfg.DBPassword,
			Name:        cfg.DBName,
			Port:        cfg.DBPort,
			SSLMode:     cfg.DBSSLMode,
			ReplicaDSNs: cfg.DBReplicaDSNs,
		})
		if err != nil {
			return nil, nil, err
		}
		if cfg.GenerateModels {
			log.Info().Msg("Generating models and query helpers...")
			if err := models.GenerateModels(db, "./generated"); err != nil {
				return nil, nil, err
			}
			return nil, nil, nil
		}
		if cfg.DBAutoMigrate {
			if err := database.Migrate(db); err != nil {
				return nil, nil, err
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("host", cfg.DBHost).Int("replicas", len(cfg.DBReplicaDSNs)).Msg("connected to postgres")
		return database.New(db).BlogPostRepo(), func(context.Context) error { return sqlDB.Close() }, nil

	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		store := mongodb.NewStore(client.Database(cfg.MongoDBName))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		log.Info().Str("database", cfg.MongoDBName).Msg("connected to mongodb")
		return store, client.Disconnect, nil

	case config.StoreDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
			}
		})
		log.Info().Str("table", cfg.DynamoTable).Str("region", cfg.AWSRegion).Msg("using dynamodb")
		return dynamo.NewStore(client, cfg.DynamoTable, cfg.DynamoSlugIndex), nil, nil

	default:
		log.Warn().Msg("using the in-memory post store, data is lost on restart")
		return memory.NewStore(), nil, nil
	}
}

func openCache(cfg config.Config) (services.PostCache, closer, error) {
	switch cfg.CacheType {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisCache(client, cfg.CacheTTL), func(context.Context) error { return client.Close() }, nil
	case config.CacheMemory:
		return cache.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL), nil, nil
	default:
		return nil, nil, nil
	}
}
