package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func New() map[string]string {
	environ := os.Environ()
	envAsMap := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if config == nil {
		return defaultValue
	}

	if val, ok := config[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

func GetInt(config map[string]string, key string, defaultValue int) int {
	s := GetString(config, key, "")
	if s == "" {
		return defaultValue
	}

	asInt, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return asInt
}

func GetBool(config map[string]string, key string, defaultValue bool) bool {
	s := GetString(config, key, "")
	if s == "" {
		return defaultValue
	}
	asBool, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return asBool
}

// GetDuration accepts Go duration strings ("90s", "1h") or a bare number of seconds
func GetDuration(config map[string]string, key string, defaultValue time.Duration) time.Duration {
	s := GetString(config, key, "")
	if s == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetList splits a comma separated value, dropping blanks
func GetList(config map[string]string, key string) []string {
	var out []string
	for _, part := range strings.Split(GetString(config, key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Store kinds
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreDynamo   = "dynamodb"
)

// Cache kinds
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the typed application configuration handed to constructors
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	StoreType    string
	StoreTimeout time.Duration

	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	DBSSLMode     string
	DBReplicaDSNs []string
	DBAutoMigrate bool

	MongoURI    string
	MongoDBName string

	DynamoTable     string
	DynamoSlugIndex string
	DynamoEndpoint  string
	AWSRegion       string

	CacheType     string
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DefaultPageSize int
	MaxPageSize     int
	FeaturedLimit   int

	AcceptedOrigins []string
	AdminJWTSecret  string

	LogLevel  string
	LogFormat string

	GenerateModels bool
}

// Load builds a Config from an env map such as the one returned by New
func Load(c map[string]string) (Config, error) {
	cfg := Config{
		Port:         GetString(c, "PORT", "8080"),
		ReadTimeout:  time.Duration(GetInt(c, "READ_TIMEOUT_SECONDS", 30)) * time.Second,
		WriteTimeout: time.Duration(GetInt(c, "WRITE_TIMEOUT_SECONDS", 30)) * time.Second,
		IdleTimeout:  time.Duration(GetInt(c, "IDLE_TIMEOUT_SECONDS", 120)) * time.Second,

		StoreType:    strings.ToLower(GetString(c, "STORE_TYPE", StoreMemory)),
		StoreTimeout: GetDuration(c, "STORE_TIMEOUT", 5*time.Second),

		DBHost:        GetString(c, "DB_HOST", "localhost"),
		DBUser:        GetString(c, "DB_USER", "postgres"),
		DBPassword:    GetString(c, "DB_PASSWORD", ""),
		DBName:        GetString(c, "DB_NAME", "blog"),
		DBPort:        GetString(c, "DB_PORT", "5432"),
		DBSSLMode:     GetString(c, "DB_SSLMODE", "disable"),
		DBReplicaDSNs: GetList(c, "DB_REPLICA_DSNS"),
		DBAutoMigrate: GetBool(c, "DB_AUTO_MIGRATE", true),

		MongoURI:    GetString(c, "MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: GetString(c, "MONGO_DB_NAME", "blog"),

		DynamoTable:     GetString(c, "DYNAMO_TABLE", "blog_posts"),
		DynamoSlugIndex: GetString(c, "DYNAMO_SLUG_INDEX", "slug-index"),
		DynamoEndpoint:  GetString(c, "DYNAMO_ENDPOINT", ""),
		AWSRegion:       GetString(c, "AWS_REGION", "us-east-1"),

		CacheType:     strings.ToLower(GetString(c, "CACHE_TYPE", CacheMemory)),
		CacheTTL:      GetDuration(c, "CACHE_TTL", time.Hour),
		CacheSize:     GetInt(c, "CACHE_SIZE", 1024),
		RedisAddr:     GetString(c, "REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetString(c, "REDIS_PASSWORD", ""),
		RedisDB:       GetInt(c, "REDIS_DB", 0),

		DefaultPageSize: GetInt(c, "DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:     GetInt(c, "MAX_PAGE_SIZE", 50),
		FeaturedLimit:   GetInt(c, "FEATURED_LIMIT", 5),

		AcceptedOrigins: GetList(c, "ACCEPTED_ORIGINS"),
		AdminJWTSecret:  GetString(c, "ADMIN_JWT_SECRET", ""),

		LogLevel:  GetString(c, "LOG_LEVEL", "info"),
		LogFormat: GetString(c, "LOG_FORMAT", "json"),

		GenerateModels: GetBool(c, "GENERATE_MODELS", false),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreType {
	case StoreMemory, StorePostgres, StoreMongo, StoreDynamo:
	default:
		return fmt.Errorf("unsupported STORE_TYPE %q", c.StoreType)
	}
	switch c.CacheType {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unsupported CACHE_TYPE %q", c.CacheType)
	}
	if c.DefaultPageSize < 1 || c.MaxPageSize < 1 || c.FeaturedLimit < 1 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE (%d) exceeds MAX_PAGE_SIZE (%d)", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	return nil
}
