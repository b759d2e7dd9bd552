package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "IDENTITYSTORE"

	// BackendSQLite stores documents in a SQLite file through gorm.
	BackendSQLite = "sqlite"
	// BackendRedis stores documents as redis string values.
	BackendRedis = "redis"

	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultStoreBackend      = BackendSQLite
	defaultBucketName        = "identity"
	defaultDatabasePath      = "identity.db"
	defaultRedisAddress      = "127.0.0.1:6379"
	defaultRedisKeyPrefix    = "ids:"
	defaultLogLevel          = "info"
	defaultIssuer            = "identity-auth"
	defaultAudience          = "identity-api"
	defaultAdminRole         = "admin"
	defaultTokenTTLMinutes   = 30
	defaultFanoutLimit       = 16
	defaultMaxFailedAttempts = 5
	defaultLockoutMinutes    = 15
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress       string
	StoreBackend      string
	BucketName        string
	DatabasePath      string
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	RedisKeyPrefix    string
	LogLevel          string
	SigningSecret     string
	TokenIssuer       string
	TokenAudience     string
	AdminRole         string
	TokenTTL          time.Duration
	RefreshMirrorKeys bool
	FanoutLimit       int
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("store.backend", defaultStoreBackend)
	configViper.SetDefault("bucket.name", defaultBucketName)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("redis.key_prefix", defaultRedisKeyPrefix)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.issuer", defaultIssuer)
	configViper.SetDefault("auth.audience", defaultAudience)
	configViper.SetDefault("auth.admin_role", defaultAdminRole)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("identity.refresh_mirror_keys", false)
	configViper.SetDefault("identity.fanout_limit", defaultFanoutLimit)
	configViper.SetDefault("lockout.max_failed_attempts", defaultMaxFailedAttempts)
	configViper.SetDefault("lockout.duration_minutes", defaultLockoutMinutes)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		StoreBackend:      strings.ToLower(strings.TrimSpace(configViper.GetString("store.backend"))),
		BucketName:        configViper.GetString("bucket.name"),
		DatabasePath:      configViper.GetString("database.path"),
		RedisAddress:      configViper.GetString("redis.address"),
		RedisPassword:     configViper.GetString("redis.password"),
		RedisDB:           configViper.GetInt("redis.db"),
		RedisKeyPrefix:    configViper.GetString("redis.key_prefix"),
		LogLevel:          configViper.GetString("log.level"),
		SigningSecret:     configViper.GetString("auth.signing_secret"),
		TokenIssuer:       configViper.GetString("auth.issuer"),
		TokenAudience:     configViper.GetString("auth.audience"),
		AdminRole:         strings.TrimSpace(configViper.GetString("auth.admin_role")),
		TokenTTL:          time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		RefreshMirrorKeys: configViper.GetBool("identity.refresh_mirror_keys"),
		FanoutLimit:       configViper.GetInt("identity.fanout_limit"),
		MaxFailedAttempts: configViper.GetInt("lockout.max_failed_attempts"),
		LockoutDuration:   time.Duration(configViper.GetInt("lockout.duration_minutes")) * time.Minute,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.AdminRole == "" {
		return fmt.Errorf("auth.admin_role is required")
	}
	if strings.TrimSpace(c.BucketName) == "" {
		return fmt.Errorf("bucket.name is required")
	}
	switch c.StoreBackend {
	case BackendSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddress) == "" {
			return fmt.Errorf("redis.address is required")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendSQLite, BackendRedis, c.StoreBackend)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	if c.FanoutLimit <= 0 {
		return fmt.Errorf("identity.fanout_limit must be positive")
	}
	if c.MaxFailedAttempts <= 0 {
		return fmt.Errorf("lockout.max_failed_attempts must be positive")
	}
	if c.LockoutDuration <= 0 {
		return fmt.Errorf("lockout.duration_minutes must be positive")
	}
	return nil
}
