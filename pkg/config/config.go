package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/boogy/drinks-warden/pkg/utils"
	"github.com/spf13/viper"
)

var (
	once     sync.Once
	instance *Config

	algorithms             = []string{"RS256"} // Only asymmetric RS256 tokens are accepted
	cacheType              = "memory"          // Default cache type
	cacheTTL               = "10m"             // Default JWKS cache TTL
	cacheMaxLocalSize      = 10                // Default max local size for memory cache
	redisPrefix            = "drinks-warden:jwks:"
	jwksTimeout            = "5s"
	jwksMinRefreshInterval = "1m"
	serverAddress          = ":8080"
	serverRequestTimeout   = "10s"
	serverShutdownTimeout  = "5s"
)

// SupportedAlgorithms lists the signing algorithms the token validator can verify.
var SupportedAlgorithms = []string{"RS256"}

// CacheTypes lists the accepted values for cache.type.
var CacheTypes = []string{"memory", "redis", "dynamodb", "s3"}

type Cache struct {
	Type          string        `mapstructure:"type"`           // Cache type: memory, redis, dynamodb or s3
	TTL           time.Duration `mapstructure:"ttl"`            // How long a fetched key set is trusted (ex: "5m", "1h")
	MaxLocalSize  int           `mapstructure:"max_local_size"` // Maximum entries held in process memory
	RedisAddr     string        `mapstructure:"redis_addr"`     // Redis address host:port (if using redis cache)
	RedisPassword string        `mapstructure:"redis_password"` // Redis password (if using redis cache)
	RedisDB       int           `mapstructure:"redis_db"`       // Redis logical database (if using redis cache)
	RedisPrefix   string        `mapstructure:"redis_prefix"`   // Key prefix (if using redis cache)
	DynamoDBTable string        `mapstructure:"dynamodb_table"` // DynamoDB table name (if using DynamoDB cache)
	S3Bucket      string        `mapstructure:"s3_bucket"`      // S3 bucket name (if using S3 cache)
	S3Prefix      string        `mapstructure:"s3_prefix"`      // S3 prefix (if using S3 cache)
}

type Server struct {
	Address         string        `mapstructure:"address"`          // Listen address for the local server
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`     // http.Server ReadTimeout
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`    // http.Server WriteTimeout
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`  // Upper bound for a single request, key fetches included
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // Grace period on SIGTERM
}

type Config struct {
	IssuerDomain           string        `mapstructure:"issuer_domain"`             // Identity provider domain, ex: "tenant.auth0.com"
	Issuer                 string        `mapstructure:"issuer"`                    // Expected "iss" claim, derived from IssuerDomain when empty
	Audience               string        `mapstructure:"audience"`                  // Expected "aud" value
	Algorithms             []string      `mapstructure:"algorithms"`                // Accepted signing algorithms, must be exactly one
	JWKSURL                string        `mapstructure:"jwks_url"`                  // Key set location, derived from the issuer when empty
	JWKSDiscovery          bool          `mapstructure:"jwks_discovery"`            // Resolve jwks_url through OIDC discovery
	AllowInsecureJWKS      bool          `mapstructure:"allow_insecure_jwks"`       // Permit plain http key set URLs (local development only)
	JWKSTimeout            time.Duration `mapstructure:"jwks_timeout"`              // Timeout for a single key set fetch
	JWKSMinRefreshInterval time.Duration `mapstructure:"jwks_min_refresh_interval"` // Minimum spacing of refetches caused by unknown key ids
	SeedFile               string        `mapstructure:"seed_file"`                 // YAML file with drinks loaded at startup
	LogLevel               string        `mapstructure:"log_level"`                 // debug, info, warn or error

	// Logging configuration directly to S3 (duplicates stdout logs)
	LogToS3   bool   `mapstructure:"log_to_s3"`  // LogToS3 is a flag to enable logging to S3
	LogBucket string `mapstructure:"log_bucket"` // LogBucket is the S3 bucket to log to
	LogPrefix string `mapstructure:"log_prefix"` // LogPrefix is the S3 key prefix to log to

	Cache  *Cache  `mapstructure:"cache"`  // Cache is the JWKS cache configuration
	Server *Server `mapstructure:"server"` // Server is the HTTP server configuration
}

// NewConfig initializes and returns the configuration. It ensures that the config is loaded only once.
func NewConfig() (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		err = instance.LoadConfig()
	})
	return instance, err
}

// LoadConfig attempts to load configuration from a file or uses default values if not found.
func (c *Config) LoadConfig() error {
	// Set default config file name and path (yaml, json or toml or ...)
	configName := utils.GetEnv("CONFIG_NAME", "config") // Configuration file name without extension
	configPath := utils.GetEnv("CONFIG_PATH", ".")      // Configuration file path, default to current directory

	// Set environment variable handling first
	viper.SetEnvPrefix("dw") // Set the environment variable prefix ex: "DW_"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("/etc/drinks-warden/")
	viper.AddConfigPath(configPath)
	viper.SetConfigName(configName)

	// Set default values
	viper.SetDefault("algorithms", algorithms)
	viper.SetDefault("jwks_timeout", jwksTimeout)
	viper.SetDefault("jwks_min_refresh_interval", jwksMinRefreshInterval)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("cache.type", cacheType)
	viper.SetDefault("cache.ttl", cacheTTL)
	viper.SetDefault("cache.max_local_size", cacheMaxLocalSize)
	viper.SetDefault("cache.redis_prefix", redisPrefix)
	viper.SetDefault("server.address", serverAddress)
	viper.SetDefault("server.request_timeout", serverRequestTimeout)
	viper.SetDefault("server.shutdown_timeout", serverShutdownTimeout)

	// Explicitly bind all config keys to environment variables
	// Core settings
	_ = viper.BindEnv("issuer_domain")             // DW_ISSUER_DOMAIN
	_ = viper.BindEnv("issuer")                    // DW_ISSUER
	_ = viper.BindEnv("audience")                  // DW_AUDIENCE
	_ = viper.BindEnv("algorithms")                // DW_ALGORITHMS
	_ = viper.BindEnv("jwks_url")                  // DW_JWKS_URL
	_ = viper.BindEnv("jwks_discovery")            // DW_JWKS_DISCOVERY
	_ = viper.BindEnv("allow_insecure_jwks")       // DW_ALLOW_INSECURE_JWKS
	_ = viper.BindEnv("jwks_timeout")              // DW_JWKS_TIMEOUT
	_ = viper.BindEnv("jwks_min_refresh_interval") // DW_JWKS_MIN_REFRESH_INTERVAL
	_ = viper.BindEnv("seed_file")                 // DW_SEED_FILE
	_ = viper.BindEnv("log_level")                 // DW_LOG_LEVEL

	// Cache settings
	_ = viper.BindEnv("cache.type")           // DW_CACHE_TYPE
	_ = viper.BindEnv("cache.ttl")            // DW_CACHE_TTL
	_ = viper.BindEnv("cache.max_local_size") // DW_CACHE_MAX_LOCAL_SIZE
	_ = viper.BindEnv("cache.redis_addr")     // DW_CACHE_REDIS_ADDR
	_ = viper.BindEnv("cache.redis_password") // DW_CACHE_REDIS_PASSWORD
	_ = viper.BindEnv("cache.redis_db")       // DW_CACHE_REDIS_DB
	_ = viper.BindEnv("cache.redis_prefix")   // DW_CACHE_REDIS_PREFIX
	_ = viper.BindEnv("cache.dynamodb_table") // DW_CACHE_DYNAMODB_TABLE
	_ = viper.BindEnv("cache.s3_bucket")      // DW_CACHE_S3_BUCKET
	_ = viper.BindEnv("cache.s3_prefix")      // DW_CACHE_S3_PREFIX

	// Server settings
	_ = viper.BindEnv("server.address")          // DW_SERVER_ADDRESS
	_ = viper.BindEnv("server.read_timeout")     // DW_SERVER_READ_TIMEOUT
	_ = viper.BindEnv("server.write_timeout")    // DW_SERVER_WRITE_TIMEOUT
	_ = viper.BindEnv("server.request_timeout")  // DW_SERVER_REQUEST_TIMEOUT
	_ = viper.BindEnv("server.shutdown_timeout") // DW_SERVER_SHUTDOWN_TIMEOUT

	// Logging settings
	_ = viper.BindEnv("log_to_s3")  // DW_LOG_TO_S3
	_ = viper.BindEnv("log_bucket") // DW_LOG_BUCKET
	_ = viper.BindEnv("log_prefix") // DW_LOG_PREFIX

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("problem reading config file: %w", err)
		}
		// Config file not found; rely on defaults and environment
	}

	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return c.Validate()
}

// Validate checks if the configuration is valid and fills in derived values.
func (c *Config) Validate() error {
	if c.IssuerDomain == "" && c.Issuer == "" {
		return errors.New("either issuer_domain or issuer is required")
	}
	if strings.Contains(c.IssuerDomain, "/") {
		return fmt.Errorf("issuer_domain must be a bare host name, got %q", c.IssuerDomain)
	}

	// The issuer URI is "https://<domain>/" unless given explicitly
	if c.Issuer == "" {
		c.Issuer = "https://" + c.IssuerDomain + "/"
	}

	if c.Audience == "" {
		return errors.New("audience is required")
	}

	if len(c.Algorithms) == 0 {
		c.Algorithms = slices.Clone(algorithms)
	}
	if len(c.Algorithms) != 1 {
		return fmt.Errorf("exactly one signing algorithm must be configured, got %v", c.Algorithms)
	}
	if !slices.Contains(SupportedAlgorithms, c.Algorithms[0]) {
		return fmt.Errorf("unsupported signing algorithm %q (supported: %v)", c.Algorithms[0], SupportedAlgorithms)
	}

	if c.JWKSURL == "" && !c.JWKSDiscovery {
		c.JWKSURL = strings.TrimSuffix(c.Issuer, "/") + "/.well-known/jwks.json"
	}
	if c.JWKSURL != "" {
		if err := c.checkKeySetURL(c.JWKSURL); err != nil {
			return err
		}
	}
	if c.JWKSDiscovery {
		if err := c.checkKeySetURL(c.Issuer); err != nil {
			return fmt.Errorf("issuer is used for discovery: %w", err)
		}
	}

	if c.JWKSTimeout <= 0 {
		c.JWKSTimeout = 5 * time.Second
	}
	if c.JWKSMinRefreshInterval < 0 {
		return errors.New("jwks_min_refresh_interval cannot be negative")
	}

	if c.Cache == nil {
		c.Cache = &Cache{Type: cacheType}
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}

	if c.Server == nil {
		c.Server = &Server{Address: serverAddress}
	}
	if c.Server.Address == "" {
		c.Server.Address = serverAddress
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.LogToS3 && c.LogBucket == "" {
		return errors.New("log_bucket is required when log_to_s3 is enabled")
	}

	return nil
}

func (c *Config) checkKeySetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid key set url %q: %w", raw, err)
	}
	if u.Host == "" {
		return fmt.Errorf("key set url %q has no host", raw)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if c.AllowInsecureJWKS {
			return nil
		}
		return fmt.Errorf("key set url %q must use https (set allow_insecure_jwks for local development)", raw)
	default:
		return fmt.Errorf("key set url %q has unsupported scheme %q", raw, u.Scheme)
	}
}

func (c *Cache) validate() error {
	if c.Type == "" {
		c.Type = cacheType
	}
	if !slices.Contains(CacheTypes, c.Type) {
		return fmt.Errorf("unsupported cache type: %s", c.Type)
	}

	switch c.Type {
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for redis cache")
		}
	case "dynamodb":
		if c.DynamoDBTable == "" {
			return errors.New("cache.dynamodb_table is required for DynamoDB cache")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("cache.s3_bucket is required for S3 cache")
		}
	}

	if c.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	if c.MaxLocalSize < 0 {
		return errors.New("cache.max_local_size cannot be negative")
	}
	return nil
}
