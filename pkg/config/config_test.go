package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		IssuerDomain: "tenant.auth0.com",
		Audience:     "drinks",
	}
}

func TestValidateDerivesIssuerAndKeySetURL(t *testing.T) {
	cfg := validConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://tenant.auth0.com/", cfg.Issuer)
	assert.Equal(t, "https://tenant.auth0.com/.well-known/jwks.json", cfg.JWKSURL)
	assert.Equal(t, []string{"RS256"}, cfg.Algorithms)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 5*time.Second, cfg.JWKSTimeout)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestValidateExplicitIssuerWins(t *testing.T) {
	cfg := validConfig()
	cfg.Issuer = "https://login.example.com/"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://login.example.com/", cfg.Issuer)
	assert.Equal(t, "https://login.example.com/.well-known/jwks.json", cfg.JWKSURL)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		errText string
	}{
		{
			name:    "missing issuer",
			mutate:  func(c *Config) { c.IssuerDomain = "" },
			errText: "issuer_domain or issuer is required",
		},
		{
			name:    "domain with scheme",
			mutate:  func(c *Config) { c.IssuerDomain = "https://tenant.auth0.com" },
			errText: "bare host name",
		},
		{
			name:    "missing audience",
			mutate:  func(c *Config) { c.Audience = "" },
			errText: "audience is required",
		},
		{
			name:    "more than one algorithm",
			mutate:  func(c *Config) { c.Algorithms = []string{"RS256", "RS384"} },
			errText: "exactly one signing algorithm",
		},
		{
			name:    "symmetric algorithm",
			mutate:  func(c *Config) { c.Algorithms = []string{"HS256"} },
			errText: "unsupported signing algorithm",
		},
		{
			name:    "plain http key set",
			mutate:  func(c *Config) { c.JWKSURL = "http://127.0.0.1:9999/jwks.json" },
			errText: "must use https",
		},
		{
			name:    "unknown cache type",
			mutate:  func(c *Config) { c.Cache = &Cache{Type: "memcached"} },
			errText: "unsupported cache type",
		},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.Cache = &Cache{Type: "redis"} },
			errText: "redis_addr is required",
		},
		{
			name:    "dynamodb without table",
			mutate:  func(c *Config) { c.Cache = &Cache{Type: "dynamodb"} },
			errText: "dynamodb_table is required",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Cache = &Cache{Type: "s3"} },
			errText: "s3_bucket is required",
		},
		{
			name:    "s3 logging without bucket",
			mutate:  func(c *Config) { c.LogToS3 = true },
			errText: "log_bucket is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestValidateAllowsInsecureKeySetWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.JWKSURL = "http://127.0.0.1:9999/jwks.json"
	cfg.AllowInsecureJWKS = true

	assert.NoError(t, cfg.Validate())
}

func TestValidateDiscoveryLeavesKeySetURLEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.JWKSDiscovery = true

	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.JWKSURL)
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	content := `issuer_domain: "tenant.auth0.com"
audience: "drinks"
cache:
  type: "redis"
  redis_addr: "localhost:6379"
  ttl: "30m"
server:
  address: ":9090"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	t.Setenv("CONFIG_PATH", dir)
	t.Setenv("DW_AUDIENCE", "drinks-from-env")
	t.Setenv("DW_JWKS_MIN_REFRESH_INTERVAL", "30s")

	cfg := &Config{}
	require.NoError(t, cfg.LoadConfig())

	assert.Equal(t, "https://tenant.auth0.com/", cfg.Issuer)
	assert.Equal(t, "drinks-from-env", cfg.Audience, "environment overrides file")
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "drinks-warden:jwks:", cfg.Cache.RedisPrefix)
	assert.Equal(t, 30*time.Second, cfg.JWKSMinRefreshInterval)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"RS256"}, cfg.Algorithms)
}

func TestNewConfigIsSingleton(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	once = sync.Once{}

	t.Setenv("CONFIG_PATH", t.TempDir())
	t.Setenv("DW_ISSUER_DOMAIN", "tenant.auth0.com")
	t.Setenv("DW_AUDIENCE", "drinks")

	cfg, err := NewConfig()
	require.NoError(t, err)

	cfg2, err := NewConfig()
	require.NoError(t, err)
	assert.Same(t, cfg, cfg2, "Expected NewConfig to return the same instance")
}
