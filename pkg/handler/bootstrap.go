package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/boogy/drinks-warden/pkg/auth"
	"github.com/boogy/drinks-warden/pkg/cache"
	"github.com/boogy/drinks-warden/pkg/config"
	"github.com/boogy/drinks-warden/pkg/drinks"
	"github.com/boogy/drinks-warden/pkg/jwks"
	"github.com/boogy/drinks-warden/pkg/metrics"
	s3logger "github.com/boogy/drinks-warden/pkg/s3logger"
	"github.com/boogy/drinks-warden/pkg/utils"
	"github.com/boogy/drinks-warden/pkg/validator"
	"github.com/boogy/drinks-warden/pkg/version"
)

// Bootstrap contains all the initialized components needed by handlers
type Bootstrap struct {
	Config    *config.Config
	Cache     cache.Cache
	Keys      *jwks.Provider
	Validator *validator.TokenValidator
	Guard     *auth.Guard
	Metrics   *metrics.Metrics
	Store     *drinks.Store
	S3Logger  *s3logger.S3Logger
	Logger    *slog.Logger
	Router    http.Handler
}

// NewBootstrap initializes all common components needed by the entrypoints
func NewBootstrap(ctx context.Context) (*Bootstrap, error) {
	// Get version information
	versionInfo := version.Get()

	// Initialize logger first so configuration errors are reported
	logger := initializeLogger(os.Getenv("LOG_LEVEL"), os.Stdout)

	logger.Info(
		fmt.Sprintf("Starting %s", versionInfo.BinName),
		slog.String("version", versionInfo.Version),
		slog.String("commit", versionInfo.Commit),
		slog.String("date", versionInfo.Date),
	)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize S3 log shipping and rebuild the logger on top of it
	s3log, err := s3logger.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize S3 logger", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize S3 logger: %w", err)
	}
	level := cfg.LogLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	var out io.Writer = os.Stdout
	if s3log.Enabled() {
		out = io.MultiWriter(os.Stdout, s3log)
	}
	logger = initializeLogger(level, out)

	b, err := NewBootstrapFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	b.S3Logger = s3log
	return b, nil
}

// NewBootstrapFromConfig wires the components for an already validated configuration.
func NewBootstrapFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Bootstrap, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.NewMetrics()

	// Initialize cache
	jwksCache, err := cache.NewCache(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize cache", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.JWKSTimeout}

	keySetURL := cfg.JWKSURL
	if cfg.JWKSDiscovery && keySetURL == "" {
		keySetURL, err = jwks.DiscoverJWKSURL(ctx, cfg.Issuer, httpClient)
		if err != nil {
			logger.Error("OIDC discovery failed", slog.String("issuer", cfg.Issuer), slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to discover key set: %w", err)
		}
		logger.Info("Discovered key set", slog.String("url", keySetURL))
	}

	keys, err := jwks.NewProvider(keySetURL,
		jwks.WithHTTPClient(httpClient),
		jwks.WithCache(jwksCache),
		jwks.WithTTL(cache.GetConfiguredTTL(cfg)),
		jwks.WithMinRefreshInterval(cfg.JWKSMinRefreshInterval),
		jwks.WithAllowInsecure(cfg.AllowInsecureJWKS),
		jwks.WithMetrics(m),
		jwks.WithLogger(logger),
	)
	if err != nil {
		logger.Error("Failed to initialize key provider", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize key provider: %w", err)
	}

	tokenValidator := validator.NewTokenValidator(cfg, keys, validator.WithLogger(logger))
	guard := auth.NewGuard(tokenValidator, auth.WithMetrics(m), auth.WithLogger(logger))

	store := drinks.NewStore()
	if cfg.SeedFile != "" {
		if _, err := store.LoadSeed(cfg.SeedFile); err != nil {
			logger.Error("Failed to load seed file", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to load seed file: %w", err)
		}
	}

	var requestTimeout = DefaultTimeout
	if cfg.Server != nil && cfg.Server.RequestTimeout > 0 {
		requestTimeout = cfg.Server.RequestTimeout
	}

	return &Bootstrap{
		Config:    cfg,
		Cache:     jwksCache,
		Keys:      keys,
		Validator: tokenValidator,
		Guard:     guard,
		Metrics:   m,
		Store:     store,
		Logger:    logger,
		Router: NewRouter(RouterDeps{
			Store:          store,
			Guard:          guard,
			Metrics:        m,
			RequestTimeout: requestTimeout,
		}),
	}, nil
}

// Cleanup flushes buffered logs to S3
func (b *Bootstrap) Cleanup(ctx context.Context) {
	if b.S3Logger == nil {
		return
	}
	if err := b.S3Logger.Flush(ctx); err != nil {
		// stdout only, the S3 sink is what just failed
		fmt.Fprintf(os.Stdout, "failed to write logs to S3: %v\n", err)
	}
}

// initializeLogger sets up the global logger with proper configuration
func initializeLogger(level string, out io.Writer) *slog.Logger {
	var programLevel = new(slog.LevelVar) // Default to Info
	programLevel.Set(slog.LevelInfo)

	if level != "" {
		if l, err := utils.ParseLogLevel(level); err == nil {
			programLevel.Set(l)
		} else {
			fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info: %v\n", level, err)
		}
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	return logger
}

// NewAwsApiGatewayFromBootstrap creates a new API Gateway handler using bootstrap
func NewAwsApiGatewayFromBootstrap(bootstrap *Bootstrap) *AwsApiGateway {
	return NewAwsApiGateway(bootstrap.Router)
}

// NewAwsLambdaUrlFromBootstrap creates a new Lambda URL handler using bootstrap
func NewAwsLambdaUrlFromBootstrap(bootstrap *Bootstrap) *AwsLambdaUrl {
	return NewAwsLambdaUrl(bootstrap.Router)
}

// NewAwsApplicationLoadBalancerFromBootstrap creates a new ALB handler using bootstrap
func NewAwsApplicationLoadBalancerFromBootstrap(bootstrap *Bootstrap) *AwsApplicationLoadBalancer {
	return NewAwsApplicationLoadBalancer(bootstrap.Router)
}
