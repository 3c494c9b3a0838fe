package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boogy/drinks-warden/pkg/handler"
	"github.com/jessevdk/go-flags"
)

// Options for the local server
type Options struct {
	ConfigPath      string        `short:"c" long:"config" description:"directory holding the config file" env:"CONFIG_PATH"`
	ConfigName      string        `long:"config-name" description:"config file name without extension" env:"CONFIG_NAME"`
	Address         string        `short:"a" long:"address" description:"listen address, overrides server.address"`
	LogLevel        string        `short:"l" long:"log-level" description:"log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	SimulateLatency time.Duration `long:"latency" description:"simulate network latency (e.g. 100ms)"`
	FlushInterval   time.Duration `long:"log-flush-interval" default:"30s" description:"how often buffered logs are shipped to S3"`
}

func main() {
	opts := &Options{}
	if _, err := flags.Parse(opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "drinks-warden: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *Options) error {
	// The configuration is read through the environment
	setEnv("CONFIG_PATH", opts.ConfigPath)
	setEnv("CONFIG_NAME", opts.ConfigName)
	setEnv("DW_SERVER_ADDRESS", opts.Address)
	setEnv("LOG_LEVEL", opts.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap, err := handler.NewBootstrap(ctx)
	if err != nil {
		return err
	}
	cfg := bootstrap.Config

	logsDone := make(chan struct{})
	go func() {
		defer close(logsDone)
		bootstrap.S3Logger.Run(ctx, opts.FlushInterval)
	}()

	var root http.Handler = bootstrap.Router
	if opts.SimulateLatency > 0 {
		root = withLatency(root, opts.SimulateLatency)
	}

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           root,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting local server",
			slog.String("address", cfg.Server.Address),
			slog.String("issuer", cfg.Issuer),
			slog.String("audience", cfg.Audience),
			slog.String("jwksUrl", bootstrap.Keys.URL()))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", slog.String("error", err.Error()))
		}
	}

	<-logsDone
	slog.Info("Server stopped")
	return nil
}

func withLatency(next http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(d)
		next.ServeHTTP(w, r)
	})
}

func setEnv(key, value string) {
	if value == "" {
		return
	}
	if err := os.Setenv(key, value); err != nil {
		slog.Error("Error setting environment variable", "key", key, "error", err)
	}
}
