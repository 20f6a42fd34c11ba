// Package serve provides the HTTP API server command.
package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ctcl-atlas/atlas/cmd/application"
	"github.com/ctcl-atlas/atlas/internal/cmd/emoji"
	"github.com/ctcl-atlas/atlas/internal/server"
	"github.com/ctcl-atlas/atlas/pkg/constants"
)

// NewCommand creates the serve command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "server",
		Short:   "Start the REST API server with WebSocket and SSE support",
		Long: `Start the atlas API server for the loaded dataset.

Features:
  - REST endpoints for dataset info, gene listing, summaries, verdicts and insights
  - Explorer WebSocket (/api/v1/explore/ws): send a gene, receive its insight
  - Server-Sent Events feed of computed verdicts (/api/v1/updates/stream)
  - In-memory response caching with configurable TTL
  - Rate limiting (requests per minute per IP)
  - API key authentication (optional)
  - CORS support for web dashboards
  - Request logging and panic recovery
  - Graceful shutdown with connection draining
  - Health, readiness and metrics endpoints

The dataset is loaded before the listener starts, so a bad manifest fails
the command instead of the first request.`,
		Example: `  # Start on default port 8080
  ctclatlas serve -d data/dataset.yaml

  # Require an API key
  CTCLATLAS_API_KEY=secret ctclatlas serve --auth

  # Allow a dashboard origin and a higher rate
  ctclatlas serve --cors-origins https://dash.example.org --rate-limit 600 --rate-burst 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, args, app)
		},
	}

	defaults := server.DefaultConfig()

	// Server configuration flags
	cmd.Flags().Int("port", defaults.Port, "Server port")
	cmd.Flags().String("host", defaults.Host, "Bind address")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	// Authentication flags
	cmd.Flags().Bool("auth", false, "Enable API key authentication")
	cmd.Flags().String("auth-header", defaults.AuthHeader, "Authentication header name")
	cmd.Flags().String("auth-key", "", "API key (default $CTCLATLAS_API_KEY)")

	// Performance flags
	cmd.Flags().Int("rate-limit", defaults.RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Int("rate-burst", defaults.RateBurst, "Burst size for rate limiting")
	cmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "Cache TTL for query responses")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")

	// Features flags
	cmd.Flags().Bool("metrics", defaults.MetricsEnabled, "Enable metrics endpoint")
	cmd.Flags().String("prefix", defaults.PathPrefix, "API path prefix")

	return cmd
}

// runServer starts the API server.
func runServer(cmd *cobra.Command, _ []string, app application.Application) error {
	cfg, err := parseConfig(cmd)
	if err != nil {
		return err
	}
	logger := app.Logger()

	a, err := app.Atlas()
	if err != nil {
		return err
	}
	stats := a.Stats()

	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Str("dataset", stats.Name).
		Int("cells", stats.Cells).
		Int("genes", stats.Genes).
		Msg("Starting API server")

	srv, err := server.New(app, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start background services (WebSocket hub, SSE broadcaster, event broker)
	srv.Start()

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return startWithGracefulShutdown(cmd.Context(), cmd, httpServer, srv, logger)
}

// parseConfig parses command flags into server configuration.
func parseConfig(cmd *cobra.Command) (server.Config, error) {
	flags := cmd.Flags()

	port := mustGet(flags.GetInt("port"))
	host := mustGet(flags.GetString("host"))
	authKey := mustGet(flags.GetString("auth-key"))

	// Override with environment variables
	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		p, err := parsePort(envPort)
		if err != nil {
			return server.Config{}, fmt.Errorf("HTTP_PORT: %w", err)
		}
		port = p
	}
	if envHost := os.Getenv("HTTP_HOST"); envHost != "" {
		host = envHost
	}
	if authKey == "" {
		authKey = os.Getenv("CTCLATLAS_API_KEY")
	}

	cfg := server.Config{
		Host:           host,
		Port:           port,
		PathPrefix:     mustGet(flags.GetString("prefix")),
		CORSEnabled:    mustGet(flags.GetBool("cors")),
		CORSOrigins:    mustGet(flags.GetStringSlice("cors-origins")),
		AuthEnabled:    mustGet(flags.GetBool("auth")),
		AuthHeader:     mustGet(flags.GetString("auth-header")),
		AuthKey:        authKey,
		RateLimit:      mustGet(flags.GetInt("rate-limit")),
		RateBurst:      mustGet(flags.GetInt("rate-burst")),
		CacheTTL:       mustGet(flags.GetDuration("cache-ttl")),
		ReadTimeout:    mustGet(flags.GetDuration("read-timeout")),
		WriteTimeout:   mustGet(flags.GetDuration("write-timeout")),
		IdleTimeout:    mustGet(flags.GetDuration("idle-timeout")),
		MetricsEnabled: mustGet(flags.GetBool("metrics")),
	}

	if cfg.AuthEnabled && cfg.AuthKey == "" {
		return cfg, fmt.Errorf("--auth requires --auth-key or CTCLATLAS_API_KEY")
	}
	if _, err := parsePort(strconv.Itoa(cfg.Port)); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parsePort safely parses a port string to integer.
func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port out of range: %d", port)
	}
	return port, nil
}

// startWithGracefulShutdown starts the HTTP server with graceful shutdown.
// The context is used to detect shutdown signals - when cancelled, server will shutdown gracefully.
func startWithGracefulShutdown(ctx context.Context, cmd *cobra.Command, httpServer *http.Server, srv *server.Server, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("service", "API").
			Msg("HTTP server listening")

		cmd.Printf("%s API server listening on %s\n", emoji.Success, httpServer.Addr)
		cmd.Println("   Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received via context")
		cmd.Printf("\n%s Shutting down API server...\n", emoji.Stop)

		// Use Background() since the parent context is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}

		logger.Info().Msg("Server stopped gracefully")
		cmd.Printf("%s API server stopped gracefully\n", emoji.Success)
		return nil
	}
}

// mustGet unwraps a flag lookup. Flags are defined in this package, so an
// error is a programming error.
func mustGet[T any](val T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("programming error: %v", err))
	}
	return val
}
