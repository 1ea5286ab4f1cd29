package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/serbia-gov/clinical-dx/internal/diagnosis"
	"github.com/serbia-gov/clinical-dx/internal/inference"
	"github.com/serbia-gov/clinical-dx/internal/shared/auth"
	"github.com/serbia-gov/clinical-dx/internal/shared/config"
	"github.com/serbia-gov/clinical-dx/internal/shared/logging"
	"github.com/serbia-gov/clinical-dx/internal/shared/metrics"
	secmiddleware "github.com/serbia-gov/clinical-dx/internal/shared/middleware"
)

const (
	serviceName    = "Clinical Note Diagnosis Extraction Service"
	serviceVersion = "0.1.0"
	maxBodyBytes   = 1 << 20
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.Env, cfg.Server.LogLevel)

	extractor, err := newExtractor(cfg.Extract)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure extractor")
	}

	// One client for the process lifetime, shared by every request
	modelClient := inference.NewClient(inference.ClientConfig{
		BaseURL: cfg.Model.URL,
		Model:   cfg.Model.Name,
		APIKey:  cfg.Model.APIKey,
		Timeout: cfg.Model.Timeout,
	})

	service := inference.NewService(modelClient, extractor, cfg.Model.MaxLength)
	handler := inference.NewHandler(service, modelClient, logger, inference.Info{
		Name:    serviceName,
		Version: serviceVersion,
		Model:   cfg.Model.Name,
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     newRouter(cfg, handler, logger),
		ReadTimeout: 15 * time.Second,
		// Generations can take long; see SERVER_WRITE_TIMEOUT
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info().Msg("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		close(done)
	}()

	logger.Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("model_url", cfg.Model.URL).
		Str("model", cfg.Model.Name).
		Strs("stop_prefixes", extractor.StopPrefixes()).
		Bool("auth", cfg.Auth.Enabled).
		Float64("rate_limit_rps", cfg.RateLimit.RPS).
		Msg("starting server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}

	<-done
	logger.Info().Msg("server stopped")
}

func newRouter(cfg *config.Config, handler *inference.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(logger))
	r.Use(secmiddleware.Recoverer(logger))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))
	r.Use(secmiddleware.BodyLimit(maxBodyBytes))

	r.Handle("/metrics", metrics.Handler())

	generateMiddleware := []func(http.Handler) http.Handler{
		secmiddleware.RateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
	if cfg.Auth.Enabled {
		generateMiddleware = append(generateMiddleware, auth.Middleware(cfg.Auth))
	}
	r.Mount("/", handler.Routes(generateMiddleware...))

	return r
}

// newExtractor applies the configured prefix sets; a prefix file takes
// precedence over the environment lists.
func newExtractor(cfg config.ExtractConfig) (*diagnosis.Extractor, error) {
	if cfg.PrefixesFile != "" {
		return diagnosis.NewExtractorFromFile(cfg.PrefixesFile, cfg.StopPrefixes, cfg.NegationPrefixes)
	}
	return diagnosis.NewExtractor(cfg.StopPrefixes, cfg.NegationPrefixes), nil
}
