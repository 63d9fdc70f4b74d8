// Package main provides the entrypoint for the AlertGrid dispatcher.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertgrid/alertgrid/internal/api"
	"github.com/alertgrid/alertgrid/internal/api/middleware"
	"github.com/alertgrid/alertgrid/internal/auth"
	"github.com/alertgrid/alertgrid/internal/broadcast"
	"github.com/alertgrid/alertgrid/internal/database"
	"github.com/alertgrid/alertgrid/internal/delivery"
	"github.com/alertgrid/alertgrid/internal/dispatch"
	"github.com/alertgrid/alertgrid/internal/ingest"
	"github.com/alertgrid/alertgrid/internal/location"
	"github.com/alertgrid/alertgrid/internal/store"
	"github.com/alertgrid/alertgrid/internal/telemetry"
	"github.com/alertgrid/alertgrid/pkg/geo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "alertgrid-dispatcher"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AlertGrid dispatcher")

	port := envOrDefault("APP_PORT", "8080")

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	repo := store.NewPostgresRepository(pool, log)

	// Location coordinator with platform providers
	coordinator := location.NewCoordinator(locationProviders(log), log)
	defer coordinator.Close()

	// Pub/Sub delivery
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	sender, err := delivery.NewPubSubSender(ctx, projectID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub sender")
	}
	defer sender.Close()

	// Dispatch settings with an invalidatable cache
	resolver := dispatch.NewCachedResolver(dispatch.StaticResolver{Settings: settingsFromEnv()}, log)

	orchestrator := dispatch.New(dispatch.Config{
		Store:     repo,
		Detector:  broadcast.NewDetector(broadcast.CrossRATMap(), log),
		Locations: coordinator,
		Sender:    sender,
		Resolver:  resolver,
		Logger:    log,
	})
	log.Info().Msg("dispatch orchestrator initialized")

	// Ingest subscriber
	subscriber, err := ingest.NewSubscriber(ctx, ingest.Config{
		ProjectID:        projectID,
		SubscriptionName: envOrDefault("PUBSUB_SUBSCRIPTION", "alertgrid-ingest"),
		Dispatcher:       orchestrator,
		Settings:         resolver,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create ingest subscriber")
	}
	defer subscriber.Close()

	ingestCtx, stopIngest := context.WithCancel(ctx)
	defer stopIngest()
	go func() {
		if err := subscriber.Start(ingestCtx); err != nil {
			log.Error().Err(err).Msg("ingest subscriber stopped")
		}
	}()

	// Operator token service
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokens := auth.NewService(auth.Config{
		SigningKey: jwtSigningKey,
		Issuer:     envOrDefault("JWT_ISSUER", "https://ops.alertgrid.io"),
		Audience:   envOrDefault("JWT_AUDIENCE", "alertgrid-dispatcher"),
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Tokens:      tokens,
		Dispatch:    orchestrator,
		Settings:    resolver,
		Ready:       pool.Ping,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down dispatcher")
	stopIngest()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("dispatcher stopped")
}

// locationProviders builds the platform location providers. Deployments
// without a live positioning feed can pin a static fix for development via
// STATIC_LOCATION ("lat,lng").
func locationProviders(log zerolog.Logger) []location.Provider {
	var providers []location.Provider

	if static := os.Getenv("STATIC_LOCATION"); static != "" {
		latStr, lngStr, ok := strings.Cut(static, ",")
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
		if !ok || latErr != nil || lngErr != nil {
			log.Warn().Str("value", static).Msg("ignoring malformed STATIC_LOCATION")
		} else {
			providers = append(providers, &location.StaticProvider{
				ProviderName: "static",
				Point:        geo.Point{Lat: lat, Lng: lng},
				Delay:        100 * time.Millisecond,
				Enabled:      true,
			})
			log.Info().Float64("lat", lat).Float64("lng", lng).Msg("static location provider enabled")
		}
	}

	return providers
}

// settingsFromEnv reads the process-wide dispatch settings. A carrier-aware
// deployment would resolve these per subscription from its configuration
// service; env vars cover the single-carrier case.
func settingsFromEnv() dispatch.Settings {
	settings := dispatch.DefaultSettings()

	if window, err := time.ParseDuration(os.Getenv("DEDUP_WINDOW")); err == nil && window > 0 {
		settings.DedupWindow = window
	}
	if wait, err := time.ParseDuration(os.Getenv("GEOFENCE_DEFAULT_MAX_WAIT")); err == nil && wait > 0 {
		settings.DefaultMaxWait = wait
	}
	settings.CompareBody = os.Getenv("DEDUP_COMPARE_BODY") == "true"
	settings.ResetOnPowerCycle = os.Getenv("DEDUP_RESET_ON_POWER_CYCLE") == "true"
	settings.EmergencyRecipients = splitRecipients(os.Getenv("EMERGENCY_RECIPIENTS"))
	settings.NormalRecipients = splitRecipients(os.Getenv("NORMAL_RECIPIENTS"))
	settings.TestRecipients = splitRecipients(os.Getenv("TEST_RECIPIENTS"))

	return settings
}

func splitRecipients(value string) []string {
	if value == "" {
		return nil
	}
	var recipients []string
	for _, r := range strings.Split(value, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return recipients
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
