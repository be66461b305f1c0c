package main

import (
	"context"
	"os"
	"time"

	"github.com/solstice-fi/emissary/internal/config"
	"github.com/solstice-fi/emissary/internal/epoch"
	"github.com/solstice-fi/emissary/internal/farm"
	"github.com/solstice-fi/emissary/internal/gov"
	"github.com/solstice-fi/emissary/internal/ledger"
	"github.com/solstice-fi/emissary/internal/logger"
	"github.com/solstice-fi/emissary/internal/metrics"
	"github.com/solstice-fi/emissary/internal/state"
	"github.com/solstice-fi/emissary/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the emissary emission engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Emissary Emission Engine Starting...")

	// Initialize the audit store when configured. Everything it holds is
	// observational; the engine runs fine without it.
	if config.AuditStoreEnabled {
		dbCfg := state.DBConfig{
			Host: config.DBHost, Port: config.DBPort,
			User: config.DBUser, Password: config.DBPassword,
			DBName: config.DBName, SSLMode: config.DBSSLMode,
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize audit store database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure audit store schema")
		}
	} else {
		log.Info().Msg("Audit store disabled; events and snapshots stay in memory only")
	}

	// --- 2. Collaborator Initialization ---
	bank := ledger.NewBank()
	oracle := gov.NewStaticOracle()
	meters := metrics.New()
	recent := farm.NewCollector(256)

	sinks := []farm.EventSink{farm.LogSink{}, meters, recent}
	if config.AuditStoreEnabled {
		sinks = append(sinks, state.Recorder{})
	}

	// --- 3. Create Engine Instance with Dependency Injection ---
	log.Info().Msg("Creating farm controller with dependency injection...")

	controller, err := farm.NewController(farm.Config{
		Ledger: bank,
		Power:  oracle,
		Params: config.DefaultFarmParameters,
		Sinks:  sinks,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create farm controller")
	}

	log.Info().Msg("Farm controller created successfully")

	// --- 4. Start Web Server ---
	webServer, err := web.NewWebServer(web.Config{
		Port:              config.WebPort,
		Controller:        controller,
		AdminToken:        config.AdminAPIToken,
		Meters:            meters,
		Recent:            recent,
		Bank:              bank,
		Oracle:            oracle,
		AuditStoreEnabled: config.AuditStoreEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting emissary API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Epoch Loop ---
	runnerCfg := epoch.Config{
		Controller: controller,
		Meters:     meters,
	}
	if config.AuditStoreEnabled {
		runnerCfg.Store = state.EpochStore{}
	}

	runner, err := epoch.NewRunner(runnerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create epoch runner")
	}

	interval := time.Duration(config.EpochIntervalSeconds) * time.Second
	log.Info().Str("interval", interval.String()).Msg("Starting epoch loop")

	// Create context for graceful shutdown
	ctx := context.Background()

	// Start the epoch loop (this will run indefinitely)
	runner.RunLoop(ctx, interval)
}
