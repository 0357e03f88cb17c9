package main

import (
	"context"
	"flag"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/RozoAI/rozo-intents/clients/evm"
	"github.com/RozoAI/rozo-intents/config"
	"github.com/RozoAI/rozo-intents/db"
	"github.com/RozoAI/rozo-intents/handlers"
	"github.com/RozoAI/rozo-intents/logging"
	"github.com/RozoAI/rozo-intents/services"
)

// defaultMessengerID is the adapter the HTTP gateway registers under when no
// explicit registration has happened yet.
const defaultMessengerID = 1

func main() {
	flags := parseFlags()
	log := logging.New(os.Stdout, flags.LogLevel, flags.LogJSON)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var database db.Database
	if cfg.DatabaseURL != "" {
		log.Info().Msg("Initializing database connection")
		database, err = db.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")
		database = db.NewMemoryDB()
	}

	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// Initialize the asset transfer backend
	var transfer services.AssetTransferor
	if cfg.CustodyKey != "" {
		client, err := evm.Dial(ctx, cfg.RPCURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to chain")
		}

		transfer, err = evm.NewTransferor(client, new(big.Int).SetUint64(cfg.ChainID), cfg.CustodyKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create transferor")
		}
	} else {
		log.Warn().Msg("CUSTODY_KEY not set, using in-process ledger")
		transfer = services.NewLedgerTransferor()
	}

	// Messenger transports
	messengers := services.NewMessengerRegistry()
	if cfg.MessengerURL != "" {
		messengers.Register(defaultMessengerID, services.NewHTTPMessenger(cfg.MessengerURL))
		log.Info().Uint32(logging.FieldMessenger, defaultMessengerID).Msg("Registered HTTP messenger gateway")
	}

	metrics := services.NewMetrics()
	emitter := services.NewLogEmitter(log)

	intentService := services.NewIntentService(database, transfer, emitter, metrics, cfg.ChainID, log)
	fillService := services.NewFillService(database, transfer, messengers, emitter, metrics, cfg.ChainID, log)
	adminService := services.NewAdminService(database, transfer, messengers, emitter, log)

	server := handlers.NewServer(intentService, fillService, adminService, log)

	apiServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", apiServer.Addr).Msg("Starting API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", metricsServer.Addr).Msg("Starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received, stopping servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down API server")
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down metrics server")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}

	log.Info().Msg("All services shut down successfully")
}

type flagSet struct {
	LogJSON  bool
	LogLevel zerolog.Level
}

func parseFlags() flagSet {
	var (
		logJSON  bool
		logLevel string
	)

	flag.BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	flag.StringVar(&logLevel, "log-level", "info", "Set log level (debug, info, warn, error)")

	flag.Parse()

	var logLevelParsed zerolog.Level
	switch logLevel {
	case "debug":
		logLevelParsed = zerolog.DebugLevel
	case "warn":
		logLevelParsed = zerolog.WarnLevel
	case "error":
		logLevelParsed = zerolog.ErrorLevel
	default:
		logLevelParsed = zerolog.InfoLevel
	}

	return flagSet{
		LogJSON:  logJSON,
		LogLevel: logLevelParsed,
	}
}
