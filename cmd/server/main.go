package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/database"
	"github.com/iliyamo/apparel-storefront/internal/queue"
	"github.com/iliyamo/apparel-storefront/internal/router"
	"github.com/iliyamo/apparel-storefront/internal/service"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Apparel storefront API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, consumeCmd)
}

// storefront serve: start the HTTP server (also the default command).
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

// storefront migrate: create or upgrade the schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogger(cfg)
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(database.MySQL(db)); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
		return nil
	},
}

// storefront seed: admin account plus a small demo catalog.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and demo catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogger(cfg)
		if cfg.AdminPassword == "" {
			return errors.New("ADMIN_PASSWORD is required to seed")
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		return seed(ctx, cfg, db)
	},
}

// storefront consume: append order events from the broker to the log file.
var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume order events and append them to the order log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogger(cfg)
		ev := config.LoadEventsConfig()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := queue.NewLogWriter(ev.LogFile)
		log.Info().Str("driver", ev.Driver).Str("file", ev.LogFile).Msg("consumer starting")
		var err error
		switch ev.Driver {
		case "rabbitmq":
			err = queue.ConsumeRabbit(ctx, ev.RabbitURL, ev.Queue, w)
		case "kafka":
			err = queue.ConsumeKafka(ctx, ev.KafkaBrokers, ev.Topic, ev.GroupID, w)
		default:
			return fmt.Errorf("EVENTS_DRIVER %q has nothing to consume", ev.Driver)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := setupLogger(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	events := service.NewPublisher(config.LoadEventsConfig())
	defer events.Close()

	e := router.New(router.Deps{
		Cfg:       cfg,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		DB:        db,
		Redis:     rdb,
		Events:    events,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return e.Shutdown(shutdownCtx)
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// setupLogger configures the global zerolog logger: JSON in production,
// console output otherwise.
func setupLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.IsProd() {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	logger = logger.With().Timestamp().Str("service", "storefront").Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}
