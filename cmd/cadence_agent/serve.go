package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/outreach-cadence/internal/events"
	"github.com/jonathan/outreach-cadence/internal/logging"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/jonathan/outreach-cadence/internal/server"
	"github.com/jonathan/outreach-cadence/internal/server/ratelimit"
	"github.com/jonathan/outreach-cadence/internal/sweep"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	servePort      int
	serveMigrate   bool
	serveWhitelist string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cadence service",
	Long: `Start the admin HTTP API, the scheduled due-step sweep and, when NATS_URL is set,
the touch completion consumer. All three stop together on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides HTTP_PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply pending migrations before serving")
	serveCmd.Flags().StringVar(&serveWhitelist, "rate-limit-whitelist", "", "Comma-separated client IPs exempt from rate limiting")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.HTTPPort = servePort
	}
	if err := cfg.JWT.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Password.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logging.Sync(logger) //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if serveMigrate {
		applied, err := database.Migrate(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", zap.Strings("files", applied))
	}

	var publisher outreach.Publisher = outreach.NopPublisher{}
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = events.Connect(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer nc.Drain() //nolint:errcheck
		publisher = events.NewNATSPublisher(nc)
	} else {
		logger.Info("NATS_URL not set; events are not published and completions are not consumed")
	}

	engine := outreach.NewEngine(outreach.NewPostgresStore(database), publisher, cfg.Cadence.Engine(), logger)

	runner, err := sweep.NewRunner(cfg.SweepSchedule, engine, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:      cfg.Addr(),
		RateLimit: ratelimit.NewConfig(cfg.RateLimitPerMinute, serveWhitelist, ""),
		JWT:       &cfg.JWT,
		Password:  &cfg.Password,
	}, engine, database, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return runner.Run(gctx) })
	if nc != nil {
		consumer := events.NewConsumer(nc, engine, logger)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("cadence service stopped")
	return nil
}
