package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/price-collector/internal/api"
	"github.com/nerrad567/price-collector/internal/collector"
	"github.com/nerrad567/price-collector/internal/credentials"
	"github.com/nerrad567/price-collector/internal/infrastructure/config"
	"github.com/nerrad567/price-collector/internal/infrastructure/database"
	"github.com/nerrad567/price-collector/internal/infrastructure/influxdb"
	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
	"github.com/nerrad567/price-collector/internal/infrastructure/mqtt"
	"github.com/nerrad567/price-collector/internal/ledger"
	"github.com/nerrad567/price-collector/internal/metrics"
	"github.com/nerrad567/price-collector/internal/pricing"
	"github.com/nerrad567/price-collector/internal/schedule"
	"github.com/nerrad567/price-collector/migrations"
)

// errCycleFailed is returned by the once command when the cycle did not
// reach the done state.
var errCycleFailed = errors.New("collection cycle did not complete")

// app holds the wired components of one collector process.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	influx    *influxdb.Client
	db        *database.DB
	ledger    *ledger.Ledger
	mqtt      *mqtt.Client
	metrics   *metrics.Metrics
	status    *schedule.Status
	scheduler *schedule.Scheduler

	// closers run in reverse order on shutdown.
	closers []func()
}

// runDaemon runs the scheduler loop until ctx is cancelled.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - opts: Global flags
//
// Returns:
//   - error: nil on clean shutdown, or error describing a startup failure
func runDaemon(ctx context.Context, opts *options) error {
	a, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.API.Enabled {
		if err := a.startAPI(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
	} else {
		a.log.Info("status API disabled")
	}

	a.log.Info("initialisation complete, waiting for the first wake")

	if err := a.scheduler.Run(ctx); err != nil {
		return fmt.Errorf("running scheduler: %w", err)
	}

	a.log.Info("shutdown signal received, cleaning up")
	return nil
}

// runOnce runs a single retry-bounded cycle immediately.
func runOnce(ctx context.Context, opts *options) error {
	a, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	c := a.scheduler.RunCycle(ctx)
	if c.State != schedule.StateDone {
		return fmt.Errorf("%w: %s after %d attempts: %s", errCycleFailed, c.State, c.Attempts, c.LastError)
	}
	return nil
}

// printNextWake prints the next wake instant without connecting anywhere.
func printNextWake(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	now := time.Now()
	wake, err := schedule.NextWake(now, cfg.Schedule.WakeHour)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (in %s)\n", wake.Format(time.RFC3339), wake.Sub(now).Round(time.Second))
	return nil
}

// loadConfig applies the env file and loads the validated configuration.
func loadConfig(opts *options) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setup loads configuration and connects every enabled component in
// startup order. On error everything opened so far is closed again.
func setup(ctx context.Context, opts *options) (*app, error) {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting price collector",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", "path", opts.configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)
	for _, w := range cfg.Warnings {
		log.Warn("configuration warning", "detail", w)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		status:  schedule.NewStatus(time.Now()),
	}
	a.closers = append(a.closers, func() {
		log.Info("price collector stopped")
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", closeErr)
		}
	})

	if err := a.connect(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// connect resolves the credential and opens the store, ledger and broker.
func (a *app) connect(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	token, err := credentials.Resolve(cfg.Pricing.Token, cfg.Pricing.TokenFile)
	if err != nil {
		return fmt.Errorf("resolving pricing credential: %w", err)
	}

	a.influx, err = influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	a.closers = append(a.closers, func() {
		log.Info("closing InfluxDB connection")
		if closeErr := a.influx.Close(); closeErr != nil {
			log.Error("error closing InfluxDB", "error", closeErr)
		}
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"bucket", a.influx.Bucket(),
		"measurement", cfg.InfluxDB.Measurement,
	)

	if cfg.Database.Enabled {
		if err := a.openLedger(ctx); err != nil {
			return err
		}
	} else {
		log.Info("run ledger disabled")
	}

	if cfg.MQTT.Enabled {
		a.mqtt, err = mqtt.Connect(cfg.MQTT, log.With("component", "mqtt"))
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		a.closers = append(a.closers, func() {
			log.Info("disconnecting from MQTT")
			if closeErr := a.mqtt.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT broadcast disabled")
	}

	a.scheduler = a.buildScheduler(token)
	return nil
}

func (a *app) openLedger(ctx context.Context) error {
	var err error
	a.db, err = database.Open(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, func() {
		a.log.Info("closing database")
		if closeErr := a.db.Close(); closeErr != nil {
			a.log.Error("error closing database", "error", closeErr)
		}
	})
	a.log.Info("database connected", "path", a.db.Path())

	if err := a.db.Migrate(ctx, migrations.FS, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	a.log.Info("database migrations complete")

	a.ledger = ledger.New(a.db.DB)
	return nil
}

// buildScheduler wires pricing client, writer, collector and scheduler.
func (a *app) buildScheduler(token string) *schedule.Scheduler {
	cfg := a.cfg

	source := pricing.NewClient(cfg.Pricing, token, a.log)
	writer := collector.NewWriter(a.influx, cfg.InfluxDB.Measurement, a.log, a.metrics)

	collectorOpts := []collector.Option{collector.WithMetrics(a.metrics)}
	if a.mqtt != nil {
		topic := a.mqtt.Topics().PricesTomorrow()
		collectorOpts = append(collectorOpts,
			collector.WithPublisher(collector.NewBroadcaster(a.mqtt, topic)))
	}
	c := collector.New(source, writer, a.log, collectorOpts...)

	schedOpts := []schedule.Option{
		schedule.WithStatus(a.status),
		schedule.WithMetrics(a.metrics),
	}
	if a.ledger != nil {
		schedOpts = append(schedOpts, schedule.WithRecorder(a.ledger))
	}

	return schedule.New(schedule.Config{
		WakeHour: cfg.Schedule.WakeHour,
		Retries:  cfg.Schedule.Retries,
	}, c, a.log, schedOpts...)
}

// startAPI serves the status API until the app is closed.
func (a *app) startAPI(ctx context.Context) error {
	deps := api.Deps{
		Config:  a.cfg.API,
		Summary: api.SummarizeConfig(a.cfg),
		Logger:  a.log.With("component", "api"),
		Status:  a.status,
		Checks:  map[string]api.HealthChecker{"influxdb": a.influx},
		Metrics: a.metrics.Handler(),
		Version: version,
	}
	if a.db != nil {
		deps.Checks["database"] = a.db
		deps.Runs = a.ledger
		deps.Schema = a.db
	}
	if a.mqtt != nil {
		deps.Checks["mqtt"] = a.mqtt
	}

	srv, err := api.New(deps)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	a.closers = append(a.closers, func() {
		if closeErr := srv.Close(); closeErr != nil {
			a.log.Error("error closing API server", "error", closeErr)
		}
	})
	return nil
}

// close releases every opened component in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
