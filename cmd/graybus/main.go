// Gray Bus - static publish/subscribe for embedded nodes
//
// This is the main entry point of a Gray Bus node. It declares the node's
// fixed topic topology, runs its dispatch loops and synthetic producers,
// samples bus statistics into SQLite, MQTT and InfluxDB, and serves a
// read-only inspection API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/graybus/internal/api"
	"github.com/nerrad567/graybus/internal/infrastructure/config"
	"github.com/nerrad567/graybus/internal/infrastructure/database"
	"github.com/nerrad567/graybus/internal/infrastructure/influxdb"
	"github.com/nerrad567/graybus/internal/infrastructure/logging"
	"github.com/nerrad567/graybus/internal/infrastructure/mqtt"
	"github.com/nerrad567/graybus/internal/monitor"
	"github.com/nerrad567/graybus/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the node's lifecycle, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Bus",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("node", cfg.Node.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	topo, err := buildTopology(cfg.Bus, log.With("component", "bus"))
	if err != nil {
		return fmt.Errorf("building topology: %w", err)
	}
	log.Info("bus topology built", "topics", topo.registry.Len())

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Node.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.With("component", "mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	history := monitor.NewSQLiteHistoryRepository(db.DB)
	collector := monitor.NewCollector(topo.registry, monitor.Config{
		NodeID:   cfg.Node.ID,
		Interval: cfg.MonitorInterval(),
	})
	collector.SetLogger(log.With("component", "monitor"))
	collector.AddSink(monitor.NewHistorySink(history, cfg.HistoryRetention()))
	if mqttClient != nil {
		collector.AddSink(monitor.NewMQTTSink(mqttClient, mqttClient.Topics()))
	}
	if influxClient != nil {
		collector.AddSink(monitor.NewInfluxSink(influxClient))
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.With("component", "api"),
			Registry: topo.registry,
			Samples:  collector,
			History:  history,
			DB:       db,
			MQTT:     mqttClient,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, running until shutdown signal",
		"run_id", collector.RunID().String(),
	)

	if err := runNode(ctx, cfg, topo, collector); err != nil {
		return err
	}

	log.Info("Gray Bus stopped")
	return nil
}

// runNode runs the dispatchers, producers and collector until ctx ends or
// one of them fails.
//
// Producers stop first; dispatchers keep draining until every producer has
// returned, so a blocking publish can always complete.
func runNode(ctx context.Context, cfg *config.Config, topo *topology, collector *monitor.Collector) error {
	g, gctx := errgroup.WithContext(ctx)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	for _, d := range topo.dispatchers {
		d := d
		g.Go(func() error {
			return d.Run(dispatchCtx, cfg.DispatchTimeout())
		})
	}

	g.Go(func() error {
		defer stopDispatch()
		producers, pctx := errgroup.WithContext(gctx)
		producers.Go(func() error {
			return runIMUProducer(pctx, topo.imu, cfg.PublishInterval())
		})
		producers.Go(func() error {
			return runBatteryProducer(pctx, topo.battery, cfg.PublishInterval())
		})
		return producers.Wait()
	})

	g.Go(func() error {
		return collector.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("running node: %w", err)
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
