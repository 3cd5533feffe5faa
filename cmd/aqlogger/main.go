// aq-logger - store-and-forward air-quality logger
//
// Samples an environmental sensor at a fixed rate and writes every reading
// to InfluxDB or VictoriaMetrics. While the store is unreachable, readings
// are kept in a local buffer and replayed, oldest first, once it returns.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/aq-logger/internal/api"
	"github.com/nerrad567/aq-logger/internal/buffer"
	"github.com/nerrad567/aq-logger/internal/forwarder"
	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/influxdb"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
	"github.com/nerrad567/aq-logger/internal/infrastructure/mqtt"
	"github.com/nerrad567/aq-logger/internal/infrastructure/tsdb"
	"github.com/nerrad567/aq-logger/internal/metrics"
	"github.com/nerrad567/aq-logger/internal/reading"
	"github.com/nerrad567/aq-logger/internal/scheduler"
	"github.com/nerrad567/aq-logger/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Readings are printed to console; logs go where the logging config says.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, console io.Writer) error {
	log := logging.Default()
	log.Info("starting aq-logger",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"mode", cfg.Mode,
		"frequency", cfg.Polling.Frequency,
	)

	identity, err := reading.NewRunIdentity()
	if err != nil {
		return fmt.Errorf("creating run identity: %w", err)
	}
	log = log.With("run_id", identity.RunID.String())
	log.Info("run identity", "host_name", identity.HostName)

	src, err := sensor.Open(cfg.Sensor, log)
	if err != nil {
		return fmt.Errorf("opening sensor: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Error("error closing sensor", "error", closeErr)
		}
	}()

	sinks := []forwarder.Sink{forwarder.ConsoleSink{W: console}}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, identity, log)
		if err != nil {
			// Readings still reach the console and the store.
			log.Warn("MQTT unavailable, continuing without it", "error", err)
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			sinks = append(sinks, mqttClient)
			log.Info("MQTT connected", "topic", mqttClient.Topics().Readings())
		}
	}

	m := metrics.New(version)

	opts := forwarder.Options{
		Local:    cfg.Mode == config.ModeLocal,
		Identity: identity,
		Sinks:    sinks,
		Recorder: m,
		Logger:   log,
		Timeout:  cfg.Store.TimeoutDuration(),
	}
	var buf buffer.Buffer
	if !opts.Local {
		var bufErr error
		buf, bufErr = buffer.Open(cfg.Buffer, log)
		if bufErr != nil {
			return fmt.Errorf("opening buffer: %w", bufErr)
		}
		opts.Buffer = buf
		opts.Store = newStore(cfg.Store, log)
		log.Info("remote mode",
			"backend", cfg.Store.Backend,
			"store", cfg.Store.URL(),
			"table", cfg.Store.Table,
			"buffer", cfg.Buffer.Path,
		)
	}

	fwd, err := forwarder.New(opts)
	if err != nil {
		return fmt.Errorf("creating forwarder: %w", err)
	}
	defer func() {
		if closeErr := fwd.Close(); closeErr != nil {
			log.Error("error closing forwarder", "error", closeErr)
		}
	}()

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Status:  fwd,
			Metrics: m.Handler(),
			Version: version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if buf != nil {
			deps.Buffer = buf
		}
		srv, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	// Blocks until shutdown; the reading in progress always completes.
	err = scheduler.Run(ctx, scheduler.Options{
		Source:   src,
		Logger:   fwd,
		Interval: scheduler.IntervalForFrequency(cfg.Polling.Frequency),
		Log:      log,
	})
	if err != nil {
		return err
	}

	// Deferred Close() calls run in reverse order:
	// 1. API server (if enabled)
	// 2. Forwarder (store session, buffer)
	// 3. MQTT (if enabled)
	// 4. Sensor
	log.Info("aq-logger stopped", "status", fwd.Status().State)
	return nil
}

// newStore returns the client for the configured backend.
func newStore(cfg config.StoreConfig, log *logging.Logger) forwarder.Store {
	if cfg.Backend == config.BackendVictoriaMetrics {
		return tsdb.New(cfg, log)
	}
	return influxdb.New(cfg, log)
}

// getConfigPath returns the configuration file path.
// Uses AQLOGGER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AQLOGGER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
