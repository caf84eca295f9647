// Command ecschedulerd is the daemon entrypoint: it resolves a store
// from the environment, loads the registry, wires the ops bus between
// the API and the cron engine, and starts the HTTP and metrics servers
// (§6), in the order original webapi/app.py establishes them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"oss.nandlabs.io/ecscheduler/config"
	"oss.nandlabs.io/ecscheduler/cronengine"
	"oss.nandlabs.io/ecscheduler/executor"
	"oss.nandlabs.io/ecscheduler/jobstore"
	"oss.nandlabs.io/ecscheduler/l3"
	"oss.nandlabs.io/ecscheduler/metrics"
	"oss.nandlabs.io/ecscheduler/opsbus"
	"oss.nandlabs.io/ecscheduler/queuedepth/sqsqueue"
	"oss.nandlabs.io/ecscheduler/registry"
	"oss.nandlabs.io/ecscheduler/rest"
	"oss.nandlabs.io/ecscheduler/taskrunner/ecsrunner"
	"oss.nandlabs.io/ecscheduler/trigger"
	"oss.nandlabs.io/ecscheduler/webapi"
)

var logger = l3.Get()

// configureLogging wires ECSS_LOG_LEVEL and ECSS_LOG_FOLDER (§6) into
// l3. With no folder set, l3's own default console writer is left in
// place.
func configureLogging() {
	level := config.GetEnvAsString("ECSS_LOG_LEVEL", "INFO")
	folder := config.GetEnvAsString("ECSS_LOG_FOLDER", "")

	cfg := &l3.LogConfig{DefaultLvl: level}
	if folder == "" {
		cfg.Writers = []*l3.WriterConfig{{Console: &l3.ConsoleConfig{}}}
	} else {
		path := folder + "/ecscheduler.log"
		cfg.Writers = []*l3.WriterConfig{{File: &l3.FileConfig{
			DefaultPath: path,
			RollType:    "SIZE",
			MaxSize:     5 * 1024 * 1024,
		}}}
	}
	l3.Configure(cfg)
}

func main() {
	if err := run(); err != nil {
		logger.ErrorF("ecschedulerd: fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; a missing file is not an error, matching the
	// original env.py's best-effort dotenv load. ECSS_DOTENV_FILE names the
	// file to load instead of .env.
	if dotenvFile := os.Getenv("ECSS_DOTENV_FILE"); dotenvFile != "" {
		_ = godotenv.Load(dotenvFile)
	} else {
		_ = godotenv.Load()
	}

	configureLogging()

	cluster := config.GetEnvAsString("ECSS_ECS_CLUSTER", "")
	if cluster == "" {
		return fmt.Errorf("ECSS_ECS_CLUSTER is required")
	}
	identity := config.GetEnvAsString("ECSS_NAME", "ecscheduler")

	store, err := jobstore.Resolve()
	if err != nil {
		return fmt.Errorf("resolving store: %w", err)
	}

	reg, err := registry.Load(context.Background(), store)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	runner, err := ecsrunner.New()
	if err != nil {
		return fmt.Errorf("creating task runner: %w", err)
	}

	if sqsClient, sqsErr := sqsqueue.New(); sqsErr != nil {
		logger.WarnF("ecschedulerd: sqs trigger unavailable: %v", sqsErr)
	} else {
		trigger.Register(trigger.SQS, trigger.NewSQSStrategy(sqsClient))
	}

	exec := executor.New(runner, cluster, identity)

	bus := opsbus.New()
	handler := cronengine.NewAnnotatingHandler(reg)
	engine := cronengine.New(reg, exec, handler)
	bus.Register(engine.Notify)

	if err := engine.Start(); err != nil {
		return fmt.Errorf("starting cron engine: %w", err)
	}
	defer func() { _ = engine.Stop() }()

	api := webapi.New(reg, bus)

	opts := rest.DefaultSrvOptions()
	opts.Id = "ecschedulerd"
	opts.ListenHost = config.GetEnvAsString("ECSS_LISTEN_HOST", "0.0.0.0")
	port, portErr := config.GetEnvAsInt("ECSS_LISTEN_PORT", 8080)
	if portErr != nil {
		port = 8080
	}
	opts.ListenPort = int16(port)

	server, err := rest.NewServer(opts)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}
	if err := server.AddGlobalFilter(metrics.HTTPFilter); err != nil {
		return fmt.Errorf("installing metrics filter: %w", err)
	}
	if err := api.Register(server); err != nil {
		return fmt.Errorf("registering api routes: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting http server: %w", err)
	}
	defer func() { _ = server.Stop() }()

	metricsPort := config.GetEnvAsString("ECSS_METRICS_PORT", "9090")
	metricsServer := metrics.New(":" + metricsPort)
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("starting metrics server: %w", err)
	}
	defer func() { _ = metricsServer.Stop() }()

	logger.InfoF("ecschedulerd: listening on %s:%d, metrics on :%s", opts.ListenHost, opts.ListenPort, metricsPort)
	select {}
}
