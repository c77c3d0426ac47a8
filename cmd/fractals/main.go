// Command fractals renders escape-time fractals, either locally with goroutine
// workers or distributed over NATS.
//
// Usage:
//
//	fractals -w 1920 -h 1080 -s 4 -z 2000 -cx -0.7436 -cy 0.1318 -od deep.png
//	fractals -mode coordinator -job render-1 -workers 8 -config job.yaml
//	fractals -mode worker -job render-1 -nats nats://10.0.0.5:4222
//	fractals -mode image-server -listen :5001 -save-dir ./received
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	fractals "github.com/FrancoYudica/DistributedFractals"
	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/internal/metrics"
	"github.com/FrancoYudica/DistributedFractals/internal/natsutil"
	"github.com/FrancoYudica/DistributedFractals/types"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fractals: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	logger := newLogger(f.logLevel)

	cfg := fractals.DefaultConfig()
	if f.configPath != "" {
		if cfg, err = fractals.LoadConfig(f.configPath); err != nil {
			return err
		}
	}
	if err := f.apply(&cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f.timeout != "" {
		d, err := time.ParseDuration(f.timeout)
		if err != nil {
			return fmt.Errorf("invalid -timeout: %w", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if f.mode == modeImageServer {
		return runImageServer(ctx, f.listen, f.saveDir, logger)
	}

	var collector types.MetricsCollector = metrics.NewNop()
	if cfg.Metrics.Prometheus.Enabled {
		collector = metrics.NewPrometheus(prometheus.DefaultRegisterer, "fractals")
		go serveMetrics(ctx, cfg.Metrics.Prometheus.Port, logger)
	}

	job, err := fractals.NewJob(cfg, fractals.WithLogger(logger), fractals.WithMetrics(collector))
	if err != nil {
		return err
	}

	switch f.mode {
	case modeLocal:
		return renderAndDeliver(ctx, job, nil)
	case modeCoordinator:
		nc, err := connect(cfg.Transport.NATS.URL, "fractals-coordinator")
		if err != nil {
			return err
		}
		defer nc.Close()

		return renderAndDeliver(ctx, job, nc)
	case modeWorker:
		nc, err := connect(cfg.Transport.NATS.URL, "fractals-worker")
		if err != nil {
			return err
		}
		defer nc.Close()

		blocks, err := job.RunWorker(ctx, nc)
		logger.Info("worker finished", "blocks", blocks)

		return err
	case modeAllInOneNATS:
		return runAllInOne(ctx, cfg, logger, collector)
	default:
		return fmt.Errorf("%w: unknown mode %q", fractals.ErrInvalidConfig, f.mode)
	}
}

func renderAndDeliver(ctx context.Context, job *fractals.Job, nc *nats.Conn) error {
	img, err := job.Run(ctx, nc)
	if err != nil {
		return err
	}

	return job.Deliver(ctx, img)
}

// runAllInOne starts an embedded NATS server and runs the coordinator and
// every worker against it from one process, each on its own connection.
func runAllInOne(ctx context.Context, cfg fractals.Config, logger types.Logger, collector types.MetricsCollector) error {
	storeDir, err := os.MkdirTemp("", "fractals-nats-")
	if err != nil {
		return fmt.Errorf("failed to create JetStream directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(storeDir) }()

	ns, err := natsutil.StartServer(natsutil.ServerConfig{Port: -1, StoreDir: storeDir, Quiet: true})
	if err != nil {
		return err
	}
	defer func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}()
	logger.Info("embedded NATS server started", "url", ns.ClientURL())

	cfg.Transport.NATS.URL = ns.ClientURL()
	if cfg.Transport.NATS.JobID == "" {
		cfg.Transport.NATS.JobID = fmt.Sprintf("all-in-one-%d", os.Getpid())
	}

	opts := []fractals.Option{fractals.WithLogger(logger), fractals.WithMetrics(collector)}
	job, err := fractals.NewJob(cfg, opts...)
	if err != nil {
		return err
	}

	// NewJob may have normalized the worker count the coordinator waits for.
	workers := job.Config().Workers
	errCh := make(chan error, workers)
	for i := range workers {
		nc, err := connect(ns.ClientURL(), fmt.Sprintf("fractals-worker-%d", i))
		if err != nil {
			return err
		}
		defer nc.Close()

		go func() {
			_, err := job.RunWorker(ctx, nc)
			errCh <- err
		}()
	}

	nc, err := connect(ns.ClientURL(), "fractals-coordinator")
	if err != nil {
		return err
	}
	defer nc.Close()

	if err := renderAndDeliver(ctx, job, nc); err != nil {
		return err
	}

	var errs []error
	for range workers {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return nc, nil
}

func newLogger(level string) types.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return logging.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
