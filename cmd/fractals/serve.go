package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FrancoYudica/DistributedFractals/output"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// serveMetrics exposes /metrics until ctx is done.
func serveMetrics(ctx context.Context, port int, logger types.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}

// runImageServer receives images sent by network output and writes each one
// to dir as <uuid>.<ext>.
func runImageServer(ctx context.Context, addr, dir string, logger types.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.Info("image server listening", "addr", ln.Addr().String(), "dir", dir)

	err = output.Serve(ctx, ln, func(d output.Delivery) error {
		path := filepath.Join(dir, d.UUID.String()+"."+sniffExtension(d.Image))
		if err := os.WriteFile(path, d.Image, 0o644); err != nil { //nolint:gosec // received images are world readable
			return fmt.Errorf("failed to save %s: %w", path, err)
		}
		logger.Info("image received", "uuid", d.UUID.String(), "path", path, "bytes", len(d.Image))

		return nil
	}, func(err error) {
		logger.Warn("failed to receive image", "error", err)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// sniffExtension guesses the file extension from the image magic bytes.
func sniffExtension(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[1:4]) == "PNG":
		return output.FormatPNG
	case len(data) >= 2 && string(data[:2]) == "BM":
		return output.FormatBMP
	case len(data) >= 4 && (string(data[:4]) == "II*\x00" || string(data[:4]) == "MM\x00*"):
		return output.FormatTIFF
	default:
		return "bin"
	}
}
