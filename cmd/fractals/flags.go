package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"

	fractals "github.com/FrancoYudica/DistributedFractals"
	"github.com/FrancoYudica/DistributedFractals/output"
)

// Run modes.
const (
	modeLocal         = "local"
	modeCoordinator   = "coordinator"
	modeWorker        = "worker"
	modeAllInOneNATS  = "all-in-one-nats"
	modeImageServer   = "image-server"
	defaultListenAddr = "0.0.0.0:5001"
)

// cliFlags holds parsed command-line values. Only flags that were set on the
// command line override the configuration file.
type cliFlags struct {
	configPath string
	mode       string
	logLevel   string

	width, height, samples, blockSize int
	zoom, cameraX, cameraY            string
	iterations                        int
	kind, colorMode                   string
	juliaCx, juliaCy                  float64

	outputDisk     string
	outputNetwork  string
	outputUUID     string
	outputDisabled bool

	workers  int
	backend  string
	bits     uint
	natsURL  string
	jobID    string
	metrics  bool
	listen   string
	saveDir  string
	timeout  string
	fs       *flag.FlagSet
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	d := fractals.DefaultConfig()
	f := &cliFlags{}

	fs := flag.NewFlagSet("fractals", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f.fs = fs

	fs.StringVar(&f.configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&f.mode, "mode", modeLocal, "Run mode: local, coordinator, worker, all-in-one-nats, image-server")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	fs.IntVar(&f.width, "w", d.Image.Width, "Image width")
	fs.IntVar(&f.height, "h", d.Image.Height, "Image height")
	fs.IntVar(&f.samples, "s", d.Image.Samples, "Samples per pixel (perfect square)")
	fs.IntVar(&f.blockSize, "b", d.BlockSize, "Block size in pixels")
	fs.StringVar(&f.zoom, "z", d.Camera.Zoom, "Camera zoom")
	fs.StringVar(&f.cameraX, "cx", d.Camera.X, "Camera center x")
	fs.StringVar(&f.cameraY, "cy", d.Camera.Y, "Camera center y")
	fs.IntVar(&f.iterations, "i", d.Fractal.MaxIterations, "Max iterations")
	fs.StringVar(&f.kind, "t", d.Fractal.Kind, "Fractal type: mandelbrot (0) or julia (1)")
	fs.StringVar(&f.colorMode, "color_mode", d.Fractal.ColorMode, "Palette name or number 0-8")
	fs.Float64Var(&f.juliaCx, "julia-cx", d.Fractal.Julia.Cx, "Julia constant real part")
	fs.Float64Var(&f.juliaCy, "julia-cy", d.Fractal.Julia.Cy, "Julia constant imaginary part")

	fs.StringVar(&f.outputDisk, "od", d.Output.Path, "Write the image to this path (png, bmp, tiff)")
	fs.StringVar(&f.outputNetwork, "on", "", "Send the image to host[:port]")
	fs.StringVar(&f.outputUUID, "uuid", "", "Job UUID sent with network output")
	fs.BoolVar(&f.outputDisabled, "output_disabled", false, "Do not output the image")

	fs.IntVar(&f.workers, "workers", d.Workers, "Number of compute workers")
	fs.StringVar(&f.backend, "precision", d.Precision.Backend, "Numeric backend: float64 or big")
	fs.UintVar(&f.bits, "bits", d.Precision.Bits, "Mantissa bits of the big backend")
	fs.StringVar(&f.natsURL, "nats", d.Transport.NATS.URL, "NATS server URL")
	fs.StringVar(&f.jobID, "job", "", "Job id shared by a NATS coordinator and its workers")
	fs.BoolVar(&f.metrics, "metrics", d.Metrics.Prometheus.Enabled, "Serve Prometheus metrics")
	fs.StringVar(&f.listen, "listen", defaultListenAddr, "Listen address of image-server mode")
	fs.StringVar(&f.saveDir, "save-dir", ".", "Directory image-server mode writes received images to")
	fs.StringVar(&f.timeout, "timeout", "", "Abort the job after this duration, e.g. 5m")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return f, nil
}

// apply writes every flag set on the command line into cfg.
func (f *cliFlags) apply(cfg *fractals.Config) error {
	var err error
	f.fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}

		switch fl.Name {
		case "w":
			cfg.Image.Width = f.width
		case "h":
			cfg.Image.Height = f.height
		case "s":
			cfg.Image.Samples = f.samples
		case "b":
			cfg.BlockSize = f.blockSize
		case "z":
			cfg.Camera.Zoom = f.zoom
		case "cx":
			cfg.Camera.X = f.cameraX
		case "cy":
			cfg.Camera.Y = f.cameraY
		case "i":
			cfg.Fractal.MaxIterations = f.iterations
		case "t":
			cfg.Fractal.Kind = f.kind
		case "color_mode":
			cfg.Fractal.ColorMode = f.colorMode
		case "julia-cx":
			cfg.Fractal.Julia.Cx = f.juliaCx
		case "julia-cy":
			cfg.Fractal.Julia.Cy = f.juliaCy
		case "od":
			cfg.Output.Mode = output.ModeDisk
			cfg.Output.Path = f.outputDisk
		case "on":
			cfg.Output.Mode = output.ModeNetwork
			err = applyNetworkAddr(cfg, f.outputNetwork)
		case "uuid":
			cfg.Output.UUID = f.outputUUID
		case "output_disabled":
			if f.outputDisabled {
				cfg.Output.Mode = output.ModeDisabled
			}
		case "workers":
			cfg.Workers = f.workers
		case "precision":
			cfg.Precision.Backend = f.backend
		case "bits":
			cfg.Precision.Bits = f.bits
		case "nats":
			cfg.Transport.NATS.URL = f.natsURL
		case "job":
			cfg.Transport.NATS.JobID = f.jobID
		case "metrics":
			cfg.Metrics.Prometheus.Enabled = f.metrics
		}
	})

	switch f.mode {
	case modeCoordinator, modeWorker, modeAllInOneNATS:
		cfg.Transport.Mode = fractals.TransportNATS
	case modeLocal:
		cfg.Transport.Mode = fractals.TransportLocal
	}

	return err
}

// applyNetworkAddr accepts "host" or "host:port".
func applyNetworkAddr(cfg *fractals.Config, addr string) error {
	if addr == "" {
		return nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) && addrErr.Err == "missing port in address" {
			cfg.Output.Address = addr
			return nil
		}

		return fmt.Errorf("invalid -on address %q: %w", addr, err)
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid -on port %q: %w", port, err)
	}
	cfg.Output.Address = host
	cfg.Output.Port = p

	return nil
}
