// Package fractals renders Mandelbrot and Julia escape-time images by splitting
// the image into blocks and distributing the blocks across compute workers.
//
// A coordinator owns the image. Workers pull one block task at a time, render
// it and send the pixels back; the coordinator copies each block into place and
// terminates every worker once the last block arrives. Workers run either as
// goroutines of one process or as separate processes connected through NATS.
//
// # Quick Start
//
// Render locally with default settings:
//
//	import "github.com/FrancoYudica/DistributedFractals"
//
//	cfg := fractals.DefaultConfig()
//	cfg.Image.Width, cfg.Image.Height = 1920, 1080
//	cfg.Output.Path = "mandelbrot.png"
//
//	job, err := fractals.NewJob(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	img, err := job.RunLocal(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := job.Deliver(ctx, img); err != nil {
//	    log.Fatal(err)
//	}
//
// # Key Features
//
//   - Pull-based scheduling: a worker only gets a new block after returning the previous one
//   - Two numeric backends: float64, and math/big floats (256 bits by default) for deep zooms
//   - Supersampling with a deterministic n×n grid per pixel
//   - Nine palettes, PNG/BMP/TIFF output, disk or TCP delivery
//
// # Distributed Mode
//
// With Transport.Mode "nats" the coordinator publishes a job descriptor to a
// JetStream KV bucket. Worker processes started with the same job id wait for
// it, claim a stable worker id, rebuild the renderer from the serialized camera
// and start pulling tasks:
//
//	// coordinator process
//	img, err := job.RunCoordinator(ctx, nc)
//
//	// each worker process
//	blocks, err := job.RunWorker(ctx, nc)
//
// A worker that never returns a result stalls the job; cancel the context to
// get the partially assembled image back.
//
// See cmd/fractals for the command-line front end.
package fractals
