// Package kvutil creates and opens the JetStream KV buckets a render job
// shares between processes.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// Bucket names.
const (
	// JobsBucket holds one job descriptor per job id.
	JobsBucket = "fractals-jobs"

	// WorkersBucket holds the worker id leases.
	WorkersBucket = "fractals-workers"
)

// JobsConfig returns the configuration of JobsBucket. Entries expire after ttl
// so abandoned jobs do not accumulate.
func JobsConfig(ttl time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      JobsBucket,
		Description: "fractal render job descriptors",
		History:     1,
		TTL:         ttl,
		Storage:     jetstream.MemoryStorage,
	}
}

// WorkersConfig returns the configuration of WorkersBucket. A lease that is not
// renewed within ttl frees its id.
func WorkersConfig(ttl time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      WorkersBucket,
		Description: "fractal worker id leases",
		History:     1,
		TTL:         ttl,
		Storage:     jetstream.MemoryStorage,
	}
}

type ensureOptions struct {
	maxRetries int
	backoff    time.Duration
	logger     types.Logger
}

// Option configures EnsureBucket.
type Option func(*ensureOptions)

// WithMaxRetries sets the number of attempts (3 by default).
func WithMaxRetries(n int) Option {
	return func(o *ensureOptions) {
		o.maxRetries = n
	}
}

// WithBackoff sets the delay before the second attempt; later delays double.
func WithBackoff(d time.Duration) Option {
	return func(o *ensureOptions) {
		o.backoff = d
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(logger types.Logger) Option {
	return func(o *ensureOptions) {
		o.logger = logger
	}
}

// EnsureBucket creates the bucket described by cfg, or opens it when another
// process created it first.
//
// Coordinators and workers start in any order and race to create the same
// buckets, so ErrBucketExists is expected and transient failures are retried
// with exponential backoff.
//
// Example:
//
//	kv, err := kvutil.EnsureBucket(ctx, js, kvutil.WorkersConfig(10*time.Second))
func EnsureBucket(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig, opts ...Option) (jetstream.KeyValue, error) {
	o := ensureOptions{maxRetries: 3, backoff: 10 * time.Millisecond, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRetries <= 0 {
		o.maxRetries = 3
	}

	var lastErr error
	delay := o.backoff

	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		kv, err := js.CreateKeyValue(ctx, cfg)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, cfg.Bucket)
			if err == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", err)
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled while ensuring KV bucket %s: %w", cfg.Bucket, ctx.Err())
		}
		if attempt == o.maxRetries {
			break
		}

		o.logger.Debug("retrying KV bucket creation",
			"bucket", cfg.Bucket, "attempt", attempt, "backoff", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("failed to create or open KV bucket %s after %d attempts: %w",
		cfg.Bucket, o.maxRetries, lastErr)
}
