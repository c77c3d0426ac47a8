// Package stableid hands out worker ids from a fixed pool using JetStream KV
// leases, so separately started worker processes end up with the distinct ids
// worker-0 .. worker-(N-1) their coordinator expects.
package stableid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/types"
)

var (
	// ErrNoAvailableID is returned when every id of the pool is leased.
	ErrNoAvailableID = errors.New("no available worker ID in pool")

	// ErrNotClaimed is returned when renewing or releasing before Claim.
	ErrNotClaimed = errors.New("worker ID not claimed")

	// ErrAlreadyClosed is returned by StartRenewal after Close or Release.
	ErrAlreadyClosed = errors.New("claimer already closed")
)

// Lease is the value stored under a claimed id.
type Lease struct {
	WorkerID  string    `json:"worker_id"`
	Host      string    `json:"host"`
	PID       int       `json:"pid"`
	RenewedAt time.Time `json:"renewed_at"`
}

// Config describes the id pool of one job.
type Config struct {
	// Job scopes the pool; ids of different jobs never collide.
	Job string

	// Prefix of every id, "worker" if empty.
	Prefix string

	// Size is the number of ids in the pool: Prefix-0 .. Prefix-(Size-1).
	Size int

	// TTL is the lease lifetime. The bucket TTL must not be shorter. Leases
	// are renewed every TTL/3.
	TTL time.Duration
}

// Claimer claims one id and keeps its lease alive.
type Claimer struct {
	kv     jetstream.KeyValue
	cfg    Config
	logger types.Logger

	mu       sync.Mutex
	workerID string
	renewing bool
	closed   bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewClaimer creates a claimer over kv.
//
// Example:
//
//	c := stableid.NewClaimer(kv, stableid.Config{Job: jobID, Size: 8, TTL: 10 * time.Second}, logger)
//	id, err := c.Claim(ctx)
//	if err != nil {
//	    return err
//	}
//	_ = c.StartRenewal()
//	defer c.Release(context.Background())
func NewClaimer(kv jetstream.KeyValue, cfg Config, logger types.Logger) *Claimer {
	if cfg.Prefix == "" {
		cfg.Prefix = "worker"
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Claimer{
		kv:     kv,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Claim leases the lowest free id of the pool.
//
// Returns:
//   - string: Claimed id, e.g. "worker-3"
//   - error: ErrNoAvailableID when the pool is exhausted, or the KV error
func (c *Claimer) Claim(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrAlreadyClosed
	}
	if c.workerID != "" {
		return c.workerID, nil
	}

	for n := range c.cfg.Size {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id := fmt.Sprintf("%s-%d", c.cfg.Prefix, n)
		rev, err := c.kv.Create(ctx, c.key(id), c.lease(id))
		if err == nil {
			c.workerID = id
			c.logger.Info("worker id claimed", "job", c.cfg.Job, "worker", id, "revision", rev)

			return id, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return "", fmt.Errorf("failed to claim worker id %s: %w", id, err)
		}

		c.logger.Debug("worker id taken, trying next", "worker", id)
	}

	c.logger.Warn("worker id pool exhausted", "job", c.cfg.Job, "size", c.cfg.Size)

	return "", ErrNoAvailableID
}

// StartRenewal renews the lease every TTL/3 until Release or Close.
func (c *Claimer) StartRenewal() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrAlreadyClosed
	case c.workerID == "":
		return ErrNotClaimed
	case c.renewing:
		return nil
	}

	interval := c.cfg.TTL / 3
	if interval <= 0 {
		interval = time.Second
	}

	c.renewing = true
	go c.renewalLoop(c.workerID, interval)

	return nil
}

func (c *Claimer) renewalLoop(id string, interval time.Duration) {
	defer close(c.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			_, err := c.kv.Put(ctx, c.key(id), c.lease(id))
			cancel()
			if err != nil {
				c.logger.Warn("failed to renew worker id lease", "worker", id, "error", err)
			}
		}
	}
}

// stop ends the renewal goroutine, if any, and waits for it. Callers hold mu.
func (c *Claimer) stop(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stopCh)

	if !c.renewing {
		return nil
	}

	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release stops renewal and deletes the lease so the id can be reused.
func (c *Claimer) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.workerID == "" {
		return ErrNotClaimed
	}
	if err := c.stop(ctx); err != nil {
		return err
	}

	id := c.workerID
	if err := c.kv.Delete(ctx, c.key(id)); err != nil {
		return fmt.Errorf("failed to release worker id %s: %w", id, err)
	}
	c.workerID = ""
	c.logger.Info("worker id released", "job", c.cfg.Job, "worker", id)

	return nil
}

// Close stops renewal without deleting the lease; it expires after TTL.
func (c *Claimer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.stop(context.Background())
}

// WorkerID returns the claimed id, or "" before Claim and after Release.
func (c *Claimer) WorkerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.workerID
}

func (c *Claimer) key(id string) string {
	return KeyFor(c.cfg.Job, id)
}

func (c *Claimer) lease(id string) []byte {
	host, _ := os.Hostname()
	b, _ := json.Marshal(Lease{WorkerID: id, Host: host, PID: os.Getpid(), RenewedAt: time.Now().UTC()})

	return b
}

// KeyFor returns the KV key of worker id within job.
func KeyFor(job, id string) string {
	if job == "" {
		return id
	}

	return job + "." + id
}

// Claimed lists the ids currently leased for job, read from kv.
func Claimed(ctx context.Context, kv jetstream.KeyValue, job string) ([]string, error) {
	lister, err := kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker leases: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	prefix := KeyFor(job, "")
	var ids []string
	for key := range lister.Keys() {
		if job == "" || strings.HasPrefix(key, prefix) {
			ids = append(ids, strings.TrimPrefix(key, prefix))
		}
	}

	return ids, nil
}
