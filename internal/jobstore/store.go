package jobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/FrancoYudica/DistributedFractals/internal/logging"
	"github.com/FrancoYudica/DistributedFractals/types"
)

// ErrJobNotFound is returned by Get for an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// Store keeps job specs in a JetStream KV bucket keyed by job id.
type Store struct {
	kv     jetstream.KeyValue
	logger types.Logger
}

// New wraps kv. A nil logger discards messages.
func New(kv jetstream.KeyValue, logger types.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Store{kv: kv, logger: logger}
}

// Put publishes spec under spec.ID.
func (s *Store) Put(ctx context.Context, spec JobSpec) error {
	b, err := spec.Marshal()
	if err != nil {
		return err
	}

	rev, err := s.kv.Put(ctx, spec.ID, b)
	if err != nil {
		return fmt.Errorf("failed to store job spec %s: %w", spec.ID, err)
	}
	s.logger.Debug("job spec stored", "job", spec.ID, "revision", rev, "bytes", len(b))

	return nil
}

// Get reads the descriptor of job id.
func (s *Store) Get(ctx context.Context, id string) (JobSpec, error) {
	entry, err := s.kv.Get(ctx, id)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return JobSpec{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return JobSpec{}, fmt.Errorf("failed to read job spec %s: %w", id, err)
	}

	return Unmarshal(entry.Value())
}

// Wait returns the descriptor of job id, blocking until a coordinator publishes it
// or ctx is done. Workers may start before their coordinator.
func (s *Store) Wait(ctx context.Context, id string) (JobSpec, error) {
	w, err := s.kv.Watch(ctx, id)
	if err != nil {
		return JobSpec{}, fmt.Errorf("failed to watch job spec %s: %w", id, err)
	}
	defer func() { _ = w.Stop() }()

	waiting := false
	for {
		select {
		case <-ctx.Done():
			return JobSpec{}, ctx.Err()
		case entry, ok := <-w.Updates():
			if !ok {
				return JobSpec{}, fmt.Errorf("watch on job spec %s closed", id)
			}
			if entry == nil {
				if !waiting {
					s.logger.Info("waiting for coordinator to publish job", "job", id)
					waiting = true
				}

				continue
			}
			if entry.Operation() != jetstream.KeyValuePut {
				continue
			}

			return Unmarshal(entry.Value())
		}
	}
}

// WaitRemoved blocks until the descriptor of job id is deleted or purged, which a
// coordinator does once its job is over. A job that is already gone returns
// immediately.
func (s *Store) WaitRemoved(ctx context.Context, id string) error {
	w, err := s.kv.Watch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to watch job spec %s: %w", id, err)
	}
	defer func() { _ = w.Stop() }()

	present := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-w.Updates():
			if !ok {
				return fmt.Errorf("watch on job spec %s closed", id)
			}
			if entry == nil {
				if !present {
					return nil
				}

				continue
			}

			switch entry.Operation() {
			case jetstream.KeyValuePut:
				present = true
			case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
				s.logger.Debug("job spec removed", "job", id, "revision", entry.Revision())
				return nil
			}
		}
	}
}

// Delete removes the descriptor of job id. Deleting an unknown job is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, id); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete job spec %s: %w", id, err)
	}

	return nil
}
