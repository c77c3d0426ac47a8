package kvutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	fractaltest "github.com/FrancoYudica/DistributedFractals/testing"
)

func TestEnsureBucketConcurrent(t *testing.T) {
	_, nc := fractaltest.StartEmbeddedNATS(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	const callers = 5
	var wg sync.WaitGroup
	kvs := make([]jetstream.KeyValue, callers)
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kvs[i], errs[i] = EnsureBucket(ctx, js, WorkersConfig(5*time.Second),
				WithLogger(fractaltest.NewTestLogger(t)))
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.NotNil(t, kvs[i])
		require.Equal(t, WorkersBucket, kvs[i].Bucket())
	}

	_, err = kvs[0].Put(ctx, "worker-0", []byte("a"))
	require.NoError(t, err)

	entry, err := kvs[callers-1].Get(ctx, "worker-0")
	require.NoError(t, err)
	require.Equal(t, []byte("a"), entry.Value())
}

func TestEnsureBucketOpensExisting(t *testing.T) {
	_, nc := fractaltest.StartEmbeddedNATS(t)
	ctx := t.Context()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	first, err := EnsureBucket(ctx, js, JobsConfig(time.Minute))
	require.NoError(t, err)
	_, err = first.Put(ctx, "job", []byte("{}"))
	require.NoError(t, err)

	second, err := EnsureBucket(ctx, js, JobsConfig(time.Minute))
	require.NoError(t, err)

	entry, err := second.Get(ctx, "job")
	require.NoError(t, err)
	require.Equal(t, []byte("{}"), entry.Value())
}

func TestEnsureBucketInvalidConfig(t *testing.T) {
	_, nc := fractaltest.StartEmbeddedNATS(t)

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = EnsureBucket(t.Context(), js, jetstream.KeyValueConfig{Bucket: "bad bucket name"},
		WithMaxRetries(2), WithBackoff(time.Millisecond))
	require.Error(t, err)
}

func TestConfigs(t *testing.T) {
	jobs := JobsConfig(time.Hour)
	require.Equal(t, JobsBucket, jobs.Bucket)
	require.Equal(t, time.Hour, jobs.TTL)

	workers := WorkersConfig(3 * time.Second)
	require.Equal(t, WorkersBucket, workers.Bucket)
	require.Equal(t, jetstream.MemoryStorage, workers.Storage)
}
