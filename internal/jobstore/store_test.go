package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FrancoYudica/DistributedFractals/numeric"
	"github.com/FrancoYudica/DistributedFractals/render"
	fractaltest "github.com/FrancoYudica/DistributedFractals/testing"
)

func sampleSpec(t *testing.T) JobSpec {
	t.Helper()
	k := numeric.NewBigKernel(256)
	x, err := k.Parse("-0.743643887037158704752191506114774")
	require.NoError(t, err)

	return JobSpec{
		ID:        "job-1",
		Width:     64,
		Height:    48,
		Samples:   4,
		BlockSize: 16,
		Workers:   3,
		Fractal:   FractalSpec{Kind: "mandelbrot", MaxIterations: 500},
		ColorMode: 7,
		Backend:   numeric.BackendBig,
		Precision: 256,
		Camera: render.SerializeCamera(k, render.Camera[numeric.BigFloat]{
			X: x, Y: k.FromFloat64(0.1318), Zoom: k.FromFloat64(1e12),
		}),
		Compress:  true,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSpecRoundTrip(t *testing.T) {
	spec := sampleSpec(t)

	b, err := spec.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	require.Equal(t, spec, got)

	k := numeric.NewBigKernel(spec.Precision)
	cam, err := render.DeserializeCamera(k, got.Camera)
	require.NoError(t, err)
	want, err := k.Parse("-0.743643887037158704752191506114774")
	require.NoError(t, err)
	require.Equal(t, 0, cam.X.Cmp(want))

	_, err = Unmarshal([]byte("{"))
	require.Error(t, err)
}

func TestStorePutGetDelete(t *testing.T) {
	_, nc := fractaltest.StartEmbeddedNATS(t)
	store := New(fractaltest.CreateJetStreamKV(t, nc, "jobs"), fractaltest.NewTestLogger(t))
	ctx := t.Context()

	_, err := store.Get(ctx, "job-1")
	require.ErrorIs(t, err, ErrJobNotFound)

	spec := sampleSpec(t)
	require.NoError(t, store.Put(ctx, spec))

	got, err := store.Get(ctx, spec.ID)
	require.NoError(t, err)
	require.Equal(t, spec, got)

	require.NoError(t, store.Delete(ctx, spec.ID))
	require.NoError(t, store.Delete(ctx, "never-existed"))

	_, err = store.Get(ctx, spec.ID)
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestStoreWait(t *testing.T) {
	_, nc := fractaltest.StartEmbeddedNATS(t)
	store := New(fractaltest.CreateJetStreamKV(t, nc, "jobs"), fractaltest.NewTestLogger(t))
	spec := sampleSpec(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("published later", func(t *testing.T) {
		got := make(chan JobSpec, 1)
		errCh := make(chan error, 1)
		go func() {
			s, err := store.Wait(ctx, spec.ID)
			errCh <- err
			got <- s
		}()

		time.Sleep(100 * time.Millisecond)
		require.NoError(t, store.Put(ctx, spec))

		require.NoError(t, <-errCh)
		require.Equal(t, spec, <-got)
	})

	t.Run("already published", func(t *testing.T) {
		got, err := store.Wait(ctx, spec.ID)
		require.NoError(t, err)
		require.Equal(t, spec.ID, got.ID)
	})

	t.Run("cancelled", func(t *testing.T) {
		short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		_, err := store.Wait(short, "missing")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestStoreWaitRemoved(t *testing.T) {
	_, nc := fractaltest.StartEmbeddedNATS(t)
	store := New(fractaltest.CreateJetStreamKV(t, nc, "jobs"), fractaltest.NewTestLogger(t))
	spec := sampleSpec(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("never published", func(t *testing.T) {
		require.NoError(t, store.WaitRemoved(ctx, "ghost"))
	})

	t.Run("deleted later", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, spec))

		errCh := make(chan error, 1)
		go func() { errCh <- store.WaitRemoved(ctx, spec.ID) }()

		select {
		case err := <-errCh:
			t.Fatalf("returned before delete: %v", err)
		case <-time.After(100 * time.Millisecond):
		}

		require.NoError(t, store.Delete(ctx, spec.ID))
		require.NoError(t, <-errCh)
	})

	t.Run("already deleted", func(t *testing.T) {
		require.NoError(t, store.WaitRemoved(ctx, spec.ID))
	})
}
