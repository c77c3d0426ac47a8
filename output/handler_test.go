package output

import (
	"bytes"
	"context"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrancoYudica/DistributedFractals/internal/metrics"
	fractaltest "github.com/FrancoYudica/DistributedFractals/testing"
)

type outputRecord struct {
	mode    string
	bytes   int
	success bool
}

type recordingMetrics struct {
	*metrics.NopMetrics
	records []outputRecord
}

func (r *recordingMetrics) RecordOutput(mode string, bytes int, success bool) {
	r.records = append(r.records, outputRecord{mode, bytes, success})
}

func TestNew_Modes(t *testing.T) {
	h, err := New(Config{Mode: ModeDisabled})
	require.NoError(t, err)
	assert.Equal(t, ModeDisabled, h.Mode())

	h, err = New(Config{Mode: ModeDisk, Path: "x.bmp"})
	require.NoError(t, err)
	assert.Equal(t, ModeDisk, h.Mode())

	h, err = New(Config{Mode: ModeNetwork, Address: "127.0.0.1", Port: 5001})
	require.NoError(t, err)
	assert.Equal(t, ModeNetwork, h.Mode())

	_, err = New(Config{Mode: "carrier-pigeon"})
	require.ErrorIs(t, err, ErrUnknownMode)

	h, err = New(Config{Mode: ModeDisk, Path: "x.gif"})
	require.NoError(t, err)
	assert.Equal(t, ModeDisk, h.Mode())

	_, err = New(Config{Mode: ModeNetwork, UUID: "not-a-uuid"})
	require.Error(t, err)
}

func TestDisk_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fractal.png")
	m := &recordingMetrics{NopMetrics: metrics.NewNop()}

	h, err := New(Config{Mode: ModeDisk, Path: path},
		WithLogger(fractaltest.NewTestLogger(t)), WithMetrics(m))
	require.NoError(t, err)

	n, err := h.Save(context.Background(), testPixels(), 2, 2)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, n)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assertDecoded(t, img)

	assert.Equal(t, []outputRecord{{ModeDisk, n, true}}, m.records)
}

func TestDisk_SaveFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "fractal.png")
	m := &recordingMetrics{NopMetrics: metrics.NewNop()}

	h, err := New(Config{Mode: ModeDisk, Path: path}, WithMetrics(m))
	require.NoError(t, err)

	_, err = h.Save(context.Background(), testPixels(), 2, 2)
	require.Error(t, err)
	assert.Equal(t, []outputRecord{{ModeDisk, 0, false}}, m.records)
}

func TestDisabled_Save(t *testing.T) {
	n, err := Disabled{}.Save(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNetwork_SaveAndServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deliveries := make(chan Delivery, 1)
	served := make(chan error, 1)
	go func() {
		served <- Serve(ctx, ln, func(d Delivery) error {
			deliveries <- d
			return nil
		}, nil)
	}()

	id := uuid.New()
	h, err := New(Config{Mode: ModeNetwork, Address: "127.0.0.1", Port: port, UUID: id.String()})
	require.NoError(t, err)

	n, err := h.Save(ctx, testPixels(), 2, 2)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		assert.Equal(t, id, d.UUID)
		assert.Len(t, d.Image, n)
		img, err := png.Decode(bytes.NewReader(d.Image))
		require.NoError(t, err)
		assertDecoded(t, img)
	case <-ctx.Done():
		t.Fatal("no delivery received")
	}

	cancel()
	require.ErrorIs(t, <-served, context.Canceled)
}

func TestNetwork_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	h, err := NewNetwork(Config{Address: "127.0.0.1", Port: port, DialTimeout: time.Second})
	require.NoError(t, err)

	_, err = h.Save(context.Background(), testPixels(), 2, 2)
	require.Error(t, err)
}

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	require.NoError(t, WriteFrame(&buf, nil))

	assert.Equal(t, []byte{0, 0, 0, 5}, buf.Bytes()[:4])

	p, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), p)

	p, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = ReadFrame(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReceive_InvalidUUID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("nope")))
	require.NoError(t, WriteFrame(&buf, []byte("img")))

	_, err := Receive(&buf)
	require.Error(t, err)
}
