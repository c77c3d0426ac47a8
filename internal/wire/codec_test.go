package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FrancoYudica/DistributedFractals/types"
)

func newCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec(opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func TestRoundTripEveryTag(t *testing.T) {
	c := newCodec(t)
	pixels := bytes.Repeat([]byte{10, 20, 30}, 32*32)

	msgs := []types.Message{
		types.Request("worker-0"),
		types.Task("worker-1", 1<<40+7),
		types.Result("worker-2", 12, pixels),
		types.Result("worker-2", 13, []byte{1, 2, 3}),
		types.Terminate("worker-3"),
	}

	for _, msg := range msgs {
		t.Run(msg.Tag.String(), func(t *testing.T) {
			frame, err := c.Encode(msg)
			require.NoError(t, err)

			got, err := c.Decode(frame)
			require.NoError(t, err)
			require.Equal(t, msg.Tag, got.Tag)
			require.Equal(t, msg.WorkerID, got.WorkerID)
			require.Equal(t, msg.TaskID, got.TaskID)
			require.Equal(t, len(msg.Pixels), len(got.Pixels))
			if len(msg.Pixels) > 0 {
				require.Equal(t, msg.Pixels, got.Pixels)
			}
		})
	}
}

func TestCompression(t *testing.T) {
	pixels := bytes.Repeat([]byte{0, 0, 0}, 64*64)
	msg := types.Result("worker-0", 3, pixels)

	compressed, err := newCodec(t).Encode(msg)
	require.NoError(t, err)
	require.Equal(t, byte(flagZstd), compressed[1])
	require.Less(t, len(compressed), len(pixels))

	raw, err := newCodec(t, WithCompression(false)).Encode(msg)
	require.NoError(t, err)
	require.Equal(t, byte(0), raw[1])
	require.Len(t, raw, HeaderSize+len("worker-0")+len(pixels))

	got, err := newCodec(t, WithCompression(false)).Decode(compressed)
	require.NoError(t, err)
	require.Equal(t, pixels, got.Pixels)
}

func TestSmallPayloadStaysRaw(t *testing.T) {
	c := newCodec(t, WithMinCompressSize(1024))
	frame, err := c.Encode(types.Result("w", 0, make([]byte, 512)))
	require.NoError(t, err)
	require.Equal(t, byte(0), frame[1])
}

func TestFrameLayout(t *testing.T) {
	frame, err := newCodec(t).Encode(types.Task("ab", 0x0102030405060708))
	require.NoError(t, err)

	require.Equal(t, byte(types.TagTask), frame[0])
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, frame[2:10])
	require.Equal(t, []byte{0, 2}, frame[18:20])
	require.Equal(t, "ab", string(frame[20:]))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	c := newCodec(t, WithCompression(false))
	good, err := c.Encode(types.Result("worker-1", 5, []byte{9, 9, 9, 9, 9, 9}))
	require.NoError(t, err)

	corrupt := append([]byte(nil), good...)
	corrupt[len(corrupt)-1] ^= 0xff

	badTag := append([]byte(nil), good...)
	badTag[0] = 42

	badID := append([]byte(nil), good[:HeaderSize]...)
	badID[18], badID[19] = 0xff, 0xff

	term, err := c.Encode(types.Terminate("worker-1"))
	require.NoError(t, err)
	trailing := append(term, 1)

	badZstd := append([]byte(nil), good...)
	badZstd[1] = flagZstd

	tests := map[string][]byte{
		"empty":            nil,
		"short header":     good[:HeaderSize-1],
		"checksum":         corrupt,
		"unknown tag":      badTag,
		"truncated id":     badID,
		"trailing payload": trailing,
		"bad zstd":         badZstd,
	}

	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(frame)
			require.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestEncodeRejectsInvalidTag(t *testing.T) {
	_, err := newCodec(t).Encode(types.Message{Tag: types.Tag(8)})
	require.ErrorIs(t, err, ErrMalformedFrame)
}
