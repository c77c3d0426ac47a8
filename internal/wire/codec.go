// Package wire encodes protocol messages into self-checking binary frames.
//
// Frame layout, all integers big-endian:
//
//	tag        u8
//	flags      u8   bit 0: payload is zstd-compressed
//	taskID     u64
//	checksum   u64  xxh3 of the decoded payload
//	workerLen  u16
//	workerID   workerLen bytes
//	payload    remaining bytes
//
// Only RESULT frames carry a payload. REQUEST and TERMINATE frames ignore the
// task id field.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"github.com/FrancoYudica/DistributedFractals/types"
)

// HeaderSize is the fixed part of a frame, before the worker id.
const HeaderSize = 1 + 1 + 8 + 8 + 2

// MaxPayload bounds the decoded size of a RESULT payload.
const MaxPayload = 256 << 20

// DefaultMinCompressSize is the smallest payload the codec tries to compress.
const DefaultMinCompressSize = 256

const flagZstd = 1 << 0

// ErrMalformedFrame is returned for frames that are truncated, carry an unknown
// tag, or fail their checksum.
var ErrMalformedFrame = errors.New("malformed frame")

// Codec encodes and decodes frames. It is safe for concurrent use.
type Codec struct {
	compress    bool
	minCompress int

	enc *zstd.Encoder
	dec *zstd.Decoder
}

type codecOptions struct {
	compress    bool
	minCompress int
}

// Option configures a Codec.
type Option func(*codecOptions)

// WithCompression enables or disables zstd compression of RESULT payloads.
// Decoding always accepts compressed frames.
func WithCompression(enabled bool) Option {
	return func(o *codecOptions) {
		o.compress = enabled
	}
}

// WithMinCompressSize sets the payload size below which frames are sent raw.
func WithMinCompressSize(n int) Option {
	return func(o *codecOptions) {
		o.minCompress = n
	}
}

// NewCodec creates a codec. Compression is enabled by default.
func NewCodec(opts ...Option) (*Codec, error) {
	o := codecOptions{compress: true, minCompress: DefaultMinCompressSize}
	for _, opt := range opts {
		opt(&o)
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(MaxPayload),
	)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Codec{compress: o.compress, minCompress: o.minCompress, enc: enc, dec: dec}, nil
}

// Close releases the compressor resources.
func (c *Codec) Close() {
	_ = c.enc.Close()
	c.dec.Close()
}

// Encode serializes msg into a new frame.
func (c *Codec) Encode(msg types.Message) ([]byte, error) {
	if !msg.Tag.Valid() {
		return nil, fmt.Errorf("%w: tag %s", ErrMalformedFrame, msg.Tag)
	}
	if len(msg.WorkerID) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: worker id of %d bytes", ErrMalformedFrame, len(msg.WorkerID))
	}

	var payload []byte
	var flags byte
	if msg.Tag == types.TagResult {
		payload = msg.Pixels
		if c.compress && len(payload) >= c.minCompress {
			z := c.enc.EncodeAll(payload, make([]byte, 0, len(payload)/2))
			if len(z) < len(payload) {
				payload = z
				flags |= flagZstd
			}
		}
	}

	buf := make([]byte, 0, HeaderSize+len(msg.WorkerID)+len(payload))
	buf = append(buf, byte(msg.Tag), flags)
	buf = binary.BigEndian.AppendUint64(buf, msg.TaskID)
	buf = binary.BigEndian.AppendUint64(buf, xxh3.Hash(msg.Pixels))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(msg.WorkerID)))
	buf = append(buf, msg.WorkerID...)
	buf = append(buf, payload...)

	return buf, nil
}

// Decode parses a frame produced by Encode.
//
// The returned message does not alias frame.
func (c *Codec) Decode(frame []byte) (types.Message, error) {
	if len(frame) < HeaderSize {
		return types.Message{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformedFrame, len(frame))
	}

	tag := types.Tag(frame[0])
	if !tag.Valid() {
		return types.Message{}, fmt.Errorf("%w: unknown tag %d", ErrMalformedFrame, frame[0])
	}
	flags := frame[1]
	taskID := binary.BigEndian.Uint64(frame[2:10])
	sum := binary.BigEndian.Uint64(frame[10:18])
	idLen := int(binary.BigEndian.Uint16(frame[18:20]))

	rest := frame[HeaderSize:]
	if len(rest) < idLen {
		return types.Message{}, fmt.Errorf("%w: worker id truncated", ErrMalformedFrame)
	}
	msg := types.Message{Tag: tag, WorkerID: string(rest[:idLen]), TaskID: taskID}
	payload := rest[idLen:]

	if tag != types.TagResult {
		if len(payload) != 0 {
			return types.Message{}, fmt.Errorf("%w: %s frame carries %d payload bytes", ErrMalformedFrame, tag, len(payload))
		}

		return msg, nil
	}

	if flags&flagZstd != 0 {
		raw, err := c.dec.DecodeAll(payload, nil)
		if err != nil {
			return types.Message{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		payload = raw
	} else {
		payload = append([]byte(nil), payload...)
	}

	if xxh3.Hash(payload) != sum {
		return types.Message{}, fmt.Errorf("%w: checksum mismatch for task %d", ErrMalformedFrame, taskID)
	}
	msg.Pixels = payload

	return msg, nil
}
