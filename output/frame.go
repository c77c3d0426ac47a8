package output

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
)

// MaxFrameSize bounds a frame accepted by ReadFrame.
const MaxFrameSize = 512 << 20

// WriteFrame writes len(p) as a 4-byte big-endian length followed by p.
func WriteFrame(w io.Writer, p []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(p))) //nolint:gosec // bounded by MaxFrameSize in practice
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(p)

	return err
}

// ReadFrame reads one frame written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(hdr[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	p := make([]byte, size)
	if _, err := io.ReadFull(r, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Delivery is one image received from a Network handler.
type Delivery struct {
	UUID  uuid.UUID
	Image []byte
}

// Receive reads the UUID frame and the image frame of one connection.
func Receive(r io.Reader) (Delivery, error) {
	idFrame, err := ReadFrame(r)
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to read job id: %w", err)
	}

	id, err := uuid.ParseBytes(idFrame)
	if err != nil {
		return Delivery{}, fmt.Errorf("invalid job id: %w", err)
	}

	img, err := ReadFrame(r)
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to read image: %w", err)
	}

	return Delivery{UUID: id, Image: img}, nil
}

// Serve accepts connections on ln until ctx is cancelled, handing every
// delivery to fn. Connections are handled one at a time; errors from a single
// connection or from fn go to onErr and do not stop the loop.
func Serve(ctx context.Context, ln net.Listener, fn func(Delivery) error, onErr func(error)) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}

			return fmt.Errorf("failed to accept: %w", err)
		}

		d, err := Receive(conn)
		_ = conn.Close()
		if err == nil {
			err = fn(d)
		}
		if err != nil && onErr != nil {
			onErr(err)
		}
	}
}
