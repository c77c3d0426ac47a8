// Package natsutil holds small helpers shared by the NATS-backed components.
package natsutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/FrancoYudica/DistributedFractals/types"
)

// IsConnectivityError reports whether err comes from a lost or unreachable
// NATS server rather than from the application.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true for timeouts, refused or dropped connections
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}

// WrapClosed maps errors of a closed connection or subscription to
// types.ErrEndpointClosed and wraps everything else with op.
func WrapClosed(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		return fmt.Errorf("%s: %w: %w", op, types.ErrEndpointClosed, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
