package natsutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/FrancoYudica/DistributedFractals/types"
)

func TestIsConnectivityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", nats.ErrTimeout, true},
		{"wrapped no servers", fmt.Errorf("connect: %w", nats.ErrNoServers), true},
		{"closed", nats.ErrConnectionClosed, true},
		{"refused text", errors.New("dial tcp 127.0.0.1:4222: connect: connection refused"), true},
		{"application", errors.New("bad frame"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsConnectivityError(tt.err))
		})
	}
}

func TestWrapClosed(t *testing.T) {
	require.NoError(t, WrapClosed("publish", nil))

	err := WrapClosed("publish", nats.ErrConnectionClosed)
	require.ErrorIs(t, err, types.ErrEndpointClosed)
	require.ErrorIs(t, err, nats.ErrConnectionClosed)

	err = WrapClosed("publish", nats.ErrMaxPayload)
	require.NotErrorIs(t, err, types.ErrEndpointClosed)
	require.ErrorIs(t, err, nats.ErrMaxPayload)
	require.Contains(t, err.Error(), "publish")
}
