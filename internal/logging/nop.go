package logging

import "github.com/FrancoYudica/DistributedFractals/types"

// NopLogger discards every message. It is the default logger of every
// component.
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNop creates a logger that discards all messages.
func NewNop() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

func (n *NopLogger) Info(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

func (n *NopLogger) Warn(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

func (n *NopLogger) Error(_ /* msg */ string, _ /* keysAndValues */ ...any) {}

// Fatal discards the message and does not exit.
func (n *NopLogger) Fatal(_ /* msg */ string, _ /* keysAndValues */ ...any) {}
