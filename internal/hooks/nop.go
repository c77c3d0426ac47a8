// Package hooks provides default implementations of types.Hooks.
package hooks

import (
	"context"

	"github.com/FrancoYudica/DistributedFractals/types"
)

// NopHooks implements every hook as a no-op so callers never nil-check.
type NopHooks struct{}

var (
	_ func(context.Context, types.JobState, types.JobState) error = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, types.Progress) error                 = (*NopHooks)(nil).OnTaskCompleted
)

// NewNop returns hooks that do nothing.
func NewNop() types.Hooks {
	h := &NopHooks{}
	return types.Hooks{
		OnStateChanged:  h.OnStateChanged,
		OnTaskCompleted: h.OnTaskCompleted,
	}
}

// WithDefaults returns h with every nil callback replaced by a no-op.
func WithDefaults(h *types.Hooks) types.Hooks {
	nop := NewNop()
	if h == nil {
		return nop
	}

	out := *h
	if out.OnStateChanged == nil {
		out.OnStateChanged = nop.OnStateChanged
	}
	if out.OnTaskCompleted == nil {
		out.OnTaskCompleted = nop.OnTaskCompleted
	}

	return out
}

func (h *NopHooks) OnStateChanged(_ context.Context, _, _ types.JobState) error {
	return nil
}

func (h *NopHooks) OnTaskCompleted(_ context.Context, _ types.Progress) error {
	return nil
}
