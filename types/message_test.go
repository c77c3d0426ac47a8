package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagString(t *testing.T) {
	require.Equal(t, "REQUEST", TagRequest.String())
	require.Equal(t, "RESULT", TagResult.String())
	require.Equal(t, "TERMINATE", TagTerminate.String())
	require.Equal(t, "TASK", TagTask.String())
	require.Equal(t, "TAG(9)", Tag(9).String())
}

func TestTagValid(t *testing.T) {
	for _, tag := range []Tag{TagRequest, TagResult, TagTerminate, TagTask} {
		require.True(t, tag.Valid(), tag.String())
	}
	require.False(t, Tag(4).Valid())
}

func TestMessageConstructors(t *testing.T) {
	px := []byte{1, 2, 3}

	require.Equal(t, Message{Tag: TagRequest, WorkerID: "worker-1"}, Request("worker-1"))
	require.Equal(t, Message{Tag: TagTask, WorkerID: "worker-1", TaskID: 7}, Task("worker-1", 7))
	require.Equal(t, Message{Tag: TagResult, WorkerID: "worker-1", TaskID: 7, Pixels: px}, Result("worker-1", 7, px))
	require.Equal(t, Message{Tag: TagTerminate, WorkerID: "worker-1"}, Terminate("worker-1"))
}

func TestRect(t *testing.T) {
	r := Rect{X: 2, Y: 4, Width: 3, Height: 2}

	require.Equal(t, 6, r.Area())
	require.True(t, r.Contains(2, 4))
	require.True(t, r.Contains(4, 5))
	require.False(t, r.Contains(5, 5))
	require.False(t, r.Contains(2, 6))
	require.False(t, r.Contains(1, 4))
}
