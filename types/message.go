package types

import "fmt"

// Tag identifies the kind of a protocol message.
type Tag uint8

const (
	// TagRequest is sent by a worker asking for its next task. No payload.
	TagRequest Tag = iota

	// TagResult is sent by a worker with a rendered block: task id + pixels.
	TagResult

	// TagTerminate is sent by the coordinator telling a worker to exit. No payload.
	TagTerminate

	// TagTask is sent by the coordinator with the id of the block to render.
	TagTask
)

// String returns the wire name of the tag.
func (t Tag) String() string {
	switch t {
	case TagRequest:
		return "REQUEST"
	case TagResult:
		return "RESULT"
	case TagTerminate:
		return "TERMINATE"
	case TagTask:
		return "TASK"
	default:
		return fmt.Sprintf("TAG(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the four protocol tags.
func (t Tag) Valid() bool {
	return t <= TagTask
}

// Message is one unit exchanged between the coordinator and a worker.
//
// WorkerID names the worker on both directions: the sender of a Request or
// Result, the destination of a Task or Terminate.
type Message struct {
	Tag      Tag
	WorkerID string
	TaskID   uint64
	Pixels   []byte
}

// Request builds a work request from workerID.
func Request(workerID string) Message {
	return Message{Tag: TagRequest, WorkerID: workerID}
}

// Task builds a task assignment for workerID.
func Task(workerID string, taskID uint64) Message {
	return Message{Tag: TagTask, WorkerID: workerID, TaskID: taskID}
}

// Result builds a rendered block reply from workerID.
func Result(workerID string, taskID uint64, pixels []byte) Message {
	return Message{Tag: TagResult, WorkerID: workerID, TaskID: taskID, Pixels: pixels}
}

// Terminate builds a stop message for workerID.
func Terminate(workerID string) Message {
	return Message{Tag: TagTerminate, WorkerID: workerID}
}

// Rect is a block of pixels in image coordinates.
//
// (0,0) is the top-left corner of the image and Y grows downward.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Area returns the number of pixels covered by r.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Contains reports whether pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}
