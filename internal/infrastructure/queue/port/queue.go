package port

import (
	"context"
	"errors"
)

// Task represents a background job message with a type and opaque payload bytes.
// Type is a stable identifier such as "messaging:publish_event"; payload encoding
// is up to the task's owner.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. Return a non-nil error to signal retry per adapter policy;
// wrap ErrSkipRetry when retrying cannot help. Handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls how a task is queued. Zero values leave the backend default.
type EnqueueOption struct {
	Queue    string
	MaxRetry int

	// TaskID collapses duplicate enqueues: a second task with an ID that is still
	// pending is dropped and Enqueue reports the existing ID.
	TaskID string
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs background workers that handle tasks.
// Implementations should block in Run until Stop/Shutdown is called or context is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ErrSkipRetry marks a handler failure as permanent (for example a malformed payload).
var ErrSkipRetry = errors.New("queue: skip retry")
