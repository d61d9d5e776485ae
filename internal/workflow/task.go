package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Task is one dispatched action.
type Task struct {
	ID   uuid.UUID
	Kind Kind

	done chan struct{}
	err  error
}

func newTask(kind Kind) *Task {
	return &Task{ID: uuid.New(), Kind: kind, done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the task ends.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's outcome once Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task ends or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
