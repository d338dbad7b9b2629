package state

import (
	"context"
	"sync"
)

type frameKey struct{}

// Executor serializes calls and makes each of them atomic. A call that returns
// an error has every journaled change it made reverted.
//
// Calls made from inside a running call (for example a collaborator calling
// back into the contract) are recognised through the context and run as a
// nested frame instead of waiting on the lock.
type Executor struct {
	mu      sync.Mutex
	journal *Journal
	depth   int
}

// NewExecutor returns an executor writing undo entries to journal.
func NewExecutor(journal *Journal) *Executor {
	return &Executor{journal: journal}
}

// Journal returns the journal shared by every component bound to the executor.
func (e *Executor) Journal() *Journal {
	return e.journal
}

// Execute runs fn as one atomic unit.
//
// A call made from inside fn must pass the ctx fn was given, or a context
// derived from it. A call carrying an unrelated context waits for the lock like
// any other caller, which deadlocks when it comes from the running call itself.
func (e *Executor) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.Nested(ctx) {
		return e.frame(ctx, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.frame(context.WithValue(ctx, frameKey{}, e), fn); err != nil {
		return err
	}

	e.journal.Commit()

	return nil
}

// Nested reports whether ctx belongs to a call already running on e.
func (e *Executor) Nested(ctx context.Context) bool {
	owner, ok := ctx.Value(frameKey{}).(*Executor)

	return ok && owner == e
}

// Depth reports how many frames are currently open. Only meaningful from
// inside a call.
func (e *Executor) Depth() int {
	return e.depth
}

func (e *Executor) frame(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := e.journal.Snapshot()

	e.depth++
	defer func() { e.depth-- }()

	if err := fn(ctx); err != nil {
		e.journal.RevertToSnapshot(snapshot)

		return err
	}

	return nil
}
