package memory

import (
	"context"

	"rxpos/internal/core/tx"
)

var _ tx.Manager = (*Store)(nil)

type journalKey struct{}

// journal collects the undo steps of one RunInTransaction call.
type journal struct {
	undo []func()
}

// RunInTransaction implements tx.Manager. Writes made through ctx are undone
// in reverse order when fn fails. Transactions are serialized; nested calls
// join the outer one.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers an undo step. It runs with s.mu held.
func onRollback(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, fn)
	}
}
