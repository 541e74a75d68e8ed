// Package tx abstracts the transaction that surrounds one chunk flush or one tasklet invocation.
// A TransactionManager hands out Tx values; repositories find the in-flight Tx through the context
// so metadata updates commit or roll back together with the business writes.
package tx

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
)

// ErrTxDone is returned when committing or rolling back a transaction twice.
var ErrTxDone = errors.New("transaction has already been committed or rolled back")

// Tx represents an ongoing transaction.
type Tx interface {
	// ID identifies the transaction in logs.
	ID() string
	// Done reports whether Commit or Rollback has already completed.
	Done() bool
}

// TransactionManager begins, commits and rolls back transactions.
type TransactionManager interface {
	// Begin starts a new transaction.
	// opts: optional isolation level or read-only flag. Managers without a backend ignore it.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit persists every change made within tx.
	Commit(tx Tx) error
	// Rollback undoes every change made within tx.
	Rollback(tx Tx) error
}

type txKey struct{}

// WithTx returns a context carrying t.
func WithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txKey{}, t)
}

// FromContext returns the transaction installed by WithTx.
func FromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txKey{}).(Tx)
	return t, ok
}

// ResourcelessTransactionManager tracks transaction boundaries without a backing resource.
// It serves steps whose side effects are not transactional, and the in-memory repository.
type ResourcelessTransactionManager struct {
	seq atomic.Int64
}

func NewResourcelessTransactionManager() *ResourcelessTransactionManager {
	return &ResourcelessTransactionManager{}
}

type resourcelessTx struct {
	id   string
	done atomic.Bool
}

func (t *resourcelessTx) ID() string { return t.id }
func (t *resourcelessTx) Done() bool { return t.done.Load() }

func (m *ResourcelessTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := m.seq.Add(1)
	return &resourcelessTx{id: "resourceless-" + itoa(n)}, nil
}

func (m *ResourcelessTransactionManager) Commit(t Tx) error {
	return finish(t)
}

func (m *ResourcelessTransactionManager) Rollback(t Tx) error {
	return finish(t)
}

func finish(t Tx) error {
	rt, ok := t.(*resourcelessTx)
	if !ok {
		return errors.New("transaction was not started by ResourcelessTransactionManager")
	}
	if !rt.done.CompareAndSwap(false, true) {
		return ErrTxDone
	}
	return nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
