package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"gorm.io/gorm"

	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
)

// Tx is the tx.Tx handed out by GormTransactionManager.
type Tx struct {
	id   string
	db   *gorm.DB
	done atomic.Bool
}

func (t *Tx) ID() string { return t.id }
func (t *Tx) Done() bool { return t.done.Load() }

// DB returns the gorm session bound to the transaction.
func (t *Tx) DB() *gorm.DB { return t.db }

// GormTransactionManager runs each transaction on one gorm session.
type GormTransactionManager struct {
	db *gorm.DB
}

var _ tx.TransactionManager = (*GormTransactionManager)(nil)

func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var txOpts *sql.TxOptions
	if len(opts) > 0 {
		txOpts = opts[0]
	}
	session := m.db.WithContext(ctx).Begin(txOpts)
	if session.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", session.Error)
	}
	return &Tx{id: uuid.NewString(), db: session}, nil
}

func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gt, err := own(t)
	if err != nil {
		return err
	}
	if !gt.done.CompareAndSwap(false, true) {
		return tx.ErrTxDone
	}
	if err := gt.db.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", gt.id, err)
	}
	return nil
}

func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gt, err := own(t)
	if err != nil {
		return err
	}
	if !gt.done.CompareAndSwap(false, true) {
		return tx.ErrTxDone
	}
	if err := gt.db.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction %s: %w", gt.id, err)
	}
	return nil
}

func own(t tx.Tx) (*Tx, error) {
	gt, ok := t.(*Tx)
	if !ok {
		return nil, fmt.Errorf("invalid transaction type %T: expected *gorm.Tx", t)
	}
	return gt, nil
}

// Session returns the session of the open gorm transaction in ctx, or base
// bound to ctx when there is none.
func Session(ctx context.Context, base *gorm.DB) *gorm.DB {
	if t, ok := tx.FromContext(ctx); ok {
		if gt, ok := t.(*Tx); ok && !gt.Done() {
			return gt.db.WithContext(ctx)
		}
	}
	return base.WithContext(ctx)
}
