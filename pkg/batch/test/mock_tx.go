// Package test holds mocks and fixtures shared by the batch package tests.
package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	tx "github.com/kangwooc/spring-batch/pkg/batch/core/tx"
)

// MockTx is a tx.Tx with a fixed ID.
type MockTx struct {
	mock.Mock
	TxID string
}

func (m *MockTx) ID() string { return m.TxID }

func (m *MockTx) Done() bool {
	args := m.Called()
	return args.Bool(0)
}

var _ tx.Tx = (*MockTx)(nil)

// MockTransactionManager records Begin, Commit and Rollback calls.
type MockTransactionManager struct {
	mock.Mock
}

var _ tx.TransactionManager = (*MockTransactionManager)(nil)

func (m *MockTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(tx.Tx)
	return t, args.Error(1)
}

func (m *MockTransactionManager) Commit(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockTransactionManager) Rollback(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

// ExpectTransaction sets up one Begin returning a MockTx with id and returns it.
func (m *MockTransactionManager) ExpectTransaction(id string) *MockTx {
	t := &MockTx{TxID: id}
	m.On("Begin", mock.Anything).Return(t, nil).Once()
	return t
}
