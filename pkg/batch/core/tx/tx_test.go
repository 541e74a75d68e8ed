package tx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kangwooc/spring-batch/pkg/batch/core/tx"
)

func TestResourcelessTransactionManager(t *testing.T) {
	m := tx.NewResourcelessTransactionManager()

	first, err := m.Begin(context.Background())
	require.NoError(t, err)
	second, err := m.Begin(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	require.NoError(t, m.Commit(first))
	assert.True(t, first.Done())
	assert.ErrorIs(t, m.Rollback(first), tx.ErrTxDone)

	require.NoError(t, m.Rollback(second))
}

func TestResourcelessTransactionManager_BeginOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tx.NewResourcelessTransactionManager().Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTx(t *testing.T) {
	m := tx.NewResourcelessTransactionManager()
	current, err := m.Begin(context.Background())
	require.NoError(t, err)

	_, ok := tx.FromContext(context.Background())
	assert.False(t, ok)

	got, ok := tx.FromContext(tx.WithTx(context.Background(), current))
	assert.True(t, ok)
	assert.Same(t, current, got)
}
