package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_bot/internal/models"
	"orb_bot/pkg/db"
)

// fakeTxManager считает обращения к транзакционной границе, сами
// запросы не исполняет.
type fakeTxManager struct {
	calls int
	err   error
}

func (f *fakeTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	f.calls++
	return f.err
}

var _ db.TxManager = (*fakeTxManager)(nil)

func TestJournalRunsEverythingThroughTxManager(t *testing.T) {
	tm := &fakeTxManager{}
	j := New(tm)
	ctx := context.Background()

	require.NoError(t, j.RecordBreakout(ctx, "run", models.BreakoutEvent{Symbol: "RRGB", EntryPrice: 12}))
	require.NoError(t, j.RecordOrder(ctx, "run", models.OrderRequest{OrderID: 1, Symbol: "RRGB"}))
	require.NoError(t, j.RecordOutcome(ctx, "run", "RRGB", models.OutcomeNoTrade))

	assert.Equal(t, 3, tm.calls)
}

func TestJournalWrapsTxErrors(t *testing.T) {
	tm := &fakeTxManager{err: errors.New("connection refused")}
	j := New(tm)

	err := j.RecordOutcome(context.Background(), "run", "RRGB", models.OutcomeNoTrade)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal: record outcome")
}
