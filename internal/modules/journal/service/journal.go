package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"orb_bot/internal/models"
	"orb_bot/pkg/db"
)

// Journal пишет факты сессии в постгрес: пробои, ордера, итоги.
// Только наружу — движок из журнала ничего не читает, персист
// состояния между днями остаётся вне скоупа.
type Journal struct {
	tx db.TxManager
}

func New(tx db.TxManager) *Journal {
	return &Journal{tx: tx}
}

const schema = `
CREATE TABLE IF NOT EXISTS orb_breakouts (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT        NOT NULL,
	symbol      TEXT        NOT NULL,
	entry_price NUMERIC     NOT NULL,
	fired_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS orb_orders (
	order_id     BIGINT      NOT NULL,
	run_id       TEXT        NOT NULL,
	parent_id    BIGINT      NOT NULL,
	symbol       TEXT        NOT NULL,
	action       TEXT        NOT NULL,
	kind         TEXT        NOT NULL,
	quantity     BIGINT      NOT NULL,
	limit_price  NUMERIC     NOT NULL,
	trigger_price NUMERIC    NOT NULL,
	transmit     BOOLEAN     NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, order_id)
);
CREATE TABLE IF NOT EXISTS orb_outcomes (
	run_id     TEXT        NOT NULL,
	symbol     TEXT        NOT NULL,
	outcome    TEXT        NOT NULL,
	decided_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, symbol)
);`

func (j *Journal) EnsureSchema(ctx context.Context) error {
	err := j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, schema)
		return err
	})
	return errors.Wrap(err, "journal: ensure schema")
}

func (j *Journal) RecordBreakout(ctx context.Context, runID string, ev models.BreakoutEvent) error {
	err := j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO orb_breakouts (run_id, symbol, entry_price) VALUES ($1, $2, $3)`,
			runID, ev.Symbol, ev.EntryPrice)
		return err
	})
	return errors.Wrap(err, "journal: record breakout")
}

func (j *Journal) RecordOrder(ctx context.Context, runID string, req models.OrderRequest) error {
	err := j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO orb_orders
			 (run_id, order_id, parent_id, symbol, action, kind, quantity, limit_price, trigger_price, transmit)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			runID, req.OrderID, req.ParentID, req.Symbol, string(req.Action), string(req.Kind),
			req.Quantity, req.LimitPrice, req.TriggerPrice, req.Transmit)
		return err
	})
	return errors.Wrap(err, "journal: record order")
}

func (j *Journal) RecordOutcome(ctx context.Context, runID string, symbol string, outcome models.Outcome) error {
	err := j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO orb_outcomes (run_id, symbol, outcome) VALUES ($1, $2, $3)
			 ON CONFLICT (run_id, symbol) DO UPDATE SET outcome = EXCLUDED.outcome`,
			runID, symbol, outcome.String())
		return err
	})
	return errors.Wrap(err, "journal: record outcome")
}

// Noop — журнал без БД.
type Noop struct{}

func (Noop) RecordBreakout(context.Context, string, models.BreakoutEvent) error { return nil }
func (Noop) RecordOrder(context.Context, string, models.OrderRequest) error     { return nil }
func (Noop) RecordOutcome(context.Context, string, string, models.Outcome) error {
	return nil
}
