package repository

import (
	"context"
	"testing"
	"time"

	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// recordingTx captures Exec calls; any other pgx.Tx method panics.
type recordingTx struct {
	pgx.Tx
	args [][]any
}

func (t *recordingTx) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	t.args = append(t.args, args)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func TestDebitTxStampsLedgerWithCallerTime(t *testing.T) {
	repo := New(nil)
	tx := &recordingTx{}
	pro := uuid.New()
	leadID := uuid.New()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	if err := repo.DebitTx(context.Background(), tx, pro, 20, "lead claim", &leadID, now); err != nil {
		t.Fatalf("DebitTx failed: %v", err)
	}

	if len(tx.args) != 2 {
		t.Fatalf("expected balance update plus ledger insert, got %d statements", len(tx.args))
	}
	insert := tx.args[1]
	if insert[2] != -20 {
		t.Errorf("expected ledger amount -20, got %v", insert[2])
	}
	if insert[5] != now {
		t.Errorf("expected ledger timestamp %v, got %v", now, insert[5])
	}
}

func TestDebitTxRejectsNonPositiveAmount(t *testing.T) {
	repo := New(nil)
	tx := &recordingTx{}

	err := repo.DebitTx(context.Background(), tx, uuid.New(), 0, "lead claim", nil, time.Now())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if len(tx.args) != 0 {
		t.Error("no statement should run for an invalid amount")
	}
}
