package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transitcore/transit-gateway/internal/event"
	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/internal/queue"
	"github.com/transitcore/transit-gateway/internal/repository"
)

type stubTransactionReader struct {
	txn *model.Transaction
}

func (s *stubTransactionReader) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if s.txn == nil {
		return nil, repository.ErrTransactionNotFound
	}
	return s.txn, nil
}

func appliedEvent(id, alias int64, amount, oldBal, newBal string, op model.TransactionOperation) *event.TransactionApplied {
	return &event.TransactionApplied{
		TransactionID: id,
		AliasNo:       alias,
		Amount:        decimal.RequireFromString(amount),
		Operation:     op,
		OldBalance:    decimal.RequireFromString(oldBal),
		NewBalance:    decimal.RequireFromString(newBal),
		AppliedAt:     time.Now().UTC(),
	}
}

func ledgerRow(id, alias int64, amount string, op model.TransactionOperation) *model.Transaction {
	return &model.Transaction{
		ID:        id,
		AliasNo:   alias,
		Amount:    decimal.RequireFromString(amount),
		Date:      time.Now().UTC(),
		Operation: op,
	}
}

func TestTransactionAuditor_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent usage event", func(t *testing.T) {
		reader := &stubTransactionReader{txn: ledgerRow(1, 5, "2.50", model.OperationUsage)}
		auditor := NewTransactionAuditor(reader, nil)

		ev := appliedEvent(1, 5, "2.50", "10.00", "7.50", model.OperationUsage)
		assert.Equal(t, auditResultOK, auditor.verify(ctx, ev))
	})

	t.Run("consistent recharge event", func(t *testing.T) {
		reader := &stubTransactionReader{txn: ledgerRow(2, 5, "25.00", model.OperationRecharge)}
		auditor := NewTransactionAuditor(reader, nil)

		ev := appliedEvent(2, 5, "25.00", "10.00", "35.00", model.OperationRecharge)
		assert.Equal(t, auditResultOK, auditor.verify(ctx, ev))
	})

	t.Run("missing ledger row is an orphan", func(t *testing.T) {
		auditor := NewTransactionAuditor(&stubTransactionReader{}, nil)

		ev := appliedEvent(99, 5, "1.00", "10.00", "9.00", model.OperationUsage)
		assert.Equal(t, auditResultOrphan, auditor.verify(ctx, ev))
	})

	t.Run("wrong balance delta is a mismatch", func(t *testing.T) {
		reader := &stubTransactionReader{txn: ledgerRow(3, 5, "2.00", model.OperationUsage)}
		auditor := NewTransactionAuditor(reader, nil)

		ev := appliedEvent(3, 5, "2.00", "10.00", "7.00", model.OperationUsage)
		assert.Equal(t, auditResultMismatch, auditor.verify(ctx, ev))
	})

	t.Run("amount differing from the ledger is a mismatch", func(t *testing.T) {
		reader := &stubTransactionReader{txn: ledgerRow(4, 5, "3.00", model.OperationUsage)}
		auditor := NewTransactionAuditor(reader, nil)

		ev := appliedEvent(4, 5, "2.00", "10.00", "8.00", model.OperationUsage)
		assert.Equal(t, auditResultMismatch, auditor.verify(ctx, ev))
	})

	t.Run("unknown operation is a mismatch", func(t *testing.T) {
		reader := &stubTransactionReader{txn: ledgerRow(5, 5, "2.00", "transfer")}
		auditor := NewTransactionAuditor(reader, nil)

		ev := appliedEvent(5, 5, "2.00", "10.00", "8.00", "transfer")
		assert.Equal(t, auditResultMismatch, auditor.verify(ctx, ev))
	})
}

func TestTransactionAuditor_Process(t *testing.T) {
	ctx := context.Background()

	newAuditor := func(reader TransactionReader) (*TransactionAuditor, *IdempotencyService) {
		idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
		return NewTransactionAuditor(reader, idem), idem
	}

	message := func(t *testing.T, ev *event.TransactionApplied, eventID string) *queue.Message {
		data, err := json.Marshal(ev)
		require.NoError(t, err)
		return &queue.Message{
			ID:       "1-0",
			Data:     data,
			Metadata: map[string]string{"event_id": eventID},
		}
	}

	t.Run("processes and marks the event", func(t *testing.T) {
		reader := &stubTransactionReader{txn: ledgerRow(1, 5, "2.50", model.OperationUsage)}
		auditor, idem := newAuditor(reader)

		ev := appliedEvent(1, 5, "2.50", "10.00", "7.50", model.OperationUsage)
		err := auditor.Process(ctx, message(t, ev, "evt-1"))
		require.NoError(t, err)

		processed, err := idem.IsProcessed(ctx, "evt-1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("duplicate delivery is a no-op", func(t *testing.T) {
		reader := &stubTransactionReader{txn: ledgerRow(1, 5, "2.50", model.OperationUsage)}
		auditor, _ := newAuditor(reader)

		ev := appliedEvent(1, 5, "2.50", "10.00", "7.50", model.OperationUsage)
		msg := message(t, ev, "evt-2")

		require.NoError(t, auditor.Process(ctx, msg))
		assert.NoError(t, auditor.Process(ctx, msg))
	})

	t.Run("malformed payload fails the message", func(t *testing.T) {
		auditor, _ := newAuditor(&stubTransactionReader{})

		msg := &queue.Message{ID: "1-1", Data: []byte("not json"), Metadata: map[string]string{}}
		assert.Error(t, auditor.Process(ctx, msg))
	})

	t.Run("flagged ledger still acks", func(t *testing.T) {
		// an orphan event is a finding, not a processing failure
		auditor, idem := newAuditor(&stubTransactionReader{})

		ev := appliedEvent(404, 5, "1.00", "10.00", "9.00", model.OperationUsage)
		err := auditor.Process(ctx, message(t, ev, "evt-3"))
		require.NoError(t, err)

		processed, err := idem.IsProcessed(ctx, "evt-3")
		require.NoError(t, err)
		assert.True(t, processed)
	})
}
