package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/transitcore/transit-gateway/internal/event"
	"github.com/transitcore/transit-gateway/internal/model"
	"github.com/transitcore/transit-gateway/internal/queue"
	"github.com/transitcore/transit-gateway/pkg/logger"
	"github.com/transitcore/transit-gateway/pkg/prom"
)

const (
	auditResultOK       = "ok"
	auditResultMismatch = "mismatch"
	auditResultOrphan   = "orphan"
)

type TransactionReader interface {
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
}

// TransactionAuditor cross-checks each applied-transaction event against the
// ledger: the row must exist and the balance delta must match the amount.
type TransactionAuditor struct {
	transactions TransactionReader
	idempotency  *IdempotencyService
}

func NewTransactionAuditor(transactions TransactionReader, idempotency *IdempotencyService) *TransactionAuditor {
	return &TransactionAuditor{
		transactions: transactions,
		idempotency:  idempotency,
	}
}

func (p *TransactionAuditor) GetType() string {
	return "transaction"
}

func (p *TransactionAuditor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var ev event.TransactionApplied
	if err := json.Unmarshal(queueMessage.Data, &ev); err != nil {
		logger.Error("Failed to unmarshal event", "error", err)
		return err // malformed payload ends up in the DLQ
	}

	eventID := queueMessage.Metadata["event_id"]
	if eventID == "" {
		eventID = queueMessage.ID
	}

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Info("Event already audited, skipping", "event_id", eventID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded", "event_id", eventID)
			return nil // ack so the entry moves to the DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "event_id", eventID, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	result := p.verify(ctx, &ev)
	prom.IncCounterVec(prom.SystemTransactions, prom.MetricTransactionAudited, result)

	if result != auditResultOK {
		logger.Warn("Ledger audit flagged event",
			"event_id", eventID,
			"transaction_id", ev.TransactionID,
			"alias_no", ev.AliasNo,
			"result", result)
	}

	if err := p.idempotency.MarkSuccess(ctx, procCtx); err != nil {
		logger.Error("Failed to mark event processed", "event_id", eventID, "error", err)
	}
	return nil
}

// verify never fails the message over a flagged ledger; a discrepancy is an
// audit finding, not a processing error.
func (p *TransactionAuditor) verify(ctx context.Context, ev *event.TransactionApplied) string {
	txn, err := p.transactions.GetByID(ctx, ev.TransactionID)
	if err != nil {
		return auditResultOrphan
	}

	if !txn.Amount.Equal(ev.Amount) || txn.AliasNo != ev.AliasNo || txn.Operation != ev.Operation {
		return auditResultMismatch
	}

	var expected = ev.OldBalance
	switch ev.Operation {
	case model.OperationRecharge:
		expected = expected.Add(ev.Amount)
	case model.OperationUsage:
		expected = expected.Sub(ev.Amount)
	default:
		return auditResultMismatch
	}

	if !expected.Equal(ev.NewBalance) {
		return auditResultMismatch
	}
	return auditResultOK
}
