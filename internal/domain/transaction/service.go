package transaction

import (
	"context"
	"fmt"
	"time"

	"rxpos/internal/core/apperror"
	appctx "rxpos/internal/core/context"
	"rxpos/internal/core/id"
	"rxpos/internal/core/tx"
	"rxpos/internal/core/types"
	"rxpos/internal/domain"
	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/events"
	"rxpos/pkg/logger"
	"rxpos/pkg/metrics"
)

// RefundPrefix prefixes generated refund references.
const RefundPrefix = "RFD"

// Service provides operations on persisted transactions. Every mutation runs
// in one database transaction together with its audit entry and outbox event.
type Service struct {
	repo      Repository
	txManager tx.Manager
	ids       IdentifierSource
	audit     audit.Recorder
	events    events.Publisher
	metrics   *metrics.Sales
	now       func() time.Time
}

// Deps groups Service collaborators.
type Deps struct {
	Repo      Repository
	TxManager tx.Manager
	IDs       IdentifierSource
	Audit     audit.Recorder
	Events    events.Publisher
	Metrics   *metrics.Sales
}

// NewService creates a new transaction service.
func NewService(d Deps) *Service {
	s := &Service{
		repo:      d.Repo,
		txManager: d.TxManager,
		ids:       d.IDs,
		audit:     d.Audit,
		events:    d.Events,
		metrics:   d.Metrics,
		now:       time.Now,
	}
	if s.txManager == nil {
		s.txManager = tx.Noop{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	return s
}

// SetClock overrides the time source (tests).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// Get returns a transaction by primary key.
func (s *Service) Get(ctx context.Context, txID id.ID) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if err := t.VerifyConsistency(); err != nil {
		return nil, err
	}
	return t, nil
}

// GetByTransactionID returns a transaction by its public identifier.
func (s *Service) GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	t, err := s.repo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := t.VerifyConsistency(); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns a page of transactions.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Save persists t (insert when isNew) with its audit entry and event.
// Must be called inside the caller's transaction when atomicity with other
// writes matters.
func (s *Service) Save(ctx context.Context, t *Transaction, isNew bool, evt events.Type) error {
	if isNew {
		audit.EnrichCreatedBy(ctx, &t.CreatedBy, &t.UpdatedBy)
	} else {
		audit.EnrichUpdatedBy(ctx, &t.UpdatedBy)
	}
	if err := t.PrepareForSave(ctx, s.ids, s.now()); err != nil {
		return err
	}

	action := audit.ActionUpdate
	if isNew {
		action = audit.ActionCreate
		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
	} else if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if err := s.audit.Record(ctx, audit.NewEntry(ctx, events.AggregateTransaction, t.ID.String(), action, map[string]any{
		"status":       t.Status,
		"total_amount": t.TotalAmount.String(),
	})); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	if evt != "" {
		if err := s.events.Publish(ctx, events.New(evt, t.ID.String(), Payload(t))); err != nil {
			return fmt.Errorf("publish %s: %w", evt, err)
		}
	}
	return nil
}

// RefundResult reports the outcome of a refund.
type RefundResult struct {
	Transaction    *Transaction `json:"transaction"`
	RefundedAmount types.Money  `json:"refundedAmount"`
}

// Refund processes a refund capped at the remaining balance.
func (s *Service) Refund(ctx context.Context, txID id.ID, req RefundRequest) (*RefundResult, error) {
	if req.ProcessedBy == "" {
		req.ProcessedBy = appctx.GetUserID(ctx)
	}

	var result *RefundResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.Get(ctx, txID)
		if err != nil {
			return err
		}
		if !t.CanRefund(s.now()) {
			return apperror.NewRefundNotAllowed(string(t.Status)).
				WithDetail("transaction_id", t.TransactionID)
		}

		if req.RefundRef == "" {
			ref, err := s.ids.GenerateUniqueID(ctx, RefundPrefix)
			if err != nil {
				return err
			}
			req.RefundRef = ref
		}

		amount, err := t.ProcessRefund(req, s.now())
		if err != nil {
			return err
		}
		if err := s.mutateAudit(ctx, t, audit.ActionRefund, events.TransactionRefunded, map[string]any{
			"refund_ref": req.RefundRef,
			"amount":     amount.String(),
			"reason":     req.Reason,
		}); err != nil {
			return err
		}

		result = &RefundResult{Transaction: t, RefundedAmount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f, _ := result.RefundedAmount.Float64()
	s.metrics.ObserveRefund(f)
	logger.Info(ctx, "refund processed",
		"transaction_id", result.Transaction.TransactionID,
		"amount", result.RefundedAmount.StringFixed(2),
		"status", result.Transaction.Status,
	)
	return result, nil
}

// UpdateDeliveryStatus advances the delivery sub-state.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, txID id.ID, status DeliveryStatus) (*Transaction, error) {
	var out *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.Get(ctx, txID)
		if err != nil {
			return err
		}
		from := t.Delivery.Status
		if err := t.UpdateDeliveryStatus(status, s.now()); err != nil {
			return err
		}
		out = t
		return s.mutateAudit(ctx, t, audit.ActionDeliveryStatus, events.TransactionDeliveryChange, map[string]any{
			"from": from,
			"to":   status,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel voids a draft, pending or held transaction.
func (s *Service) Cancel(ctx context.Context, txID id.ID, reason string) (*Transaction, error) {
	var out *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.Get(ctx, txID)
		if err != nil {
			return err
		}
		if err := t.Cancel(reason, s.now()); err != nil {
			return err
		}
		out = t
		return s.mutateAudit(ctx, t, audit.ActionCancel, events.TransactionCancelled, map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "transaction cancelled", "transaction_id", out.TransactionID)
	return out, nil
}

// Hold parks a draft or pending transaction for later checkout.
func (s *Service) Hold(ctx context.Context, txID id.ID) (*Transaction, error) {
	var out *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.Get(ctx, txID)
		if err != nil {
			return err
		}
		if err := t.Hold(); err != nil {
			return err
		}
		out = t
		return s.mutateAudit(ctx, t, audit.ActionHold, events.TransactionHeld, nil)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) mutateAudit(ctx context.Context, t *Transaction, action audit.Action, evt events.Type, changes map[string]any) error {
	audit.EnrichUpdatedBy(ctx, &t.UpdatedBy)
	if err := t.PrepareForSave(ctx, s.ids, s.now()); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := s.audit.Record(ctx, audit.NewEntry(ctx, events.AggregateTransaction, t.ID.String(), action, changes)); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	if err := s.events.Publish(ctx, events.New(evt, t.ID.String(), Payload(t))); err != nil {
		return fmt.Errorf("publish %s: %w", evt, err)
	}
	return nil
}

// Payload is the event body for a transaction.
func Payload(t *Transaction) map[string]any {
	return map[string]any{
		"transactionId":     t.TransactionID,
		"transactionNumber": t.TransactionNumber,
		"transactionType":   t.TransactionType,
		"ownerRef":          t.OwnerRef,
		"branchRef":         t.BranchRef,
		"status":            t.Status,
		"totalAmount":       t.TotalAmount.StringFixed(2),
		"totalRefunded":     t.TotalRefunded.StringFixed(2),
		"deliveryStatus":    t.Delivery.Status,
		"paymentMethod":     t.Payment.Method,
	}
}
