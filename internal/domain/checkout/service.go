package checkout

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/id"
	"rxpos/internal/core/tx"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/address"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/domain/events"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/domain/pricing"
	"rxpos/internal/domain/transaction"
	"rxpos/pkg/logger"
	"rxpos/pkg/metrics"
)

var tracer = otel.Tracer("rxpos/checkout")

// DefaultDeliveryFee is the flat delivery charge when none is configured.
var DefaultDeliveryFee = types.MustMoney("50.00")

// TokenSource opens the sealed gateway token of a stored card.
type TokenSource interface {
	Token(ctx context.Context, ownerRef, methodRef string) (string, error)
}

// Deps groups the orchestrator collaborators. Addresses, Methods and Tokens
// are optional.
type Deps struct {
	Catalog      catalog.Catalog
	Addresses    address.Resolver
	Methods      paymentmethod.Finder
	Tokens       TokenSource
	Payments     *payment.Dispatcher
	Carts        *cart.Service
	Transactions *transaction.Service
	TxManager    tx.Manager
	Metrics      *metrics.Sales

	DeliveryFee    types.Money
	DefaultTaxRate types.Money
}

// Service is the checkout orchestrator.
type Service struct {
	catalog      catalog.Catalog
	addresses    address.Resolver
	methods      paymentmethod.Finder
	tokens       TokenSource
	payments     *payment.Dispatcher
	carts        *cart.Service
	transactions *transaction.Service
	txManager    tx.Manager
	metrics      *metrics.Sales

	deliveryFee    types.Money
	defaultTaxRate types.Money
}

// NewService creates the orchestrator.
func NewService(d Deps) *Service {
	s := &Service{
		catalog:        d.Catalog,
		addresses:      d.Addresses,
		methods:        d.Methods,
		tokens:         d.Tokens,
		payments:       d.Payments,
		carts:          d.Carts,
		transactions:   d.Transactions,
		txManager:      d.TxManager,
		metrics:        d.Metrics,
		deliveryFee:    d.DeliveryFee,
		defaultTaxRate: d.DefaultTaxRate,
	}
	if s.txManager == nil {
		s.txManager = tx.Noop{}
	}
	if s.deliveryFee.IsZero() {
		s.deliveryFee = DefaultDeliveryFee
	}
	return s
}

// resolved is the item source picked for one checkout.
type resolved struct {
	items    []pricing.LineItem
	txType   pricing.TransactionType
	cart     *cart.Cart
	existing *transaction.Transaction

	// linked is the cart a parked transaction was built from. It is closed
	// together with the transaction.
	linked *cart.Cart
}

// closes returns the cart completed by a successful checkout, if any.
func (r resolved) closes() *cart.Cart {
	if r.cart != nil {
		return r.cart
	}
	return r.linked
}

// Checkout runs the sale flow. On any error no transaction is written and
// any stock taken for this call is given back.
func (s *Service) Checkout(ctx context.Context, req Request) (out *transaction.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "checkout",
		trace.WithAttributes(
			attribute.String("checkout.type", string(req.TransactionType)),
			attribute.Bool("checkout.draft", req.SaveAsDraft),
		))
	started := time.Now()
	defer func() {
		s.metrics.ObserveCheckout(string(req.TransactionType), outcome(err, req.SaveAsDraft), started)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.transactions.Now()

	src, err := s.resolve(ctx, req, now)
	if err != nil {
		return nil, err
	}
	if len(src.items) == 0 {
		return nil, apperror.NewEmptyCart()
	}
	req.TransactionType = src.txType

	t := s.build(ctx, req, src, now)
	draft := req.SaveAsDraft

	var reservation *catalog.Reservation
	if !draft && t.TransactionType == pricing.TypeSale {
		demands := catalog.DemandsFor(t.Items)
		if err := catalog.CheckStock(ctx, s.catalog, demands); err != nil {
			return nil, err
		}
		reservation, err = catalog.Reserve(ctx, s.catalog, demands)
		if err != nil {
			if apperror.HasCode(err, apperror.CodeInsufficientStock) {
				s.metrics.ObserveStockConflict()
			}
			return nil, err
		}
	}
	release := func(reason string) {
		if rerr := reservation.Release(ctx); rerr != nil {
			logger.Error(ctx, "reservation not fully released", "reason", reason, "error", rerr)
		}
	}

	if !draft {
		if req.Payment != nil {
			if err := s.pay(ctx, req, t); err != nil {
				release("payment")
				return nil, err
			}
		} else {
			t.Status = transaction.StatusCompleted
		}
	} else {
		t.Status = transaction.StatusDraft
	}

	evt := events.TransactionCompleted
	if draft {
		evt = events.TransactionDrafted
	}
	isNew := src.existing == nil
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.transactions.Save(ctx, t, isNew, evt); err != nil {
			return err
		}
		if c := src.closes(); c != nil && !draft {
			if _, err := s.carts.Complete(ctx, c.ID, string(t.Payment.Method)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		release("persist")
		if !draft && req.Payment != nil {
			logger.Error(ctx, "payment captured but transaction not persisted",
				"method", t.Payment.Method,
				"amount", t.TotalAmount.StringFixed(2),
				"error", err,
			)
		}
		return nil, err
	}

	catalog.Enrich(ctx, s.catalog, t.Items)
	span.SetAttributes(attribute.String("transaction.id", t.TransactionID))
	logger.Info(ctx, "checkout finished",
		"transaction_id", t.TransactionID,
		"status", t.Status,
		"total", t.TotalAmount.StringFixed(2),
	)
	return t, nil
}

// UpdateDeliveryOption switches a draft or pending transaction between
// pickup and delivery and recomputes its totals.
func (s *Service) UpdateDeliveryOption(ctx context.Context, txID id.ID, req DeliveryRequest) (*transaction.Transaction, error) {
	switch req.Option {
	case transaction.DeliveryOptionPickup, transaction.DeliveryOptionDelivery:
	default:
		return nil, apperror.NewValidation("unknown delivery option").WithDetail("option", req.Option)
	}

	var out *transaction.Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.transactions.Get(ctx, txID)
		if err != nil {
			return err
		}
		if !t.IsEditable() {
			return apperror.NewTransactionNotEditable(string(t.Status)).
				WithDetail("transaction_id", t.TransactionID)
		}
		s.applyDelivery(ctx, t, &req, s.transactions.Now())
		if err := s.transactions.Save(ctx, t, false, ""); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, req Request, now time.Time) (resolved, error) {
	var src resolved

	if req.TransactionID != nil {
		t, err := s.transactions.Get(ctx, *req.TransactionID)
		if err != nil {
			return src, err
		}
		if t.OwnerRef != req.PharmacyRef {
			return src, apperror.NewNotFound("transaction", req.TransactionID.String())
		}
		if !t.IsResumable() {
			return src, apperror.NewTransactionNotEditable(string(t.Status)).
				WithDetail("transaction_id", t.TransactionID)
		}
		src.existing = t
		src.items = t.Items
		src.txType = t.TransactionType
		src.linked = s.linkedCart(ctx, t, now)
	}

	switch {
	case len(req.Items) > 0:
		items, err := s.priceItems(ctx, req.Items, now)
		if err != nil {
			return src, err
		}
		src.items = items
	case req.CartID != nil:
		c, err := s.carts.Get(ctx, *req.CartID)
		if err != nil {
			return src, err
		}
		if c.OwnerRef != req.UserRef {
			return src, apperror.NewNotFound("cart", req.CartID.String())
		}
		if c.Status != cart.StatusActive || c.IsExpired(now) {
			return src, apperror.NewNotFound("cart", req.CartID.String()).WithDetail("status", c.Status)
		}
		if src.existing == nil {
			src.txType = c.TransactionType
		} else if c.TransactionType != src.txType {
			return src, apperror.NewValidation("cart and transaction types differ").
				WithDetail("cart", c.TransactionType).
				WithDetail("transaction", src.txType)
		}
		src.cart = c
		src.linked = nil
		src.items = c.Items
	}

	if src.txType == "" {
		src.txType = req.TransactionType
	} else if req.TransactionType != "" && req.TransactionType != src.txType {
		return src, apperror.NewValidation("transactionType does not match the checkout source").
			WithDetail("requested", req.TransactionType).
			WithDetail("source", src.txType)
	}
	return src, nil
}

// linkedCart loads the still open cart a parked transaction came from. A
// cart that is gone or already closed is not an error.
func (s *Service) linkedCart(ctx context.Context, t *transaction.Transaction, now time.Time) *cart.Cart {
	if t.CartRef == "" {
		return nil
	}
	cartID, err := id.Parse(t.CartRef)
	if err != nil {
		return nil
	}
	c, err := s.carts.Get(ctx, cartID)
	if err != nil {
		if !apperror.IsNotFound(err) {
			logger.Warn(ctx, "linked cart lookup failed", "cart_id", t.CartRef, "error", err)
		}
		return nil
	}
	if c.Status != cart.StatusActive || c.IsExpired(now) {
		return nil
	}
	return c
}

// priceItems snapshots catalog prices for an explicit list. Repeated
// products are merged.
func (s *Service) priceItems(ctx context.Context, reqs []ItemRequest, now time.Time) ([]pricing.LineItem, error) {
	items := make([]pricing.LineItem, 0, len(reqs))
	idx := make(map[string]int, len(reqs))
	for _, r := range reqs {
		if i, ok := idx[r.ProductRef]; ok {
			if err := items[i].SetQuantity(items[i].Quantity + r.Quantity); err != nil {
				return nil, err
			}
			continue
		}
		m, err := s.catalog.FindProduct(ctx, r.ProductRef)
		if err != nil {
			return nil, err
		}
		li, err := pricing.NewLineItem(m.Product(), r.Quantity, now)
		if err != nil {
			return nil, err
		}
		idx[r.ProductRef] = len(items)
		items = append(items, li)
	}
	return items, nil
}

func (s *Service) build(ctx context.Context, req Request, src resolved, now time.Time) *transaction.Transaction {
	t := src.existing
	if t == nil {
		t = transaction.New(req.PharmacyRef, req.TransactionType, now)
		t.TaxRate = s.defaultTaxRate
	}
	t.Items = src.items
	if req.BranchRef != "" {
		t.BranchRef = req.BranchRef
	}
	if req.TaxRate != nil {
		t.TaxRate = *req.TaxRate
	}
	if req.Notes != "" {
		t.Notes = req.Notes
	}

	if src.cart != nil {
		t.CartRef = src.cart.ID.String()
		t.Discount = src.cart.Discount
		t.CustomerInfo = src.cart.Customer
	}
	if req.Discount != nil {
		t.Discount = *req.Discount
	}
	if req.Customer != nil {
		t.CustomerInfo = *req.Customer
	}

	if req.Delivery != nil {
		s.applyDelivery(ctx, t, req.Delivery, now)
	}
	t.RecomputeDerivedFields()
	return t
}

// applyDelivery sets the delivery option. A failed address lookup leaves the
// address unset; the order still goes out for delivery with the flat fee.
func (s *Service) applyDelivery(ctx context.Context, t *transaction.Transaction, req *DeliveryRequest, now time.Time) {
	if req.Option != transaction.DeliveryOptionDelivery {
		t.SetPickup()
		return
	}

	var addr *address.Address
	if req.AddressRef != "" && s.addresses != nil {
		a, err := s.addresses.FindAddress(ctx, req.AddressRef)
		if err != nil {
			logger.Warn(ctx, "delivery address lookup failed", "address_ref", req.AddressRef, "error", err)
		} else {
			addr = a
		}
	}
	t.SetDelivery(s.deliveryFee, req.AddressRef, addr, now)
}

func (s *Service) pay(ctx context.Context, req Request, t *transaction.Transaction) error {
	preq := *req.Payment
	preq.Amount = t.TotalAmount

	if preq.StoredMethodRef != "" {
		if s.methods == nil {
			return apperror.NewNotFound("payment_method", preq.StoredMethodRef)
		}
		m, err := s.methods.FindActiveMethod(ctx, req.PharmacyRef, preq.StoredMethodRef)
		if err != nil {
			return err
		}
		preq.StoredMethod = m
		if preq.Method == payment.MethodCard && preq.Extra.CardToken == "" && s.tokens != nil {
			tok, err := s.tokens.Token(ctx, req.PharmacyRef, preq.StoredMethodRef)
			if err != nil {
				return err
			}
			preq.Extra.CardToken = tok
		}
	}

	res, err := s.payments.Dispatch(ctx, preq)
	s.metrics.ObservePayment(string(preq.Method), err == nil && res.Success)
	if err != nil {
		return err
	}
	if !res.Success {
		return apperror.NewPaymentFailed(string(preq.Method), res.Message)
	}
	t.ApplyPayment(preq.Method, preq.StoredMethodRef, res.Data)
	return nil
}

func outcome(err error, draft bool) string {
	switch {
	case err == nil && draft:
		return "draft"
	case err == nil:
		return "completed"
	}
	return string(apperror.CategoryOf(err))
}
