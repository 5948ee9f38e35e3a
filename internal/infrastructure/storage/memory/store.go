// Package memory is an in-process implementation of every repository the
// sales engine needs. Documents are deep-copied on read and write so callers
// never share state with the store. Used by tests and when DATABASE_URL is
// unset.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/id"
	"rxpos/internal/domain"
	"rxpos/internal/domain/address"
	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/domain/events"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/domain/transaction"
)

// Store holds all collections behind one lock.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	carts        map[id.ID]*cart.Cart
	transactions map[id.ID]*transaction.Transaction
	medicines    map[string]*catalog.Medicine
	addresses    map[string]*address.Address
	methods      map[string]*paymentmethod.StoredMethod
	events       []events.Event
	auditLog     []audit.Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{
		carts:        make(map[id.ID]*cart.Cart),
		transactions: make(map[id.ID]*transaction.Transaction),
		medicines:    make(map[string]*catalog.Medicine),
		addresses:    make(map[string]*address.Address),
		methods:      make(map[string]*paymentmethod.StoredMethod),
	}
}

var (
	_ cart.Repository          = (*CartRepo)(nil)
	_ transaction.Repository   = (*TransactionRepo)(nil)
	_ catalog.Catalog          = (*Store)(nil)
	_ address.Resolver         = (*Store)(nil)
	_ paymentmethod.Repository = (*Store)(nil)
	_ events.Publisher         = (*Store)(nil)
	_ audit.Recorder           = (*Store)(nil)
	_ audit.Reader             = (*Store)(nil)
)

func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// --- Carts ---

// CartRepo implements cart.Repository.
type CartRepo struct{ s *Store }

// Carts returns the cart repository view.
func (s *Store) Carts() *CartRepo { return &CartRepo{s: s} }

// Create implements cart.Repository.
func (r *CartRepo) Create(_ context.Context, c *cart.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[c.ID]; ok {
		return apperror.NewConflict("cart already exists")
	}
	if c.Version == 0 {
		c.Version = 1
	}
	r.s.carts[c.ID] = clone(c)
	return nil
}

// GetByID implements cart.Repository.
func (r *CartRepo) GetByID(_ context.Context, cartID id.ID) (*cart.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.carts[cartID]
	if !ok {
		return nil, apperror.NewNotFound("cart", cartID.String())
	}
	return clone(c), nil
}

// FindActive implements cart.Repository.
func (r *CartRepo) FindActive(_ context.Context, ownerRef, txType string, now time.Time) (*cart.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *cart.Cart
	for _, c := range r.s.carts {
		if c.OwnerRef != ownerRef || string(c.TransactionType) != txType ||
			c.Status != cart.StatusActive || c.IsExpired(now) {
			continue
		}
		if found == nil || c.LastActivity.After(found.LastActivity) {
			found = c
		}
	}
	if found == nil {
		return nil, apperror.NewNotFound("cart", ownerRef)
	}
	return clone(found), nil
}

// Update implements cart.Repository.
func (r *CartRepo) Update(ctx context.Context, c *cart.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.carts[c.ID]
	if !ok {
		return apperror.NewNotFound("cart", c.ID.String())
	}
	if stored.Version != c.Version {
		return apperror.NewConcurrentModification("cart", c.ID.String())
	}
	c.Version++
	r.s.carts[c.ID] = clone(c)
	version := c.Version
	onRollback(ctx, func() {
		if cur, ok := r.s.carts[stored.ID]; ok && cur.Version == version {
			r.s.carts[stored.ID] = stored
		}
	})
	return nil
}

// DeleteExpired implements cart.Repository.
func (r *CartRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, c := range r.s.carts {
		if c.Status == cart.StatusActive && c.IsExpired(now) {
			delete(r.s.carts, k)
			n++
		}
	}
	return n, nil
}

// --- Transactions ---

// TransactionRepo implements transaction.Repository.
type TransactionRepo struct{ s *Store }

// Transactions returns the transaction repository view.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

// Create implements transaction.Repository.
func (r *TransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transactions[t.ID]; ok {
		return apperror.NewConflict("transaction already exists")
	}
	for _, v := range []string{t.TransactionID, t.TransactionNumber, t.TransactionRef} {
		if r.identifierExistsLocked(v) {
			return apperror.NewConflict("duplicate transaction identifier").WithDetail("value", v)
		}
	}
	if t.Version == 0 {
		t.Version = 1
	}
	r.s.transactions[t.ID] = clone(t)
	txID := t.ID
	onRollback(ctx, func() { delete(r.s.transactions, txID) })
	return nil
}

// Update implements transaction.Repository.
func (r *TransactionRepo) Update(ctx context.Context, t *transaction.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.transactions[t.ID]
	if !ok {
		return apperror.NewNotFound("transaction", t.ID.String())
	}
	if stored.Version != t.Version {
		return apperror.NewConcurrentModification("transaction", t.ID.String())
	}
	if stored.TransactionID != "" && stored.TransactionID != t.TransactionID {
		return apperror.NewConsistency("transaction", "transactionId is immutable")
	}
	t.Version++
	r.s.transactions[t.ID] = clone(t)
	version := t.Version
	onRollback(ctx, func() {
		if cur, ok := r.s.transactions[stored.ID]; ok && cur.Version == version {
			r.s.transactions[stored.ID] = stored
		}
	})
	return nil
}

// GetByID implements transaction.Repository.
func (r *TransactionRepo) GetByID(_ context.Context, txID id.ID) (*transaction.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transactions[txID]
	if !ok {
		return nil, apperror.NewNotFound("transaction", txID.String())
	}
	return clone(t), nil
}

// GetByTransactionID implements transaction.Repository.
func (r *TransactionRepo) GetByTransactionID(_ context.Context, transactionID string) (*transaction.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.transactions {
		if t.TransactionID == transactionID {
			return clone(t), nil
		}
	}
	return nil, apperror.NewNotFound("transaction", transactionID)
}

// List implements transaction.Repository.
func (r *TransactionRepo) List(_ context.Context, f transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*transaction.Transaction, 0)
	for _, t := range r.s.transactions {
		if matchesFilter(t, f) {
			matched = append(matched, t)
		}
	}
	desc := !strings.HasPrefix(f.OrderBy, "+") && f.OrderBy != "created_at" && f.OrderBy != "transaction_date"
	sort.Slice(matched, func(i, j int) bool {
		if desc {
			return matched[i].TransactionDate.After(matched[j].TransactionDate)
		}
		return matched[i].TransactionDate.Before(matched[j].TransactionDate)
	})

	result := domain.ListResult[*transaction.Transaction]{
		Items:      make([]*transaction.Transaction, 0),
		TotalCount: int64(len(matched)),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
	for i := f.Offset; i < len(matched) && (f.Limit <= 0 || i < f.Offset+f.Limit); i++ {
		result.Items = append(result.Items, clone(matched[i]))
	}
	return result, nil
}

func matchesFilter(t *transaction.Transaction, f transaction.ListFilter) bool {
	if f.OwnerRef != "" && t.OwnerRef != f.OwnerRef {
		return false
	}
	if f.BranchRef != "" && t.BranchRef != f.BranchRef {
		return false
	}
	if f.TransactionType != "" && string(t.TransactionType) != f.TransactionType {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if t.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.DateFrom != nil && t.TransactionDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !t.TransactionDate.Before(*f.DateTo) {
		return false
	}
	return true
}

// IdentifierExists implements transaction.Repository.
func (r *TransactionRepo) IdentifierExists(_ context.Context, value string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.identifierExistsLocked(value), nil
}

func (r *TransactionRepo) identifierExistsLocked(value string) bool {
	if value == "" {
		return false
	}
	for _, t := range r.s.transactions {
		if t.TransactionID == value || t.TransactionNumber == value || t.TransactionRef == value {
			return true
		}
	}
	return false
}

// --- Catalog ---

// PutMedicine inserts or replaces a catalog entry.
func (s *Store) PutMedicine(m catalog.Medicine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medicines[m.Ref] = clone(&m)
}

// Stock returns the current quantity of ref, or -1 if unknown.
func (s *Store) Stock(ref string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.medicines[ref]; ok {
		return m.Quantity
	}
	return -1
}

// FindProduct implements catalog.Catalog.
func (s *Store) FindProduct(_ context.Context, ref string) (*catalog.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.medicines[ref]
	if !ok {
		return nil, apperror.NewNotFound("product", ref)
	}
	return clone(m), nil
}

// AdjustQuantity implements catalog.Catalog.
func (s *Store) AdjustQuantity(_ context.Context, ref string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.medicines[ref]
	if !ok {
		return apperror.NewNotFound("product", ref)
	}
	m.Quantity += delta
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// DecrementIfAvailable implements catalog.Catalog.
func (s *Store) DecrementIfAvailable(_ context.Context, ref string, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.medicines[ref]
	if !ok {
		return false, apperror.NewNotFound("product", ref)
	}
	if m.Quantity < qty {
		return false, nil
	}
	m.Quantity -= qty
	m.UpdatedAt = time.Now().UTC()
	return true, nil
}

// --- Addresses ---

// PutAddress inserts or replaces an address.
func (s *Store) PutAddress(a address.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[a.Ref] = clone(&a)
}

// FindAddress implements address.Resolver.
func (s *Store) FindAddress(_ context.Context, ref string) (*address.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.addresses[ref]
	if !ok {
		return nil, apperror.NewNotFound("address", ref)
	}
	return clone(a), nil
}

// --- Payment methods ---

// Create implements paymentmethod.Repository.
func (s *Store) Create(_ context.Context, m *paymentmethod.StoredMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.methods[m.Ref]; ok {
		return apperror.NewConflict("payment method already exists")
	}
	cp := *m
	cp.SealedToken = append([]byte(nil), m.SealedToken...)
	s.methods[m.Ref] = &cp
	return nil
}

// GetByRef implements paymentmethod.Repository.
func (s *Store) GetByRef(_ context.Context, ref string) (*paymentmethod.StoredMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.methods[ref]
	if !ok {
		return nil, apperror.NewNotFound("payment_method", ref)
	}
	cp := *m
	return &cp, nil
}

// ListByOwner implements paymentmethod.Repository.
func (s *Store) ListByOwner(_ context.Context, ownerRef string) ([]*paymentmethod.StoredMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*paymentmethod.StoredMethod, 0)
	for _, m := range s.methods {
		if m.OwnerRef == ownerRef {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetActive implements paymentmethod.Repository.
func (s *Store) SetActive(_ context.Context, ref string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[ref]
	if !ok {
		return apperror.NewNotFound("payment_method", ref)
	}
	m.IsActive = active
	return nil
}

// --- Events & audit ---

// Publish implements events.Publisher.
func (s *Store) Publish(ctx context.Context, evts ...events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range evts {
		at := len(s.events)
		s.events = append(s.events, evt)
		onRollback(ctx, func() { s.events = append(s.events[:at], s.events[at+1:]...) })
	}
	return nil
}

// Events returns published events in order.
func (s *Store) Events() []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event(nil), s.events...)
}

// Record implements audit.Recorder.
func (s *Store) Record(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := len(s.auditLog)
	s.auditLog = append(s.auditLog, e)
	onRollback(ctx, func() { s.auditLog = append(s.auditLog[:at], s.auditLog[at+1:]...) })
	return nil
}

// AuditEntries returns recorded audit entries in order.
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry(nil), s.auditLog...)
}

// History implements audit.Reader.
func (s *Store) History(_ context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, 0)
	for i := len(s.auditLog) - 1; i >= 0 && len(out) < limit; i-- {
		if e := s.auditLog[i]; e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// TransactionCount returns the number of stored transactions.
func (s *Store) TransactionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions)
}
