package transaction

import (
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/address"
)

// DeliveryOption is how the order leaves the pharmacy.
type DeliveryOption string

const (
	DeliveryOptionPickup   DeliveryOption = "pickup"
	DeliveryOptionDelivery DeliveryOption = "delivery"
)

// DeliveryStatus is the delivery sub-state.
type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "pending"
	DeliveryConfirmed      DeliveryStatus = "confirmed"
	DeliveryPreparing      DeliveryStatus = "preparing"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryCancelled      DeliveryStatus = "cancelled"
	DeliveryFailed         DeliveryStatus = "failed"

	// DeliveryNotApplicable marks pickup orders.
	DeliveryNotApplicable DeliveryStatus = "not_applicable"
)

// EstimatedDeliveryWindow is added to the order time for the delivery estimate.
const EstimatedDeliveryWindow = 24 * time.Hour

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryPending:        {DeliveryConfirmed, DeliveryCancelled},
	DeliveryConfirmed:      {DeliveryPreparing, DeliveryCancelled},
	DeliveryPreparing:      {DeliveryOutForDelivery, DeliveryCancelled},
	DeliveryOutForDelivery: {DeliveryDelivered, DeliveryFailed, DeliveryCancelled},
	DeliveryDelivered:      {},
	DeliveryCancelled:      {},
	DeliveryFailed:         {DeliveryCancelled},
}

func (s DeliveryStatus) valid() bool {
	_, ok := deliveryTransitions[s]
	return ok
}

// ValidateTransition reports whether from -> to is in the transition table.
// Self transitions are not.
func ValidateTransition(from, to DeliveryStatus) bool {
	for _, next := range deliveryTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Delivery is the fulfilment sub-record.
type Delivery struct {
	Option            DeliveryOption   `json:"option"`
	Status            DeliveryStatus   `json:"status"`
	Fee               types.Money      `json:"fee"`
	AddressRef        string           `json:"addressRef,omitempty"`
	Address           *address.Address `json:"address,omitempty"`
	EstimatedDelivery *time.Time       `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time       `json:"actualDelivery,omitempty"`
}

// PickupDelivery is the default sub-record for walk-in sales.
func PickupDelivery() Delivery {
	return Delivery{
		Option: DeliveryOptionPickup,
		Status: DeliveryNotApplicable,
		Fee:    types.Zero(),
	}
}

// SetPickup switches the transaction to pickup, clearing fee and address.
func (t *Transaction) SetPickup() {
	t.Delivery = PickupDelivery()
	t.RecomputeDerivedFields()
}

// SetDelivery switches the transaction to home delivery. addr may be nil when
// the reference could not be resolved; the fee still applies.
func (t *Transaction) SetDelivery(fee types.Money, addressRef string, addr *address.Address, now time.Time) {
	eta := now.UTC().Add(EstimatedDeliveryWindow)
	t.Delivery = Delivery{
		Option:            DeliveryOptionDelivery,
		Status:            DeliveryPending,
		Fee:               types.Round(fee),
		AddressRef:        addressRef,
		Address:           addr,
		EstimatedDelivery: &eta,
	}
	t.RecomputeDerivedFields()
}

// UpdateDeliveryStatus moves the delivery sub-state along the table.
func (t *Transaction) UpdateDeliveryStatus(to DeliveryStatus, now time.Time) error {
	if t.Delivery.Option != DeliveryOptionDelivery {
		return apperror.NewStateError(apperror.CodeInvalidTransition, "transaction has no delivery").
			WithDetail("transaction_id", t.TransactionID)
	}
	if !ValidateTransition(t.Delivery.Status, to) {
		return apperror.NewInvalidTransition(string(t.Delivery.Status), string(to)).
			WithDetail("transaction_id", t.TransactionID)
	}
	t.Delivery.Status = to
	if to == DeliveryDelivered {
		ts := now.UTC()
		t.Delivery.ActualDelivery = &ts
	}
	return nil
}
