// Package entity defines data models for the Datatrans payment service.
package entity

import (
	"fmt"
	"time"
)

// PaymentStatus is the local lifecycle state of a payment attempt.
type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusAuthorized PaymentStatus = "authorized"
	StatusCaptured   PaymentStatus = "captured"
	StatusCancelled  PaymentStatus = "cancelled"
	StatusFailed     PaymentStatus = "failed"
)

// Final reports whether the status ends the checkout attempt. A final record
// is never committed again; repeated gateway notifications become no-ops.
func (s PaymentStatus) Final() bool {
	switch s {
	case StatusAuthorized, StatusCaptured, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// canTransition lists the allowed state changes. Pending can move to any
// terminal; an authorization can still be captured or cancelled.
func (s PaymentStatus) canTransition(to PaymentStatus) bool {
	switch s {
	case StatusPending, "":
		return to.Final()
	case StatusAuthorized:
		return to == StatusCaptured || to == StatusCancelled
	}
	return false
}

// Payment is the durable record of one checkout attempt. It is created in
// pending state before the customer is redirected and mutated exactly once,
// by Commit, when a terminal callback outcome arrives.
type Payment struct {
	RefNo    string `json:"refno" bson:"refno"`
	OrderID  string `json:"order_id" bson:"order_id"`
	Amount   int64  `json:"amount" bson:"amount"` // minor units
	Currency string `json:"currency" bson:"currency"`

	Status      PaymentStatus     `json:"status" bson:"status"`
	RemoteID    string            `json:"remote_id,omitempty" bson:"remote_id,omitempty"`
	RemoteState string            `json:"remote_state,omitempty" bson:"remote_state,omitempty"`
	Details     map[string]string `json:"details,omitempty" bson:"details,omitempty"`

	TimeCreated   time.Time `json:"time_created" bson:"time_created"`
	TimeCommitted time.Time `json:"time_committed,omitempty" bson:"time_committed,omitempty"`
}

// NewPayment creates a pending payment record for an order.
func NewPayment(orderID string, amount int64, currency string, at time.Time) *Payment {
	return &Payment{
		RefNo:       orderID,
		OrderID:     orderID,
		Amount:      amount,
		Currency:    currency,
		Status:      StatusPending,
		TimeCreated: at,
	}
}

// Commit applies a terminal state transition. It is the only mutation point
// for a payment record: status, remote transaction id, remote state and the
// commit timestamp are set together so no partial write is ever persisted.
func (p *Payment) Commit(to PaymentStatus, remoteID, remoteState string, at time.Time) error {
	if !p.Status.canTransition(to) {
		return fmt.Errorf("payment %s: transition %s -> %s not allowed", p.RefNo, p.Status, to)
	}
	p.Status = to
	p.RemoteID = remoteID
	p.RemoteState = remoteState
	p.TimeCommitted = at
	return nil
}

// MergeDetails copies callback detail fields into the record, keeping values
// already present.
func (p *Payment) MergeDetails(details map[string]string) {
	if len(details) == 0 {
		return
	}
	if p.Details == nil {
		p.Details = make(map[string]string, len(details))
	}
	for key, value := range details {
		if _, ok := p.Details[key]; !ok {
			p.Details[key] = value
		}
	}
}

// Order is the host-side view of what has to be paid. Pricing and catalog
// are owned by the caller; only the identifier, total and currency matter here.
type Order struct {
	ID       string `json:"order_id"`
	Total    string `json:"total"` // decimal, e.g. "12.34"
	Currency string `json:"currency"`
}
