package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement state of a payment
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

// Valid reports whether s is a known status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentSuccess, PaymentPending, PaymentFailed:
		return true
	}
	return false
}

// Payment records money received against a subscription
type Payment struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	MemberID       *uuid.UUID    `json:"member_id,omitempty" db:"member_id"`
	SubscriptionID *uuid.UUID    `json:"subscription_id,omitempty" db:"subscription_id"`
	OrgID          *uuid.UUID    `json:"-" db:"-"`
	Amount         float64       `json:"amount" db:"amount"`
	PaymentDate    time.Time     `json:"payment_date" db:"payment_date"`
	Method         string        `json:"method" db:"method"`
	Status         PaymentStatus `json:"status" db:"status"`
	Reference      *string       `json:"reference,omitempty" db:"reference"`
}

// TableName returns the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a successful payment for a member's subscription
func NewPayment(memberID, subscriptionID uuid.UUID, amount float64, method string, date time.Time) *Payment {
	return &Payment{
		ID:             uuid.New(),
		MemberID:       &memberID,
		SubscriptionID: &subscriptionID,
		Amount:         amount,
		PaymentDate:    date,
		Method:         method,
		Status:         PaymentSuccess,
	}
}

// PaymentAggregate summarizes payments within an organization
type PaymentAggregate struct {
	TotalPayments int     `json:"total_payments"`
	TotalAmount   float64 `json:"total_amount"`
	NumPaid       int     `json:"num_paid"`
	NumPending    int     `json:"num_pending"`
	NumFailed     int     `json:"num_failed"`
}
