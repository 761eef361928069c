package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the lifecycle state of a membership subscription
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionOverdue   SubscriptionStatus = "overdue"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionPending, SubscriptionOverdue, SubscriptionCancelled:
		return true
	}
	return false
}

// Subscription is a paid membership period for a single member.
// OrgID is not stored on the row; it is read from the member for scoping.
type Subscription struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	MemberID  uuid.UUID          `json:"member_id" db:"member_id"`
	OrgID     *uuid.UUID         `json:"-" db:"-"`
	StartDate time.Time          `json:"start_date" db:"start_date"`
	EndDate   time.Time          `json:"end_date" db:"end_date"`
	Amount    float64            `json:"amount" db:"amount"`
	Status    SubscriptionStatus `json:"status" db:"status"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Subscription model
func (Subscription) TableName() string {
	return "subscriptions"
}

// NewSubscription creates an active subscription
func NewSubscription(memberID uuid.UUID, start, end time.Time, amount float64) *Subscription {
	return &Subscription{
		ID:        uuid.New(),
		MemberID:  memberID,
		StartDate: start,
		EndDate:   end,
		Amount:    amount,
		Status:    SubscriptionActive,
		CreatedAt: time.Now(),
	}
}

// SubscriptionExportRow is a subscription joined with its member for tabular export
type SubscriptionExportRow struct {
	Subscription
	MemberName  string
	MemberEmail string
}

// SubscriptionAggregate counts subscriptions by status within an organization
type SubscriptionAggregate struct {
	TotalMembers       int `json:"total_members"`
	TotalSubscriptions int `json:"total_subscriptions"`
	Active             int `json:"active"`
	Overdue            int `json:"overdue"`
	Cancelled          int `json:"cancelled"`
	Pending            int `json:"pending"`
}
