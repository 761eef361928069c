package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType separates money in from money out
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known type
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// AccountingTransaction is a ledger line owned by an organization
type AccountingTransaction struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrgID           uuid.UUID       `json:"org_id" db:"org_id"`
	Date            time.Time       `json:"date" db:"txn_date"`
	Category        string          `json:"category" db:"category"`
	Description     *string         `json:"description,omitempty" db:"description"`
	Amount          float64         `json:"amount" db:"amount"`
	Account         string          `json:"account" db:"account"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	CreatedBy       *uuid.UUID      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AccountingTransaction model
func (AccountingTransaction) TableName() string {
	return "transactions"
}

// NewAccountingTransaction creates a ledger line recorded by createdBy
func NewAccountingTransaction(orgID uuid.UUID, date time.Time, category, account string, amount float64, typ TransactionType, createdBy uuid.UUID) *AccountingTransaction {
	return &AccountingTransaction{
		ID:              uuid.New(),
		OrgID:           orgID,
		Date:            date,
		Category:        category,
		Amount:          amount,
		Account:         account,
		TransactionType: typ,
		CreatedBy:       &createdBy,
		CreatedAt:       time.Now(),
	}
}

// IsCreatedBy reports whether userID recorded the transaction
func (t *AccountingTransaction) IsCreatedBy(userID uuid.UUID) bool {
	return t.CreatedBy != nil && *t.CreatedBy == userID
}

// IncomeExpense is an income/expense pair used by the report charts
type IncomeExpense struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// Add accumulates amount into the bucket matching typ
func (ie *IncomeExpense) Add(typ TransactionType, amount float64) {
	switch typ {
	case TransactionIncome:
		ie.Income += amount
	case TransactionExpense:
		ie.Expense += amount
	}
}
