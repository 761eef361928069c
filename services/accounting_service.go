package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// TransactionInput records a ledger line
type TransactionInput struct {
	OrgID       *uuid.UUID
	Date        time.Time
	Category    string
	Description *string
	Amount      float64
	Account     string
	Type        models.TransactionType
}

// TransactionUpdate changes the fields that are set
type TransactionUpdate struct {
	Date        *time.Time
	Category    *string
	Description *string
	Amount      *float64
	Account     *string
	Type        *models.TransactionType
}

// TransactionQuery filters a ledger listing
type TransactionQuery struct {
	Account  string
	Category string
	Type     models.TransactionType
	From     *time.Time
	To       *time.Time
	Skip     int
	Limit    int
}

// AccountingService manages an organization's income and expense ledger
type AccountingService struct {
	txns   repositories.AccountingRepository
	audit  AuditLogger
	logger *zap.Logger
}

// NewAccountingService creates a new AccountingService
func NewAccountingService(txns repositories.AccountingRepository, audit AuditLogger, logger *zap.Logger) *AccountingService {
	return &AccountingService{txns: txns, audit: audit, logger: logger}
}

// List returns ledger lines newest first. Actors limited to their own records only see lines they created.
func (s *AccountingService) List(ctx context.Context, actor *models.User, q TransactionQuery) ([]*models.AccountingTransaction, error) {
	filter, err := ledgerFilter(actor, q.From, q.To)
	if err != nil {
		return nil, err
	}
	if q.Type != "" && !q.Type.Valid() {
		return nil, ErrInvalidStatus.WithDetail("type", q.Type)
	}
	filter.Account = q.Account
	filter.Category = q.Category
	filter.Type = q.Type
	filter.Page = NewPage(q.Skip, q.Limit)

	txns, err := s.txns.List(ctx, filter)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return txns, nil
}

// Get returns a ledger line
func (s *AccountingService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.AccountingTransaction, error) {
	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrTransactionNotFound, nil)
	}
	if err := ScopeFor(actor).Check(txn.OrgID); err != nil {
		return nil, err
	}
	if err := checkOwnRecords(actor, txn.CreatedBy); err != nil {
		return nil, err
	}
	return txn, nil
}

// Create records a ledger line created by actor
func (s *AccountingService) Create(ctx context.Context, actor *models.User, in TransactionInput) (*models.AccountingTransaction, error) {
	orgID, err := ScopeFor(actor).ResolveOrg(in.OrgID)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, ErrInvalidStatus.WithDetail("transaction_type", in.Type)
	}

	txn := models.NewAccountingTransaction(orgID, in.Date, in.Category, in.Account, in.Amount, in.Type, actor.ID)
	txn.Description = in.Description

	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, fromRepo(err, nil, nil)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionTransactionSaved, "transaction").
		WithOrg(orgID).WithResource(txn.ID).
		WithDetails(map[string]interface{}{"amount": txn.Amount, "type": txn.TransactionType}))
	return txn, nil
}

// Update changes a ledger line
func (s *AccountingService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in TransactionUpdate) (*models.AccountingTransaction, error) {
	txn, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Date != nil {
		txn.Date = *in.Date
	}
	if in.Category != nil {
		txn.Category = *in.Category
	}
	if in.Description != nil {
		txn.Description = in.Description
	}
	if in.Amount != nil {
		txn.Amount = *in.Amount
	}
	if in.Account != nil {
		txn.Account = *in.Account
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, ErrInvalidStatus.WithDetail("transaction_type", *in.Type)
		}
		txn.TransactionType = *in.Type
	}

	if err := s.txns.Update(ctx, txn); err != nil {
		return nil, fromRepo(err, ErrTransactionNotFound, nil)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionTransactionSaved, "transaction").
		WithOrg(txn.OrgID).WithResource(txn.ID))
	return txn, nil
}

// Delete removes a ledger line
func (s *AccountingService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	txn, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.txns.Delete(ctx, id); err != nil {
		return fromRepo(err, ErrTransactionNotFound, nil)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionTransactionDeleted, "transaction").
		WithOrg(txn.OrgID).WithResource(id))
	return nil
}

// ledgerFilter builds the scope and ownership part of a ledger query
func ledgerFilter(actor *models.User, from, to *time.Time) (repositories.TransactionFilter, error) {
	if from != nil && to != nil && from.After(*to) {
		return repositories.TransactionFilter{}, ErrInvalidDateRange
	}
	orgID, err := ScopeFor(actor).OrgFilter(nil)
	if err != nil {
		return repositories.TransactionFilter{}, err
	}
	filter := repositories.TransactionFilter{OrgID: orgID, From: from, To: to}
	if !canSeeAllRecords(actor) {
		id := actor.ID
		filter.CreatedBy = &id
	}
	return filter, nil
}
