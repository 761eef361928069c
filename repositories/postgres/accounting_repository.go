package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

const transactionSelect = `
	SELECT id, org_id, txn_date, category, description, amount, account, transaction_type, created_by, created_at
	FROM transactions`

// AccountingRepository implements the repositories.AccountingRepository interface
type AccountingRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAccountingRepository creates a new accounting repository
func NewAccountingRepository(db *DB, logger *zap.Logger) repositories.AccountingRepository {
	return &AccountingRepository{db: db, logger: logger}
}

// Create records a ledger line
func (r *AccountingRepository) Create(ctx context.Context, txn *models.AccountingTransaction) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, `
		INSERT INTO transactions (id, org_id, txn_date, category, description, amount, account,
		                          transaction_type, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		txn.ID,
		txn.OrgID,
		txn.Date,
		txn.Category,
		txn.Description,
		txn.Amount,
		txn.Account,
		txn.TransactionType,
		txn.CreatedBy,
		txn.CreatedAt,
	)
	if err != nil {
		return mapError("failed to create transaction", err)
	}

	r.logger.Debug("transaction created", zap.String("id", txn.ID.String()), zap.String("org_id", txn.OrgID.String()))
	return nil
}

// GetByID retrieves a ledger line by ID
func (r *AccountingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AccountingTransaction, error) {
	executor := GetExecutor(ctx, r.db)
	txn, err := scanTransaction(executor.QueryRowContext(ctx, transactionSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("failed to get transaction", err)
	}
	return txn, nil
}

// List retrieves ledger lines matching the filter, newest first
func (r *AccountingRepository) List(ctx context.Context, filter repositories.TransactionFilter) ([]*models.AccountingTransaction, error) {
	q := newSelect(transactionSelect)
	if filter.OrgID != nil {
		q.where("org_id = ?", *filter.OrgID)
	}
	if filter.CreatedBy != nil {
		q.where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Account != "" {
		q.where("account = ?", filter.Account)
	}
	if filter.Category != "" {
		q.where("category = ?", filter.Category)
	}
	if filter.Type != "" {
		q.where("transaction_type = ?", filter.Type)
	}
	if filter.From != nil {
		q.where("txn_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q.where("txn_date <= ?", *filter.To)
	}
	q.orderBy("txn_date DESC, created_at DESC")
	q.paginate(filter.Page)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.AccountingTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txns, nil
}

// Update updates a ledger line
func (r *AccountingRepository) Update(ctx context.Context, txn *models.AccountingTransaction) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `
		UPDATE transactions
		SET txn_date = $2, category = $3, description = $4, amount = $5, account = $6, transaction_type = $7
		WHERE id = $1`,
		txn.ID,
		txn.Date,
		txn.Category,
		txn.Description,
		txn.Amount,
		txn.Account,
		txn.TransactionType,
	)
	if err != nil {
		return mapError("failed to update transaction", err)
	}
	return requireAffected("transaction not found", result)
}

// Delete deletes a ledger line
func (r *AccountingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return mapError("failed to delete transaction", err)
	}
	return requireAffected("transaction not found", result)
}

func scanTransaction(row rowScanner) (*models.AccountingTransaction, error) {
	txn := &models.AccountingTransaction{}
	err := row.Scan(
		&txn.ID,
		&txn.OrgID,
		&txn.Date,
		&txn.Category,
		&txn.Description,
		&txn.Amount,
		&txn.Account,
		&txn.TransactionType,
		&txn.CreatedBy,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return txn, nil
}
