package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// paymentSelect resolves the owning org through the paying member
const paymentSelect = `
	SELECT p.id, p.member_id, p.subscription_id, u.org_id, p.amount, p.payment_date, p.method, p.status, p.reference
	FROM payments p
	LEFT JOIN users u ON u.id = p.member_id`

// PaymentRepository implements the repositories.PaymentRepository interface
type PaymentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *DB, logger *zap.Logger) repositories.PaymentRepository {
	return &PaymentRepository{db: db, logger: logger}
}

// Create records a payment
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, `
		INSERT INTO payments (id, member_id, subscription_id, amount, payment_date, method, status, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		payment.ID,
		payment.MemberID,
		payment.SubscriptionID,
		payment.Amount,
		payment.PaymentDate,
		payment.Method,
		payment.Status,
		payment.Reference,
	)
	if err != nil {
		return mapError("failed to create payment", err)
	}

	r.logger.Debug("payment created", zap.String("id", payment.ID.String()))
	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	executor := GetExecutor(ctx, r.db)
	payment, err := scanPayment(executor.QueryRowContext(ctx, paymentSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, mapError("failed to get payment", err)
	}
	return payment, nil
}

// ListByMember retrieves a member's payments, newest first
func (r *PaymentRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Payment, error) {
	return r.list(ctx, paymentSelect+` WHERE p.member_id = $1 ORDER BY p.payment_date DESC`, memberID)
}

// ListBySubscription retrieves the payment history of a subscription
func (r *PaymentRepository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*models.Payment, error) {
	return r.list(ctx, paymentSelect+` WHERE p.subscription_id = $1 ORDER BY p.payment_date DESC`, subscriptionID)
}

// ListByOrg retrieves payments made by an organization's members
func (r *PaymentRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Payment, error) {
	return r.list(ctx, paymentSelect+` WHERE u.org_id = $1 ORDER BY p.payment_date DESC`, orgID)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Payment, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}

// Aggregate summarizes an organization's payments by status
func (r *PaymentRepository) Aggregate(ctx context.Context, orgID uuid.UUID) (*models.PaymentAggregate, error) {
	query := `
		SELECT COUNT(p.id),
		       COALESCE(SUM(p.amount), 0),
		       COUNT(p.id) FILTER (WHERE p.status = 'success'),
		       COUNT(p.id) FILTER (WHERE p.status = 'pending'),
		       COUNT(p.id) FILTER (WHERE p.status = 'failed')
		FROM payments p
		JOIN users u ON u.id = p.member_id
		WHERE u.org_id = $1
	`

	agg := &models.PaymentAggregate{}
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query, orgID).Scan(
		&agg.TotalPayments,
		&agg.TotalAmount,
		&agg.NumPaid,
		&agg.NumPending,
		&agg.NumFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	return agg, nil
}

// UpdateStatus changes a payment's status
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `UPDATE payments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return mapError("failed to update payment status", err)
	}
	if err := requireAffected("payment not found", result); err != nil {
		return err
	}

	r.logger.Debug("payment status updated", zap.String("id", id.String()), zap.String("status", string(status)))
	return nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	payment := &models.Payment{}
	err := row.Scan(
		&payment.ID,
		&payment.MemberID,
		&payment.SubscriptionID,
		&payment.OrgID,
		&payment.Amount,
		&payment.PaymentDate,
		&payment.Method,
		&payment.Status,
		&payment.Reference,
	)
	if err != nil {
		return nil, err
	}
	return payment, nil
}
