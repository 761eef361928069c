package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// subscriptionSelect joins the member so the owning org is known for scoping
const subscriptionSelect = `
	SELECT s.id, s.member_id, u.org_id, s.start_date, s.end_date, s.amount, s.status, s.created_at
	FROM subscriptions s
	JOIN users u ON u.id = s.member_id`

// SubscriptionRepository implements the repositories.SubscriptionRepository interface
type SubscriptionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *DB, logger *zap.Logger) repositories.SubscriptionRepository {
	return &SubscriptionRepository{db: db, logger: logger}
}

// Create creates a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, `
		INSERT INTO subscriptions (id, member_id, start_date, end_date, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.MemberID, sub.StartDate, sub.EndDate, sub.Amount, sub.Status, sub.CreatedAt,
	)
	if err != nil {
		return mapError("failed to create subscription", err)
	}

	r.logger.Debug("subscription created", zap.String("id", sub.ID.String()), zap.String("member_id", sub.MemberID.String()))
	return nil
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	executor := GetExecutor(ctx, r.db)
	sub, err := scanSubscription(executor.QueryRowContext(ctx, subscriptionSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, mapError("failed to get subscription", err)
	}
	return sub, nil
}

// ListByMember retrieves a member's subscriptions, newest first
func (r *SubscriptionRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Subscription, error) {
	return r.list(ctx, subscriptionSelect+` WHERE s.member_id = $1 ORDER BY s.start_date DESC`, memberID)
}

// ListByOrg retrieves subscriptions of an organization's members, optionally by status
func (r *SubscriptionRepository) ListByOrg(ctx context.Context, orgID uuid.UUID, status *models.SubscriptionStatus) ([]*models.Subscription, error) {
	q := newSelect(subscriptionSelect)
	q.where("u.org_id = ?", orgID)
	if status != nil {
		q.where("s.status = ?", *status)
	}
	q.orderBy("s.start_date DESC")
	return r.list(ctx, q.String(), q.args...)
}

func (r *SubscriptionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Subscription, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}
	return subs, nil
}

// ListForExport retrieves an organization's subscriptions with member name and email
func (r *SubscriptionRepository) ListForExport(ctx context.Context, orgID uuid.UUID) ([]*models.SubscriptionExportRow, error) {
	query := `
		SELECT s.id, s.member_id, u.org_id, s.start_date, s.end_date, s.amount, s.status, s.created_at,
		       u.first_name || ' ' || u.last_name, u.email
		FROM subscriptions s
		JOIN users u ON u.id = s.member_id
		WHERE u.org_id = $1
		ORDER BY u.last_name, u.first_name, s.start_date
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*models.SubscriptionExportRow
	for rows.Next() {
		row := &models.SubscriptionExportRow{}
		err := rows.Scan(
			&row.ID, &row.MemberID, &row.OrgID, &row.StartDate, &row.EndDate,
			&row.Amount, &row.Status, &row.CreatedAt,
			&row.MemberName, &row.MemberEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}
	return out, nil
}

// Aggregate counts an organization's members and their subscriptions by status
func (r *SubscriptionRepository) Aggregate(ctx context.Context, orgID uuid.UUID) (*models.SubscriptionAggregate, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE org_id = $1),
			COUNT(s.id),
			COUNT(s.id) FILTER (WHERE s.status = 'active'),
			COUNT(s.id) FILTER (WHERE s.status = 'overdue'),
			COUNT(s.id) FILTER (WHERE s.status = 'cancelled'),
			COUNT(s.id) FILTER (WHERE s.status = 'pending')
		FROM subscriptions s
		JOIN users u ON u.id = s.member_id
		WHERE u.org_id = $1
	`

	agg := &models.SubscriptionAggregate{}
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query, orgID).Scan(
		&agg.TotalMembers,
		&agg.TotalSubscriptions,
		&agg.Active,
		&agg.Overdue,
		&agg.Cancelled,
		&agg.Pending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate subscriptions: %w", err)
	}
	return agg, nil
}

// Update updates dates, amount and status
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `
		UPDATE subscriptions
		SET start_date = $2, end_date = $3, amount = $4, status = $5
		WHERE id = $1`,
		sub.ID, sub.StartDate, sub.EndDate, sub.Amount, sub.Status,
	)
	if err != nil {
		return mapError("failed to update subscription", err)
	}
	if err := requireAffected("subscription not found", result); err != nil {
		return err
	}

	r.logger.Debug("subscription updated", zap.String("id", sub.ID.String()), zap.String("status", string(sub.Status)))
	return nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.MemberID,
		&sub.OrgID,
		&sub.StartDate,
		&sub.EndDate,
		&sub.Amount,
		&sub.Status,
		&sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
