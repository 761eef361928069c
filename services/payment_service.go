package services

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services/export"
	"go.uber.org/zap"
)

// PaymentInput records a payment. PaymentDate defaults to now, Status to success and
// Reference to a generated ULID.
type PaymentInput struct {
	MemberID       uuid.UUID
	SubscriptionID uuid.UUID
	Amount         float64
	PaymentDate    *time.Time
	Method         string
	Status         models.PaymentStatus
	Reference      *string
}

// PaymentService records payments against subscriptions
type PaymentService struct {
	payments repositories.PaymentRepository
	subs     repositories.SubscriptionRepository
	users    repositories.UserRepository
	audit    AuditLogger
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(repos *repositories.Repositories, audit AuditLogger, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		payments: repos.Payments,
		subs:     repos.Subscriptions,
		users:    repos.Users,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Record stores a payment for a member's subscription
func (s *PaymentService) Record(ctx context.Context, actor *models.User, in PaymentInput) (*models.Payment, error) {
	member, err := loadMember(ctx, s.users, actor, in.MemberID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subs.GetByID(ctx, in.SubscriptionID)
	if err != nil {
		return nil, fromRepo(err, ErrSubscriptionNotFound, nil)
	}
	if sub.MemberID != member.ID {
		return nil, ErrSubscriptionMismatch
	}

	date := s.now()
	if in.PaymentDate != nil {
		date = *in.PaymentDate
	}
	payment := models.NewPayment(member.ID, sub.ID, in.Amount, in.Method, date)
	payment.OrgID = member.OrgID
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus.WithDetail("status", in.Status)
		}
		payment.Status = in.Status
	}
	if in.Reference != nil && *in.Reference != "" {
		payment.Reference = in.Reference
	} else {
		ref, err := s.newReference()
		if err != nil {
			return nil, WrapInternal("failed to generate payment reference", err)
		}
		payment.Reference = &ref
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fromRepo(err, nil, nil)
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("status", string(payment.Status)))
	s.recordPayment(ctx, actor, payment)
	return payment, nil
}

// UpdateStatus changes the settlement state of a payment
func (s *PaymentService) UpdateStatus(ctx context.Context, actor *models.User, id uuid.UUID, status models.PaymentStatus) (*models.Payment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus.WithDetail("status", status)
	}
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrPaymentNotFound, nil)
	}
	if err := ScopeFor(actor).CheckOptional(payment.OrgID); err != nil {
		return nil, err
	}
	if err := s.payments.UpdateStatus(ctx, id, status); err != nil {
		return nil, fromRepo(err, ErrPaymentNotFound, nil)
	}
	payment.Status = status

	s.recordPayment(ctx, actor, payment)
	return payment, nil
}

// ListByMember returns a member's payments. Members can only list their own.
func (s *PaymentService) ListByMember(ctx context.Context, actor *models.User, memberID uuid.UUID) ([]*models.Payment, error) {
	if err := checkOwnRecords(actor, &memberID); err != nil {
		return nil, err
	}
	if _, err := loadMember(ctx, s.users, actor, memberID); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return payments, nil
}

// ListBySubscription returns the payments made against a subscription
func (s *PaymentService) ListBySubscription(ctx context.Context, actor *models.User, subscriptionID uuid.UUID) ([]*models.Payment, error) {
	sub, err := s.subs.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, fromRepo(err, ErrSubscriptionNotFound, nil)
	}
	if err := ScopeFor(actor).CheckOptional(sub.OrgID); err != nil {
		return nil, err
	}
	if err := checkOwnRecords(actor, &sub.MemberID); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return payments, nil
}

// ListByOrg returns an organization's payments.
// Actors limited to their own records only get their own rows back.
func (s *PaymentService) ListByOrg(ctx context.Context, actor *models.User, orgID uuid.UUID) ([]*models.Payment, error) {
	if err := ScopeFor(actor).Check(orgID); err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	if canSeeAllRecords(actor) {
		return payments, nil
	}
	own := make([]*models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.MemberID != nil && *p.MemberID == actor.ID {
			own = append(own, p)
		}
	}
	return own, nil
}

// Aggregate summarizes an organization's payments
func (s *PaymentService) Aggregate(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.PaymentAggregate, error) {
	if err := checkOrgRecords(actor, orgID); err != nil {
		return nil, err
	}
	agg, err := s.payments.Aggregate(ctx, orgID)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return agg, nil
}

// Export writes an organization's payments to w
func (s *PaymentService) Export(ctx context.Context, actor *models.User, orgID uuid.UUID, format export.Format, w io.Writer) error {
	if err := checkOrgRecords(actor, orgID); err != nil {
		return err
	}
	payments, err := s.payments.ListByOrg(ctx, orgID)
	if err != nil {
		return fromRepo(err, nil, nil)
	}

	table := &export.Table{Header: []string{
		"Payment ID", "Member ID", "Amount", "Date", "Method", "Status", "Subscription ID", "Reference",
	}}
	for _, p := range payments {
		table.Append(
			p.ID.String(),
			export.OptionalID(p.MemberID),
			export.Money(p.Amount),
			export.Date(p.PaymentDate),
			p.Method,
			string(p.Status),
			export.OptionalID(p.SubscriptionID),
			export.Optional(p.Reference),
		)
	}
	return export.Write(w, format, table)
}

// newReference returns a ULID so references sort by the time they were recorded
func (s *PaymentService) newReference() (string, error) {
	id, err := ulid.New(ulid.Timestamp(s.now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *PaymentService) recordPayment(ctx context.Context, actor *models.User, p *models.Payment) {
	entry := models.NewAuditLog(actor, models.AuditActionPaymentRecorded, "payment").
		WithResource(p.ID).
		WithDetails(map[string]interface{}{"amount": p.Amount, "status": p.Status})
	if p.OrgID != nil {
		entry.WithOrg(*p.OrgID)
	}
	record(ctx, s.audit, entry)
}
