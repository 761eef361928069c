package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services/export"
	"go.uber.org/zap"
)

// SubscriptionInput creates a subscription. Status defaults to active.
type SubscriptionInput struct {
	MemberID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Amount    float64
	Status    models.SubscriptionStatus
}

// SubscriptionDetail is a subscription with its payment history
type SubscriptionDetail struct {
	*models.Subscription
	Payments []*models.Payment `json:"payments"`
}

// SubscriptionService manages membership subscriptions
type SubscriptionService struct {
	subs     repositories.SubscriptionRepository
	payments repositories.PaymentRepository
	users    repositories.UserRepository
	audit    AuditLogger
	logger   *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(repos *repositories.Repositories, audit AuditLogger, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		subs:     repos.Subscriptions,
		payments: repos.Payments,
		users:    repos.Users,
		audit:    audit,
		logger:   logger,
	}
}

// Create opens a subscription for a member
func (s *SubscriptionService) Create(ctx context.Context, actor *models.User, in SubscriptionInput) (*models.Subscription, error) {
	member, err := loadMember(ctx, s.users, actor, in.MemberID)
	if err != nil {
		return nil, err
	}
	if in.StartDate.After(in.EndDate) {
		return nil, ErrInvalidDateRange
	}

	sub := models.NewSubscription(member.ID, in.StartDate, in.EndDate, in.Amount)
	sub.OrgID = member.OrgID
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus.WithDetail("status", in.Status)
		}
		sub.Status = in.Status
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fromRepo(err, nil, nil)
	}

	s.logger.Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("member_id", member.ID.String()))
	s.recordSaved(ctx, actor, sub, "created")
	return sub, nil
}

// Get returns a subscription with its payments
func (s *SubscriptionService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*SubscriptionDetail, error) {
	sub, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListBySubscription(ctx, id)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return &SubscriptionDetail{Subscription: sub, Payments: payments}, nil
}

// Renew moves the end date and reactivates the subscription
func (s *SubscriptionService) Renew(ctx context.Context, actor *models.User, id uuid.UUID, newEnd time.Time) (*models.Subscription, error) {
	sub, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if newEnd.Before(sub.StartDate) {
		return nil, ErrInvalidDateRange
	}
	sub.EndDate = newEnd
	sub.Status = models.SubscriptionActive
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, fromRepo(err, ErrSubscriptionNotFound, nil)
	}

	s.recordSaved(ctx, actor, sub, "renewed")
	return sub, nil
}

// Cancel marks the subscription cancelled
func (s *SubscriptionService) Cancel(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionCancelled
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, fromRepo(err, ErrSubscriptionNotFound, nil)
	}

	s.recordSaved(ctx, actor, sub, "cancelled")
	return sub, nil
}

// ListByMember returns a member's subscriptions. Members can only list their own.
func (s *SubscriptionService) ListByMember(ctx context.Context, actor *models.User, memberID uuid.UUID) ([]*models.Subscription, error) {
	if err := checkOwnRecords(actor, &memberID); err != nil {
		return nil, err
	}
	if _, err := loadMember(ctx, s.users, actor, memberID); err != nil {
		return nil, err
	}
	subs, err := s.subs.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return subs, nil
}

// ListByOrg returns an organization's subscriptions, optionally by status.
// Actors limited to their own records only get their own rows back.
func (s *SubscriptionService) ListByOrg(ctx context.Context, actor *models.User, orgID uuid.UUID, status *models.SubscriptionStatus) ([]*models.Subscription, error) {
	if err := ScopeFor(actor).Check(orgID); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, ErrInvalidStatus.WithDetail("status", *status)
	}
	subs, err := s.subs.ListByOrg(ctx, orgID, status)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	if canSeeAllRecords(actor) {
		return subs, nil
	}
	own := make([]*models.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.MemberID == actor.ID {
			own = append(own, sub)
		}
	}
	return own, nil
}

// Aggregate counts an organization's members and subscriptions by status
func (s *SubscriptionService) Aggregate(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.SubscriptionAggregate, error) {
	if err := checkOrgRecords(actor, orgID); err != nil {
		return nil, err
	}
	agg, err := s.subs.Aggregate(ctx, orgID)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return agg, nil
}

// Export writes an organization's subscriptions with member names to w
func (s *SubscriptionService) Export(ctx context.Context, actor *models.User, orgID uuid.UUID, format export.Format, w io.Writer) error {
	if err := checkOrgRecords(actor, orgID); err != nil {
		return err
	}
	rows, err := s.subs.ListForExport(ctx, orgID)
	if err != nil {
		return fromRepo(err, nil, nil)
	}

	table := &export.Table{Header: []string{
		"Member ID", "Member Name", "Email", "Subscription Start", "Subscription End", "Amount", "Status",
	}}
	for _, r := range rows {
		table.Append(
			r.MemberID.String(),
			r.MemberName,
			r.MemberEmail,
			export.Date(r.StartDate),
			export.Date(r.EndDate),
			export.Money(r.Amount),
			string(r.Status),
		)
	}
	return export.Write(w, format, table)
}

func (s *SubscriptionService) load(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrSubscriptionNotFound, nil)
	}
	if err := ScopeFor(actor).CheckOptional(sub.OrgID); err != nil {
		return nil, err
	}
	if err := checkOwnRecords(actor, &sub.MemberID); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) recordSaved(ctx context.Context, actor *models.User, sub *models.Subscription, change string) {
	entry := models.NewAuditLog(actor, models.AuditActionSubscriptionSaved, "subscription").
		WithResource(sub.ID).
		WithDetails(map[string]string{"change": change, "status": string(sub.Status)})
	if sub.OrgID != nil {
		entry.WithOrg(*sub.OrgID)
	}
	record(ctx, s.audit, entry)
}

// loadMember fetches a member the actor may act on
func loadMember(ctx context.Context, users repositories.UserRepository, actor *models.User, memberID uuid.UUID) (*models.User, error) {
	member, err := users.GetByID(ctx, memberID)
	if err != nil {
		return nil, fromRepo(err, ErrMemberNotFound, nil)
	}
	if member.ID == actor.ID {
		return member, nil
	}
	if err := ScopeFor(actor).CheckOptional(member.OrgID); err != nil {
		return nil, err
	}
	return member, nil
}

// canSeeAllRecords reports whether actor may read other members' financial records
func canSeeAllRecords(actor *models.User) bool {
	return rbac.Can(actor.RoleNames(), rbac.RecordsAll)
}

// checkOwnRecords fails unless the record owned by ownerID is the actor's or actor may see all records
func checkOwnRecords(actor *models.User, ownerID *uuid.UUID) error {
	if canSeeAllRecords(actor) {
		return nil
	}
	if ownerID == nil || *ownerID != actor.ID {
		return ErrForbidden
	}
	return nil
}

// checkOrgRecords guards organization-wide summaries and exports
func checkOrgRecords(actor *models.User, orgID uuid.UUID) error {
	if err := ScopeFor(actor).Check(orgID); err != nil {
		return err
	}
	if !canSeeAllRecords(actor) {
		return ErrForbidden
	}
	return nil
}
