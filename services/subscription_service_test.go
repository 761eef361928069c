package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/services/export"
	"go.uber.org/zap"
)

func TestSubscriptionService_Create(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	admin := newActor(&orgID, rbac.RoleBranchAdmin)
	member := newActor(&orgID, rbac.RoleMember)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	repos := newMockRepos()
	repos.users.On("GetByID", mock.Anything, member.ID).Return(member, nil)
	repos.subs.On("Create", mock.Anything, mock.Anything).Return(nil)
	audit := &recordingAudit{}
	svc := NewSubscriptionService(repos.repositories(), audit, zap.NewNop())

	sub, err := svc.Create(ctx, admin, SubscriptionInput{MemberID: member.ID, StartDate: start, EndDate: end, Amount: 120})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, &orgID, sub.OrgID)
	assert.Equal(t, []models.AuditAction{models.AuditActionSubscriptionSaved}, audit.actions())

	_, err = svc.Create(ctx, admin, SubscriptionInput{MemberID: member.ID, StartDate: end, EndDate: start})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.Create(ctx, admin, SubscriptionInput{MemberID: member.ID, StartDate: start, EndDate: end, Status: "paused"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSubscriptionService_OwnRecords(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	member := newActor(&orgID, rbac.RoleMember)
	neighbour := newActor(&orgID, rbac.RoleMember)

	mine := models.NewSubscription(member.ID, time.Now(), time.Now().AddDate(1, 0, 0), 50)
	mine.OrgID = &orgID
	theirs := models.NewSubscription(neighbour.ID, time.Now(), time.Now().AddDate(1, 0, 0), 50)
	theirs.OrgID = &orgID

	repos := newMockRepos()
	repos.users.On("GetByID", mock.Anything, member.ID).Return(member, nil)
	repos.subs.On("GetByID", mock.Anything, mine.ID).Return(mine, nil)
	repos.subs.On("GetByID", mock.Anything, theirs.ID).Return(theirs, nil)
	repos.subs.On("ListByMember", mock.Anything, member.ID).Return([]*models.Subscription{mine}, nil)
	repos.subs.On("ListByOrg", mock.Anything, orgID, (*models.SubscriptionStatus)(nil)).
		Return([]*models.Subscription{mine, theirs}, nil)
	repos.payments.On("ListBySubscription", mock.Anything, mine.ID).Return([]*models.Payment{}, nil)
	svc := NewSubscriptionService(repos.repositories(), NopAuditLogger{}, zap.NewNop())

	detail, err := svc.Get(ctx, member, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, detail.ID)

	_, err = svc.Get(ctx, member, theirs.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	subs, err := svc.ListByMember(ctx, member, member.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	_, err = svc.ListByMember(ctx, member, neighbour.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	subs, err = svc.ListByOrg(ctx, member, orgID, nil)
	require.NoError(t, err)
	assert.Equal(t, []*models.Subscription{mine}, subs)

	admin := newActor(&orgID, rbac.RoleBranchAdmin)
	subs, err = svc.ListByOrg(ctx, admin, orgID, nil)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = svc.Aggregate(ctx, member, orgID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubscriptionService_RenewAndCancel(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	admin := newActor(&orgID, rbac.RoleBranchAdmin)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sub := models.NewSubscription(uuid.New(), start, start.AddDate(1, 0, 0), 50)
	sub.OrgID = &orgID
	sub.Status = models.SubscriptionOverdue

	repos := newMockRepos()
	repos.subs.On("GetByID", mock.Anything, sub.ID).Return(sub, nil)
	repos.subs.On("Update", mock.Anything, sub).Return(nil)
	svc := NewSubscriptionService(repos.repositories(), NopAuditLogger{}, zap.NewNop())

	newEnd := start.AddDate(2, 0, 0)
	renewed, err := svc.Renew(ctx, admin, sub.ID, newEnd)
	require.NoError(t, err)
	assert.Equal(t, newEnd, renewed.EndDate)
	assert.Equal(t, models.SubscriptionActive, renewed.Status)

	_, err = svc.Renew(ctx, admin, sub.ID, start.AddDate(-1, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	cancelled, err := svc.Cancel(ctx, admin, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, cancelled.Status)
}

func TestSubscriptionService_Export(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	memberID := uuid.New()

	row := &models.SubscriptionExportRow{
		Subscription: *models.NewSubscription(memberID,
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), 120),
		MemberName:  "Asha Rao",
		MemberEmail: "asha@example.org",
	}

	repos := newMockRepos()
	repos.subs.On("ListForExport", mock.Anything, orgID).Return([]*models.SubscriptionExportRow{row}, nil)
	svc := NewSubscriptionService(repos.repositories(), NopAuditLogger{}, zap.NewNop())

	var buf bytes.Buffer
	err := svc.Export(ctx, newActor(&orgID, rbac.RoleBranchAdmin), orgID, export.CSV, &buf)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Member ID,Member Name,Email,Subscription Start,Subscription End,Amount,Status", lines[0])
	assert.Equal(t, memberID.String()+",Asha Rao,asha@example.org,2026-01-01,2026-12-31,120.00,active", lines[1])

	err = svc.Export(ctx, newActor(&orgID, rbac.RoleMember), orgID, export.CSV, &buf)
	assert.ErrorIs(t, err, ErrForbidden)
}
