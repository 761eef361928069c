package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/membership-backend/auth"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

func newTestUserService(repos *mockRepos, audit AuditLogger) *UserService {
	return NewUserService(repos.repositories(), stubTxManager{}, auth.NewHasher(4), audit, zap.NewNop())
}

func stubRoles(repos *mockRepos) {
	for _, name := range rbac.AllRoles() {
		repos.roles.On("GetByName", mock.Anything, name).Return(&models.Role{ID: uuid.New(), Name: name}, nil).Maybe()
	}
}

func TestCheckGrant(t *testing.T) {
	orgID := uuid.New()
	tests := []struct {
		name    string
		actor   *models.User
		role    string
		wantErr error
	}{
		{"super admin grants super admin", superAdmin(), rbac.RoleSuperAdmin, nil},
		{"state admin grants branch admin", newActor(&orgID, rbac.RoleStateAdmin), rbac.RoleBranchAdmin, nil},
		{"state admin cannot grant super admin", newActor(&orgID, rbac.RoleStateAdmin), rbac.RoleSuperAdmin, ErrSuperAdminGrantRequired},
		{"branch admin grants member", newActor(&orgID, rbac.RoleBranchAdmin), rbac.RoleMember, nil},
		{"branch admin cannot grant district admin", newActor(&orgID, rbac.RoleBranchAdmin), rbac.RoleDistrictAdmin, ErrForbidden},
		{"unknown role", superAdmin(), "Treasurer", ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkGrant(tt.actor, tt.role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("pinned actor files the user under its own org", func(t *testing.T) {
		repos := newMockRepos()
		stubRoles(repos)
		audit := &recordingAudit{}
		repos.orgs.On("GetByID", mock.Anything, orgID).Return(models.NewOrganization("Branch"), nil)
		repos.users.On("Create", mock.Anything, mock.Anything).Return(nil)
		repos.users.On("AddRole", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		actor := newActor(&orgID, rbac.RoleBranchAdmin)
		user, err := newTestUserService(repos, audit).Create(ctx, actor, UserInput{
			Email:    "member@example.org",
			Password: "long-enough",
		})

		require.NoError(t, err)
		require.NotNil(t, user.OrgID)
		assert.Equal(t, orgID, *user.OrgID)
		assert.Equal(t, []string{rbac.RoleMember}, user.RoleNames())
		assert.Equal(t, []models.AuditAction{models.AuditActionUserCreated}, audit.actions())
	})

	t.Run("other org is rejected", func(t *testing.T) {
		actor := newActor(&orgID, rbac.RoleBranchAdmin)
		other := uuid.New()
		_, err := newTestUserService(newMockRepos(), NopAuditLogger{}).Create(ctx, actor, UserInput{
			Email: "member@example.org", Password: "long-enough", OrgID: &other,
		})
		assert.ErrorIs(t, err, ErrOrgMismatch)
	})

	t.Run("admin roles need roles assign", func(t *testing.T) {
		actor := newActor(&orgID, rbac.RoleDistrictAdmin)
		_, err := newTestUserService(newMockRepos(), NopAuditLogger{}).Create(ctx, actor, UserInput{
			Email: "member@example.org", Password: "long-enough", Roles: []string{rbac.RoleBranchAdmin},
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestUserService_Import(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repos := newMockRepos()
	stubRoles(repos)
	audit := &recordingAudit{}

	repos.orgs.On("GetByID", mock.Anything, orgID).Return(models.NewOrganization("Branch"), nil)
	repos.users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "taken@example.org"
	})).Return(repositories.ErrDuplicate)
	repos.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	repos.users.On("AddRole", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	actor := newActor(&orgID, rbac.RoleBranchAdmin)
	result := newTestUserService(repos, audit).Import(ctx, actor, []UserInput{
		{Email: "one@example.org", Password: "long-enough"},
		{Email: "ONE@example.org", Password: "long-enough"},
		{Email: "taken@example.org", Password: "long-enough"},
		{Email: "short@example.org", Password: "short"},
		{Email: "two@example.org", Password: "long-enough"},
	})

	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, ErrDuplicateEmail.Message, result.Errors[0].Message)
	assert.Equal(t, 2, result.Errors[1].Index)
	assert.Equal(t, ErrDuplicateEmail.Message, result.Errors[1].Message)
	assert.Equal(t, 3, result.Errors[2].Index)
	assert.Contains(t, audit.actions(), models.AuditActionUsersImported)
}

func TestUserService_Import_RetryAfterFailedItem(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repos := newMockRepos()
	stubRoles(repos)

	repos.orgs.On("GetByID", mock.Anything, orgID).Return(models.NewOrganization("Branch"), nil)
	repos.users.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	repos.users.On("AddRole", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	actor := newActor(&orgID, rbac.RoleBranchAdmin)
	result := newTestUserService(repos, NopAuditLogger{}).Import(ctx, actor, []UserInput{
		{Email: "a@example.org", Password: "short"},
		{Email: "a@example.org", Password: "long-enough"},
	})

	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.Errors[0].Index)
	assert.Equal(t, "must be at least 8 characters", result.Errors[0].Details["password"])
	repos.users.AssertNumberOfCalls(t, "Create", 1)
}

func TestUserService_Get(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repos := newMockRepos()
	svc := newTestUserService(repos, NopAuditLogger{})

	actor := newActor(&orgID, rbac.RoleMember)
	stranger := newActor(idPtr(uuid.New()), rbac.RoleMember)
	repos.users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
	repos.users.On("GetByID", mock.Anything, stranger.ID).Return(stranger, nil)

	got, err := svc.Get(ctx, actor, actor.ID)
	require.NoError(t, err)
	assert.Same(t, actor, got)

	_, err = svc.Get(ctx, actor, stranger.ID)
	assert.ErrorIs(t, err, ErrOrgMismatch)

	got, err = svc.Get(ctx, superAdmin(), stranger.ID)
	require.NoError(t, err)
	assert.Same(t, stranger, got)
}

func TestUserService_List_ScopesToActorOrg(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repos := newMockRepos()
	svc := newTestUserService(repos, NopAuditLogger{})

	repos.users.On("List", mock.Anything, mock.MatchedBy(func(f repositories.UserFilter) bool {
		return f.OrgID != nil && *f.OrgID == orgID && f.Limit == DefaultPageLimit && f.RoleName == rbac.RoleMember
	})).Return([]*models.User{}, nil)

	actor := newActor(&orgID, rbac.RoleBranchAdmin)
	users, err := svc.List(ctx, actor, UserQuery{Role: rbac.RoleMember})
	require.NoError(t, err)
	assert.Empty(t, users)

	other := uuid.New()
	_, err = svc.List(ctx, actor, UserQuery{OrgID: &other})
	assert.ErrorIs(t, err, ErrOrgMismatch)
	repos.users.AssertExpectations(t)
}

func TestUserService_AddRemoveRole(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repos := newMockRepos()
	stubRoles(repos)
	audit := &recordingAudit{}
	svc := newTestUserService(repos, audit)

	target := newActor(&orgID, rbac.RoleMember)
	repos.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	repos.users.On("AddRole", mock.Anything, target.ID, mock.Anything).Return(nil)
	repos.users.On("RemoveRole", mock.Anything, target.ID, mock.Anything).Return(nil).Once()
	repos.users.On("RemoveRole", mock.Anything, target.ID, mock.Anything).Return(repositories.ErrNotFound)

	actor := newActor(&orgID, rbac.RoleStateAdmin)

	user, err := svc.AddRole(ctx, actor, target.ID, rbac.RoleBranchAdmin)
	require.NoError(t, err)
	assert.True(t, user.HasRole(rbac.RoleBranchAdmin))

	user, err = svc.RemoveRole(ctx, actor, target.ID, rbac.RoleBranchAdmin)
	require.NoError(t, err)
	assert.False(t, user.HasRole(rbac.RoleBranchAdmin))

	_, err = svc.RemoveRole(ctx, actor, target.ID, rbac.RoleBranchAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAssigned)

	_, err = svc.AddRole(ctx, actor, target.ID, rbac.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrSuperAdminGrantRequired)

	assert.Equal(t, []models.AuditAction{models.AuditActionRoleGranted, models.AuditActionRoleRevoked}, audit.actions())
}

func TestUserService_Update_SelfParent(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	repos := newMockRepos()
	svc := newTestUserService(repos, NopAuditLogger{})

	target := newActor(&orgID, rbac.RoleMember)
	repos.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

	_, err := svc.Update(ctx, newActor(&orgID, rbac.RoleBranchAdmin), target.ID, UserUpdate{ParentID: &target.ID})
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestUserService_ManageHigherAdmin(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	password := "attacker-chosen"

	t.Run("branch admin cannot reset a state admin", func(t *testing.T) {
		repos := newMockRepos()
		svc := newTestUserService(repos, NopAuditLogger{})
		target := newActor(&orgID, rbac.RoleStateAdmin)
		repos.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		_, err := svc.Update(ctx, newActor(&orgID, rbac.RoleBranchAdmin), target.ID, UserUpdate{Password: &password})
		assert.ErrorIs(t, err, ErrForbidden)
		repos.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("branch admin cannot delete a state admin", func(t *testing.T) {
		repos := newMockRepos()
		svc := newTestUserService(repos, NopAuditLogger{})
		target := newActor(&orgID, rbac.RoleStateAdmin)
		repos.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		err := svc.Delete(ctx, newActor(&orgID, rbac.RoleBranchAdmin), target.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		repos.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("state admin cannot deactivate a super admin", func(t *testing.T) {
		repos := newMockRepos()
		svc := newTestUserService(repos, NopAuditLogger{})
		target := newActor(&orgID, rbac.RoleSuperAdmin)
		repos.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		inactive := false

		_, err := svc.Update(ctx, newActor(&orgID, rbac.RoleStateAdmin), target.ID, UserUpdate{IsActive: &inactive})
		assert.ErrorIs(t, err, ErrSuperAdminGrantRequired)
	})

	t.Run("branch admin may update a member", func(t *testing.T) {
		repos := newMockRepos()
		svc := newTestUserService(repos, NopAuditLogger{})
		target := newActor(&orgID, rbac.RoleMember)
		repos.users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		repos.users.On("Update", mock.Anything, target).Return(nil)

		_, err := svc.Update(ctx, newActor(&orgID, rbac.RoleBranchAdmin), target.ID, UserUpdate{Password: &password})
		assert.NoError(t, err)
	})

	t.Run("admins may update themselves", func(t *testing.T) {
		repos := newMockRepos()
		svc := newTestUserService(repos, NopAuditLogger{})
		self := newActor(&orgID, rbac.RoleBranchAdmin)
		repos.users.On("GetByID", mock.Anything, self.ID).Return(self, nil)
		repos.users.On("Update", mock.Anything, self).Return(nil)

		_, err := svc.Update(ctx, self, self.ID, UserUpdate{Password: &password})
		assert.NoError(t, err)
	})
}
