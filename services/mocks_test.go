package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
)

// stubTxManager hands out transactions that always commit
type stubTxManager struct{}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func (stubTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return stubTx{}, nil
}

func (m stubTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTransaction(ctx, m, fn)
}

// recordingAudit keeps every entry it receives
type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (a *recordingAudit) Record(entry *models.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAudit) actions() []models.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.AuditAction, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// newActor builds a user holding roles in orgID (nil for unaffiliated)
func newActor(orgID *uuid.UUID, roles ...string) *models.User {
	u := models.NewUser(uuid.NewString()+"@example.org", "", "Test", "Actor", orgID)
	for _, r := range roles {
		u.Roles = append(u.Roles, models.Role{ID: uuid.New(), Name: r})
	}
	return u
}

func superAdmin() *models.User {
	return newActor(nil, rbac.RoleSuperAdmin)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

// MockOrganizationRepository is a mock implementation of OrganizationRepository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if org := args.Get(0); org != nil {
		return org.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) List(ctx context.Context, orgID *uuid.UUID, page repositories.Page) ([]*models.Organization, error) {
	args := m.Called(ctx, orgID, page)
	if orgs := args.Get(0); orgs != nil {
		return orgs.([]*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *MockOrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter repositories.UserFilter) ([]*models.User, error) {
	args := m.Called(ctx, filter)
	if users := args.Get(0); users != nil {
		return users.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error {
	return m.Called(ctx, id, language).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) AddRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

func (m *MockUserRepository) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

// MockRoleRepository is a mock implementation of RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	args := m.Called(ctx)
	if roles := args.Get(0); roles != nil {
		return roles.([]*models.Role), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	args := m.Called(ctx, name)
	if role := args.Get(0); role != nil {
		return role.(*models.Role), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGroupRepository is a mock implementation of GroupRepository
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *models.Group) error {
	return m.Called(ctx, group).Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	args := m.Called(ctx, id)
	if group := args.Get(0); group != nil {
		return group.(*models.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGroupRepository) List(ctx context.Context, orgID *uuid.UUID) ([]*models.Group, error) {
	args := m.Called(ctx, orgID)
	if groups := args.Get(0); groups != nil {
		return groups.([]*models.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGroupRepository) Update(ctx context.Context, group *models.Group) error {
	return m.Called(ctx, group).Error(0)
}

func (m *MockGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGroupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return m.Called(ctx, groupID, userID).Error(0)
}

func (m *MockGroupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return m.Called(ctx, groupID, userID).Error(0)
}

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if sub := args.Get(0); sub != nil {
		return sub.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubscriptionRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Subscription, error) {
	args := m.Called(ctx, memberID)
	if subs := args.Get(0); subs != nil {
		return subs.([]*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubscriptionRepository) ListByOrg(ctx context.Context, orgID uuid.UUID, status *models.SubscriptionStatus) ([]*models.Subscription, error) {
	args := m.Called(ctx, orgID, status)
	if subs := args.Get(0); subs != nil {
		return subs.([]*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubscriptionRepository) ListForExport(ctx context.Context, orgID uuid.UUID) ([]*models.SubscriptionExportRow, error) {
	args := m.Called(ctx, orgID)
	if rows := args.Get(0); rows != nil {
		return rows.([]*models.SubscriptionExportRow), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubscriptionRepository) Aggregate(ctx context.Context, orgID uuid.UUID) (*models.SubscriptionAggregate, error) {
	args := m.Called(ctx, orgID)
	if agg := args.Get(0); agg != nil {
		return agg.(*models.SubscriptionAggregate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, memberID)
	if ps := args.Get(0); ps != nil {
		return ps.([]*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, subscriptionID)
	if ps := args.Get(0); ps != nil {
		return ps.([]*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, orgID)
	if ps := args.Get(0); ps != nil {
		return ps.([]*models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepository) Aggregate(ctx context.Context, orgID uuid.UUID) (*models.PaymentAggregate, error) {
	args := m.Called(ctx, orgID)
	if agg := args.Get(0); agg != nil {
		return agg.(*models.PaymentAggregate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, error) {
	args := m.Called(ctx, filter)
	if es := args.Get(0); es != nil {
		return es.([]*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) Update(ctx context.Context, event *models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEventRepository) AddAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

func (m *MockEventRepository) RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

// MockAccountingRepository is a mock implementation of AccountingRepository
type MockAccountingRepository struct {
	mock.Mock
}

func (m *MockAccountingRepository) Create(ctx context.Context, txn *models.AccountingTransaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *MockAccountingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AccountingTransaction, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*models.AccountingTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountingRepository) List(ctx context.Context, filter repositories.TransactionFilter) ([]*models.AccountingTransaction, error) {
	args := m.Called(ctx, filter)
	if ts := args.Get(0); ts != nil {
		return ts.([]*models.AccountingTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountingRepository) Update(ctx context.Context, txn *models.AccountingTransaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *MockAccountingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, orgID uuid.UUID) (*models.OrgSettings, error) {
	args := m.Called(ctx, orgID)
	if s := args.Get(0); s != nil {
		return s.(*models.OrgSettings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, settings *models.OrgSettings) error {
	return m.Called(ctx, settings).Error(0)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, orgID *uuid.UUID, page repositories.Page) ([]*models.AuditLog, error) {
	args := m.Called(ctx, orgID, page)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockRepos bundles one mock per repository
type mockRepos struct {
	orgs     *MockOrganizationRepository
	users    *MockUserRepository
	roles    *MockRoleRepository
	groups   *MockGroupRepository
	subs     *MockSubscriptionRepository
	payments *MockPaymentRepository
	events   *MockEventRepository
	txns     *MockAccountingRepository
	settings *MockSettingsRepository
	audit    *MockAuditRepository
}

func newMockRepos() *mockRepos {
	return &mockRepos{
		orgs:     new(MockOrganizationRepository),
		users:    new(MockUserRepository),
		roles:    new(MockRoleRepository),
		groups:   new(MockGroupRepository),
		subs:     new(MockSubscriptionRepository),
		payments: new(MockPaymentRepository),
		events:   new(MockEventRepository),
		txns:     new(MockAccountingRepository),
		settings: new(MockSettingsRepository),
		audit:    new(MockAuditRepository),
	}
}

func (m *mockRepos) repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Organizations: m.orgs,
		Users:         m.users,
		Roles:         m.roles,
		Groups:        m.groups,
		Subscriptions: m.subs,
		Payments:      m.payments,
		Events:        m.events,
		Transactions:  m.txns,
		Settings:      m.settings,
		AuditLogs:     m.audit,
	}
}
