package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/membership-backend/middleware"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/services/export"
)

// newRequest builds a request carrying an authenticated user and chi path parameters
func newRequest(method, target, body string, user *models.User, params map[string]string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := req.Context()
	if user != nil {
		ctx = middleware.WithUser(ctx, user)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func testUser(role string) *models.User {
	orgID := uuid.New()
	return &models.User{
		ID:        uuid.New(),
		OrgID:     &orgID,
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		IsActive:  true,
		Roles:     []models.Role{{ID: uuid.New(), Name: role}},
	}
}

func testAdmin() *models.User {
	return testUser(rbac.RoleSuperAdmin)
}

// decodeBody unmarshals a response body into a generic map
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// decodeData unmarshals the "data" member of a success envelope into dst
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// MockAuthService mocks AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, in services.SignupInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

// MockUserService mocks UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context, actor *models.User, q services.UserQuery) ([]*models.User, error) {
	args := m.Called(ctx, actor, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, actor *models.User, in services.UserInput) (*models.User, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Import(ctx context.Context, actor *models.User, items []services.UserInput) *services.ImportResult {
	args := m.Called(ctx, actor, items)
	return args.Get(0).(*services.ImportResult)
}

func (m *MockUserService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.UserUpdate) (*models.User, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockUserService) AddRole(ctx context.Context, actor *models.User, userID uuid.UUID, roleName string) (*models.User, error) {
	args := m.Called(ctx, actor, userID, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) RemoveRole(ctx context.Context, actor *models.User, userID uuid.UUID, roleName string) (*models.User, error) {
	args := m.Called(ctx, actor, userID, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Role), args.Error(1)
}

// MockOrganizationService mocks OrganizationService
type MockOrganizationService struct {
	mock.Mock
}

func (m *MockOrganizationService) List(ctx context.Context, actor *models.User, page repositories.Page) ([]*models.Organization, error) {
	args := m.Called(ctx, actor, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) Create(ctx context.Context, actor *models.User, in services.OrganizationInput) (*models.Organization, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.OrganizationUpdate) (*models.Organization, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockSubscriptionService mocks SubscriptionService
type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Create(ctx context.Context, actor *models.User, in services.SubscriptionInput) (*models.Subscription, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*services.SubscriptionDetail, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SubscriptionDetail), args.Error(1)
}

func (m *MockSubscriptionService) Renew(ctx context.Context, actor *models.User, id uuid.UUID, newEnd time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, actor, id, newEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Cancel(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) ListByMember(ctx context.Context, actor *models.User, memberID uuid.UUID) ([]*models.Subscription, error) {
	args := m.Called(ctx, actor, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) ListByOrg(ctx context.Context, actor *models.User, orgID uuid.UUID, status *models.SubscriptionStatus) ([]*models.Subscription, error) {
	args := m.Called(ctx, actor, orgID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Aggregate(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.SubscriptionAggregate, error) {
	args := m.Called(ctx, actor, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionAggregate), args.Error(1)
}

func (m *MockSubscriptionService) Export(ctx context.Context, actor *models.User, orgID uuid.UUID, format export.Format, w io.Writer) error {
	args := m.Called(ctx, actor, orgID, format, w)
	if fn, ok := args.Get(0).(func(io.Writer) error); ok {
		return fn(w)
	}
	return args.Error(0)
}

// MockPaymentService mocks PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Record(ctx context.Context, actor *models.User, in services.PaymentInput) (*models.Payment, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentService) UpdateStatus(ctx context.Context, actor *models.User, id uuid.UUID, status models.PaymentStatus) (*models.Payment, error) {
	args := m.Called(ctx, actor, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentService) ListByMember(ctx context.Context, actor *models.User, memberID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, actor, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentService) ListBySubscription(ctx context.Context, actor *models.User, subscriptionID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, actor, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentService) ListByOrg(ctx context.Context, actor *models.User, orgID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, actor, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentService) Aggregate(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.PaymentAggregate, error) {
	args := m.Called(ctx, actor, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentAggregate), args.Error(1)
}

func (m *MockPaymentService) Export(ctx context.Context, actor *models.User, orgID uuid.UUID, format export.Format, w io.Writer) error {
	args := m.Called(ctx, actor, orgID, format, w)
	if fn, ok := args.Get(0).(func(io.Writer) error); ok {
		return fn(w)
	}
	return args.Error(0)
}

// MockEventService mocks EventService
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) List(ctx context.Context, actor *models.User, q services.EventQuery) ([]*models.Event, error) {
	args := m.Called(ctx, actor, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventService) ListForUser(ctx context.Context, actor *models.User, userID uuid.UUID) ([]*models.Event, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Event, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventService) Create(ctx context.Context, actor *models.User, in services.EventInput) (*models.Event, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.EventUpdate) (*models.Event, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockEventService) RSVP(ctx context.Context, actor *models.User, id uuid.UUID, status models.RSVPStatus) (*services.RSVPResult, error) {
	args := m.Called(ctx, actor, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RSVPResult), args.Error(1)
}

func (m *MockEventService) QRCodePNG(ctx context.Context, actor *models.User, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockEventService) QRCode(ctx context.Context, actor *models.User, id uuid.UUID) (*services.EventQRCode, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EventQRCode), args.Error(1)
}

// MockAccountingService mocks AccountingService
type MockAccountingService struct {
	mock.Mock
}

func (m *MockAccountingService) List(ctx context.Context, actor *models.User, q services.TransactionQuery) ([]*models.AccountingTransaction, error) {
	args := m.Called(ctx, actor, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AccountingTransaction), args.Error(1)
}

func (m *MockAccountingService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.AccountingTransaction, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountingTransaction), args.Error(1)
}

func (m *MockAccountingService) Create(ctx context.Context, actor *models.User, in services.TransactionInput) (*models.AccountingTransaction, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountingTransaction), args.Error(1)
}

func (m *MockAccountingService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.TransactionUpdate) (*models.AccountingTransaction, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountingTransaction), args.Error(1)
}

func (m *MockAccountingService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockReportService mocks ReportService
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) ExportTransactions(ctx context.Context, actor *models.User, from, to *time.Time, format export.Format, w io.Writer) error {
	args := m.Called(ctx, actor, from, to, format, w)
	if fn, ok := args.Get(0).(func(io.Writer) error); ok {
		return fn(w)
	}
	return args.Error(0)
}

func (m *MockReportService) CategoryChart(ctx context.Context, actor *models.User, year int, month *int) (map[string]*models.IncomeExpense, error) {
	args := m.Called(ctx, actor, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.IncomeExpense), args.Error(1)
}

func (m *MockReportService) MonthlyChart(ctx context.Context, actor *models.User, year int) (map[string]*models.IncomeExpense, error) {
	args := m.Called(ctx, actor, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*models.IncomeExpense), args.Error(1)
}

func (m *MockReportService) Summary(ctx context.Context, actor *models.User, from, to *time.Time) (*services.Summary, error) {
	args := m.Called(ctx, actor, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Summary), args.Error(1)
}

// MockSettingsService mocks SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.OrgSettings, error) {
	args := m.Called(ctx, actor, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrgSettings), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, actor *models.User, orgID uuid.UUID, raw json.RawMessage) (*models.OrgSettings, error) {
	args := m.Called(ctx, actor, orgID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrgSettings), args.Error(1)
}

// MockI18nService mocks I18nService
type MockI18nService struct {
	mock.Mock
}

func (m *MockI18nService) SetUserLanguage(ctx context.Context, actor *models.User, code string) error {
	return m.Called(ctx, actor, code).Error(0)
}

func (m *MockI18nService) SetOrgLanguage(ctx context.Context, actor *models.User, orgID uuid.UUID, code string) (*models.Organization, error) {
	args := m.Called(ctx, actor, orgID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}
