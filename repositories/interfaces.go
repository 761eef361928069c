package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("record already exists")
	// ErrReferenceMissing is returned when a foreign key target does not exist
	ErrReferenceMissing = errors.New("referenced record does not exist")
)

// TransactionManager manages database transactions.
// The active transaction travels in the context so repositories pick it up transparently.
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

type transactionContextKey struct{}

// ContextWithTransaction returns a context that carries tx
func ContextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

// TransactionFromContext returns the transaction carried by ctx, if any
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(Transaction)
	return tx, ok
}

// Page bounds list queries
type Page struct {
	Limit  int
	Offset int
}

// OrganizationRepository handles organization data operations
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	// List returns all organizations, or only orgID when it is set
	List(ctx context.Context, orgID *uuid.UUID, page Page) ([]*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserFilter narrows user listings
type UserFilter struct {
	OrgID    *uuid.UUID
	RoleName string
	Query    string // case-insensitive match on first name, last name or email
	Page
}

// UserRepository handles user data operations.
// Every read loads live roles, groups and children.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]*models.User, error)
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddRole(ctx context.Context, userID, roleID uuid.UUID) error
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error
}

// RoleRepository reads the fixed role catalogue
type RoleRepository interface {
	List(ctx context.Context) ([]*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
}

// GroupRepository handles group and membership data operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
	List(ctx context.Context, orgID *uuid.UUID) ([]*models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
}

// SubscriptionRepository handles subscription data operations
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Subscription, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, status *models.SubscriptionStatus) ([]*models.Subscription, error)
	ListForExport(ctx context.Context, orgID uuid.UUID) ([]*models.SubscriptionExportRow, error)
	Aggregate(ctx context.Context, orgID uuid.UUID) (*models.SubscriptionAggregate, error)
	Update(ctx context.Context, sub *models.Subscription) error
}

// PaymentRepository handles payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*models.Payment, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*models.Payment, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Payment, error)
	Aggregate(ctx context.Context, orgID uuid.UUID) (*models.PaymentAggregate, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
}

// EventFilter narrows event listings
type EventFilter struct {
	OrgID          *uuid.UUID
	From           *time.Time // inclusive lower bound on event_date
	AttendeeUserID *uuid.UUID
}

// EventRepository handles event and attendance data operations
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	// GetByIDForUpdate locks the event row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, filter EventFilter) ([]*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddAttendee(ctx context.Context, eventID, userID uuid.UUID) error
	RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error
}

// TransactionFilter narrows accounting transaction listings
type TransactionFilter struct {
	OrgID     *uuid.UUID
	CreatedBy *uuid.UUID
	Account   string
	Category  string
	Type      models.TransactionType
	From      *time.Time
	To        *time.Time
	Page
}

// AccountingRepository handles ledger data operations
type AccountingRepository interface {
	Create(ctx context.Context, txn *models.AccountingTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AccountingTransaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*models.AccountingTransaction, error)
	Update(ctx context.Context, txn *models.AccountingTransaction) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsRepository persists per-organization settings documents
type SettingsRepository interface {
	Get(ctx context.Context, orgID uuid.UUID) (*models.OrgSettings, error)
	Upsert(ctx context.Context, settings *models.OrgSettings) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	Insert(ctx context.Context, log *models.AuditLog) error
	// List returns the newest entries first, restricted to orgID when set
	List(ctx context.Context, orgID *uuid.UUID, page Page) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Organizations OrganizationRepository
	Users         UserRepository
	Roles         RoleRepository
	Groups        GroupRepository
	Subscriptions SubscriptionRepository
	Payments      PaymentRepository
	Events        EventRepository
	Transactions  AccountingRepository
	Settings      SettingsRepository
	AuditLogs     AuditRepository
}
