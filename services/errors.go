package services

import (
	"errors"
	"fmt"

	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type and message, so sentinels compare by value
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && (t.Message == "" || e.Message == t.Message)
}

// WithDetail returns a copy of the error carrying an extra detail. Sentinels are never mutated.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Type: e.Type, Message: e.Message, Err: e.Err, Details: details}
}

// Wrap returns a copy of the error with err as its cause
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Type: e.Type, Message: e.Message, Err: err, Details: e.Details}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrOrganizationNotFound = NewDomainError(ErrorTypeNotFound, "Organization not found", nil)
	ErrUserNotFound         = NewDomainError(ErrorTypeNotFound, "User not found", nil)
	ErrMemberNotFound       = NewDomainError(ErrorTypeNotFound, "Member not found", nil)
	ErrRoleNotFound         = NewDomainError(ErrorTypeNotFound, "Role not found", nil)
	ErrGroupNotFound        = NewDomainError(ErrorTypeNotFound, "Group not found", nil)
	ErrSubscriptionNotFound = NewDomainError(ErrorTypeNotFound, "Subscription not found", nil)
	ErrPaymentNotFound      = NewDomainError(ErrorTypeNotFound, "Payment not found", nil)
	ErrEventNotFound        = NewDomainError(ErrorTypeNotFound, "Event not found", nil)
	ErrTransactionNotFound  = NewDomainError(ErrorTypeNotFound, "Transaction not found", nil)
	ErrParentNotFound       = NewDomainError(ErrorTypeNotFound, "Parent user not found", nil)
	ErrRoleNotAssigned      = NewDomainError(ErrorTypeNotFound, "User does not hold this role", nil)
	ErrNotGroupMember       = NewDomainError(ErrorTypeNotFound, "User is not a member of this group", nil)

	// Validation Errors
	ErrInvalidInput         = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrUnknownRole          = NewDomainError(ErrorTypeValidation, "Unknown role", nil)
	ErrUnsupportedLanguage  = NewDomainError(ErrorTypeValidation, "Unsupported language", nil)
	ErrInvalidDateRange     = NewDomainError(ErrorTypeValidation, "Start date must not be after end date", nil)
	ErrSubscriptionMismatch = NewDomainError(ErrorTypeValidation, "Subscription does not belong to member", nil)
	ErrMemberOutsideOrg     = NewDomainError(ErrorTypeValidation, "User does not belong to the group's organization", nil)
	ErrOrgRequired          = NewDomainError(ErrorTypeValidation, "org_id is required", nil)
	ErrInvalidParent        = NewDomainError(ErrorTypeValidation, "A user cannot be their own parent", nil)
	ErrInvalidStatus        = NewDomainError(ErrorTypeValidation, "Unknown status", nil)

	// Authentication Errors
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthorized, "Incorrect email or password", nil)
	ErrInvalidToken       = NewDomainError(ErrorTypeUnauthorized, "Could not validate credentials", nil)
	ErrTokenExpired       = NewDomainError(ErrorTypeUnauthorized, "Token expired", nil)
	ErrInactiveUser       = NewDomainError(ErrorTypeUnauthorized, "Inactive user", nil)

	// Permission Errors
	ErrForbidden               = NewDomainError(ErrorTypeForbidden, "Not enough permissions", nil)
	ErrOrgMismatch             = NewDomainError(ErrorTypeForbidden, "Access to this organization is not allowed", nil)
	ErrSuperAdminGrantRequired = NewDomainError(ErrorTypeForbidden, "Only a Super Admin can grant or revoke Super Admin", nil)
	ErrEventFull               = NewDomainError(ErrorTypeForbidden, "Event is full.", nil)

	// Rate Limit Errors
	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, "Too many login attempts", nil)

	// Conflict Errors
	ErrDuplicateEmail = NewDomainError(ErrorTypeConflict, "Email already registered", nil)
	ErrDuplicateOrg   = NewDomainError(ErrorTypeConflict, "Organization name or subdomain already exists", nil)
	ErrDuplicateGroup = NewDomainError(ErrorTypeConflict, "Group name already exists in this organization", nil)

	// Internal Errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// ErrorMessage is the client facing text of err
func ErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// NewValidationError builds a validation error with a request specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// fromRepo maps repository sentinels onto domain errors.
// notFound is returned for missing rows; duplicates become conflict unless conflict is nil.
func fromRepo(err error, notFound, conflict *DomainError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound) && notFound != nil:
		return notFound.Wrap(err)
	case errors.Is(err, repositories.ErrDuplicate) && conflict != nil:
		return conflict.Wrap(err)
	case errors.Is(err, repositories.ErrReferenceMissing):
		return NewDomainError(ErrorTypeValidation, "Referenced record does not exist", err)
	case errors.Is(err, rbac.ErrForbidden):
		return ErrForbidden.Wrap(err)
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return WrapInternal("database error", err)
}
