package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.Nil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "user not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: user not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same sentinel", ErrUserNotFound, ErrUserNotFound, true},
		{"wrapped copy of sentinel", ErrUserNotFound.Wrap(errors.New("no rows")), ErrUserNotFound, true},
		{"same type different message", ErrGroupNotFound, ErrUserNotFound, false},
		{"type-only target", ErrGroupNotFound, NewDomainError(ErrorTypeNotFound, "", nil), true},
		{"different type", ErrInvalidInput, ErrUserNotFound, false},
		{"not a domain error", ErrUserNotFound, errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetailDoesNotMutate(t *testing.T) {
	err := ErrInvalidInput.WithDetail("field", "email").WithDetail("value", "invalid-email")

	assert.Equal(t, "email", err.Details["field"])
	assert.Equal(t, "invalid-email", err.Details["value"])
	assert.Nil(t, ErrInvalidInput.Details)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestErrorTypeHelpers(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrEventNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", ErrUserNotFound)))
	assert.False(t, IsNotFoundError(nil))
	assert.True(t, IsValidationError(ErrUnknownRole))
	assert.True(t, IsUnauthorizedError(ErrInvalidCredentials))
	assert.True(t, IsForbiddenError(ErrEventFull))
	assert.True(t, IsConflictError(ErrDuplicateEmail))
	assert.False(t, IsConflictError(errors.New("regular")))
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", ErrOrganizationNotFound, ErrorTypeNotFound},
		{"validation", ErrInvalidInput, ErrorTypeValidation},
		{"rate limit", ErrRateLimitExceeded, ErrorTypeRateLimit},
		{"forbidden", ErrSuperAdminGrantRequired, ErrorTypeForbidden},
		{"regular error", errors.New("regular"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestGetErrorDetails(t *testing.T) {
	err := NewValidationError("bad date").WithDetail("field", "from")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "from", details["field"])
	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("database connection failed")
	wrapped := WrapInternal("failed to connect", baseErr)

	assert.Equal(t, ErrorTypeInternal, GetErrorType(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestFromRepo(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantIs   error
	}{
		{"not found", fmt.Errorf("get user: %w", repositories.ErrNotFound), ErrorTypeNotFound, ErrUserNotFound},
		{"duplicate", fmt.Errorf("create: %w", repositories.ErrDuplicate), ErrorTypeConflict, ErrDuplicateEmail},
		{"missing reference", repositories.ErrReferenceMissing, ErrorTypeValidation, nil},
		{"rbac forbidden", rbac.ErrForbidden, ErrorTypeForbidden, ErrForbidden},
		{"domain error passes through", ErrEventFull, ErrorTypeForbidden, ErrEventFull},
		{"other", errors.New("connection reset"), ErrorTypeInternal, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fromRepo(tt.err, ErrUserNotFound, ErrDuplicateEmail)
			assert.Equal(t, tt.wantType, GetErrorType(err))
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}

	assert.NoError(t, fromRepo(nil, ErrUserNotFound, nil))
}
