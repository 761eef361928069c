package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// Language is a supported interface language
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "hi", Name: "Hindi"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "zh", Name: "Chinese"},
	{Code: "ar", Name: "Arabic"},
}

// SupportedLanguages returns the language catalogue
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// IsSupportedLanguage reports whether code is in the catalogue
func IsSupportedLanguage(code string) bool {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// I18nService sets preferred languages for users and organizations
type I18nService struct {
	users  repositories.UserRepository
	orgs   repositories.OrganizationRepository
	audit  AuditLogger
	logger *zap.Logger
}

// NewI18nService creates a new I18nService
func NewI18nService(users repositories.UserRepository, orgs repositories.OrganizationRepository, audit AuditLogger, logger *zap.Logger) *I18nService {
	return &I18nService{users: users, orgs: orgs, audit: audit, logger: logger}
}

// SetUserLanguage changes the actor's own language
func (s *I18nService) SetUserLanguage(ctx context.Context, actor *models.User, code string) error {
	if !IsSupportedLanguage(code) {
		return ErrUnsupportedLanguage.WithDetail("language", code)
	}
	if err := s.users.UpdateLanguage(ctx, actor.ID, code); err != nil {
		return fromRepo(err, ErrUserNotFound, nil)
	}
	actor.PreferredLanguage = code

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionLanguageChanged, "user").
		WithResource(actor.ID).WithDetails(map[string]string{"language": code}))
	return nil
}

// SetOrgLanguage changes an organization's default language
func (s *I18nService) SetOrgLanguage(ctx context.Context, actor *models.User, orgID uuid.UUID, code string) (*models.Organization, error) {
	if !IsSupportedLanguage(code) {
		return nil, ErrUnsupportedLanguage.WithDetail("language", code)
	}
	if err := ScopeFor(actor).Check(orgID); err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, fromRepo(err, ErrOrganizationNotFound, nil)
	}
	org.PreferredLanguage = code
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, fromRepo(err, ErrOrganizationNotFound, nil)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionLanguageChanged, "org").
		WithOrg(orgID).WithResource(orgID).WithDetails(map[string]string{"language": code}))
	return org, nil
}
