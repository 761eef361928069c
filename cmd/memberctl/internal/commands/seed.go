package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/upb/membership-backend/auth"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML document accepted by `memberctl seed`
type Fixture struct {
	Organizations []OrgFixture  `yaml:"organizations"`
	Users         []UserFixture `yaml:"users"`
}

type OrgFixture struct {
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Subdomain         string `yaml:"subdomain"`
	PreferredLanguage string `yaml:"preferred_language"`
}

type UserFixture struct {
	Email        string   `yaml:"email"`
	Password     string   `yaml:"password"`
	FirstName    string   `yaml:"first_name"`
	LastName     string   `yaml:"last_name"`
	Organization string   `yaml:"organization"` // org name, from this fixture or the database
	Roles        []string `yaml:"roles"`
}

// LoadFixture decodes and validates a fixture, rejecting unknown keys
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("fixture is empty")
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks required fields, role names and languages
func (f *Fixture) Validate() error {
	orgs := make(map[string]bool, len(f.Organizations))
	for i, o := range f.Organizations {
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("organizations[%d]: name is required", i)
		}
		if orgs[o.Name] {
			return fmt.Errorf("organizations[%d]: duplicate name %q", i, o.Name)
		}
		orgs[o.Name] = true
		if o.PreferredLanguage != "" && !services.IsSupportedLanguage(o.PreferredLanguage) {
			return fmt.Errorf("organizations[%d]: unsupported language %q", i, o.PreferredLanguage)
		}
	}

	emails := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		email := models.NormalizeEmail(u.Email)
		if email == "" || !strings.Contains(email, "@") {
			return fmt.Errorf("users[%d]: a valid email is required", i)
		}
		if emails[email] {
			return fmt.Errorf("users[%d]: duplicate email %q", i, email)
		}
		emails[email] = true
		if len(u.Password) < 8 {
			return fmt.Errorf("users[%d]: password must be at least 8 characters", i)
		}
		for _, role := range u.Roles {
			if !rbac.IsKnownRole(role) {
				return fmt.Errorf("users[%d]: unknown role %q", i, role)
			}
		}
	}
	return nil
}

// SeedResult counts what a seed run created and skipped
type SeedResult struct {
	OrgsCreated  int
	OrgsExisting int
	UsersCreated int
	UsersSkipped int
}

// Seeder writes fixtures through the repositories in a single transaction.
// Organizations are matched by name and users by email, so re-running a fixture is a no-op.
type Seeder struct {
	repos  *repositories.Repositories
	tx     repositories.TransactionManager
	hasher *auth.Hasher
	logger *zap.Logger
}

func NewSeeder(repos *repositories.Repositories, tx repositories.TransactionManager, hasher *auth.Hasher, logger *zap.Logger) *Seeder {
	return &Seeder{repos: repos, tx: tx, hasher: hasher, logger: logger}
}

// Seed applies the fixture
func (s *Seeder) Seed(ctx context.Context, f *Fixture) (*SeedResult, error) {
	result := &SeedResult{}
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		orgs, err := s.existingOrgs(ctx)
		if err != nil {
			return err
		}

		for _, o := range f.Organizations {
			if _, ok := orgs[o.Name]; ok {
				result.OrgsExisting++
				continue
			}
			org := models.NewOrganization(o.Name)
			if o.Description != "" {
				org.Description = &o.Description
			}
			if o.Subdomain != "" {
				org.Subdomain = &o.Subdomain
			}
			if o.PreferredLanguage != "" {
				org.PreferredLanguage = o.PreferredLanguage
			}
			if err := s.repos.Organizations.Create(ctx, org); err != nil {
				return fmt.Errorf("failed to create organization %q: %w", o.Name, err)
			}
			orgs[o.Name] = org
			result.OrgsCreated++
			s.logger.Info("organization created", zap.String("name", org.Name), zap.String("org_id", org.ID.String()))
		}

		for _, u := range f.Users {
			created, err := s.seedUser(ctx, u, orgs)
			if err != nil {
				return err
			}
			if created {
				result.UsersCreated++
			} else {
				result.UsersSkipped++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Seeder) existingOrgs(ctx context.Context) (map[string]*models.Organization, error) {
	byName := make(map[string]*models.Organization)
	page := repositories.Page{Limit: services.MaxPageLimit}
	for {
		orgs, err := s.repos.Organizations.List(ctx, nil, page)
		if err != nil {
			return nil, fmt.Errorf("failed to list organizations: %w", err)
		}
		for _, o := range orgs {
			byName[o.Name] = o
		}
		if len(orgs) < page.Limit {
			return byName, nil
		}
		page.Offset += page.Limit
	}
}

func (s *Seeder) seedUser(ctx context.Context, u UserFixture, orgs map[string]*models.Organization) (bool, error) {
	_, err := s.repos.Users.GetByEmail(ctx, u.Email)
	if err == nil {
		s.logger.Info("user exists, skipping", zap.String("email", u.Email))
		return false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return false, fmt.Errorf("failed to look up %s: %w", u.Email, err)
	}

	var org *models.Organization
	if u.Organization != "" {
		var ok bool
		if org, ok = orgs[u.Organization]; !ok {
			return false, fmt.Errorf("user %s: organization %q not found", u.Email, u.Organization)
		}
	}

	hashed, err := s.hasher.HashPassword(u.Password)
	if err != nil {
		return false, err
	}

	user := models.NewUser(u.Email, hashed, u.FirstName, u.LastName, nil)
	if org != nil {
		user.OrgID = &org.ID
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("failed to create user %s: %w", u.Email, err)
	}

	for _, name := range u.Roles {
		role, err := s.repos.Roles.GetByName(ctx, name)
		if err != nil {
			return false, fmt.Errorf("failed to resolve role %q: %w", name, err)
		}
		if err := s.repos.Users.AddRole(ctx, user.ID, role.ID); err != nil {
			return false, fmt.Errorf("failed to assign %q to %s: %w", name, u.Email, err)
		}
	}

	s.logger.Info("user created",
		zap.String("email", user.Email),
		zap.String("user_id", user.ID.String()),
		zap.Strings("roles", u.Roles))
	return true, nil
}

type SeedCmd struct {
	File string `help:"YAML fixture to load" required:"" type:"existingfile"`
}

func (c *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	fh, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer fh.Close()

	fixture, err := LoadFixture(fh)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, globals)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.seeder().Seed(ctx, fixture)
	if err != nil {
		return err
	}

	fmt.Printf("organizations: %d created, %d existing\nusers: %d created, %d skipped\n",
		result.OrgsCreated, result.OrgsExisting, result.UsersCreated, result.UsersSkipped)
	return nil
}

type CreateAdminCmd struct {
	Email        string `help:"Admin email" required:""`
	Password     string `help:"Admin password" required:"" env:"MEMBERCTL_ADMIN_PASSWORD"`
	FirstName    string `help:"First name" default:"Super"`
	LastName     string `help:"Last name" default:"Admin"`
	Organization string `help:"Organization name, created when missing"`
}

func (c *CreateAdminCmd) Run(ctx context.Context, globals *Globals) error {
	fixture := &Fixture{
		Users: []UserFixture{{
			Email:        c.Email,
			Password:     c.Password,
			FirstName:    c.FirstName,
			LastName:     c.LastName,
			Organization: c.Organization,
			Roles:        []string{rbac.RoleSuperAdmin},
		}},
	}
	if c.Organization != "" {
		fixture.Organizations = []OrgFixture{{Name: c.Organization}}
	}
	if err := fixture.Validate(); err != nil {
		return err
	}

	s, err := openStore(ctx, globals)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.seeder().Seed(ctx, fixture)
	if err != nil {
		return err
	}
	if result.UsersCreated == 0 {
		return fmt.Errorf("user %s already exists", c.Email)
	}

	fmt.Printf("created Super Admin %s\n", models.NormalizeEmail(c.Email))
	return nil
}
