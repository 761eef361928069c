package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/membership-backend/auth"
)

type TokenCmd struct {
	Email string        `help:"Email of the user to issue the token for" required:""`
	TTL   time.Duration `help:"Token lifetime (0 uses the configured expiry)" default:"0"`
}

func (t *TokenCmd) Run(ctx context.Context, globals *Globals) error {
	s, err := openStore(ctx, globals)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.repos.Users.GetByEmail(ctx, t.Email)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", t.Email, err)
	}
	if !user.IsActive {
		return fmt.Errorf("user %s is inactive", t.Email)
	}

	tokens := auth.NewTokenService(s.cfg.Auth.JWTSecret, s.cfg.Auth.JWTIssuer, s.cfg.Auth.TokenExpiry)
	ttl := t.TTL
	if ttl <= 0 {
		ttl = s.cfg.Auth.TokenExpiry
	}
	issued, err := tokens.IssueWithExpiry(user.ID, user.RoleNames(), user.OrgID, ttl)
	if err != nil {
		return err
	}

	fmt.Println(issued.AccessToken)
	return nil
}
