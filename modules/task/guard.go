package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/domain/user"
	"github.com/example/task-tracker/modules/auth"
)

// CredentialVerifier resolves a bearer credential to the identity it carries.
// auth.AuthAdapter satisfies it.
type CredentialVerifier interface {
	ValidateToken(ctx context.Context, token string) (*user.Claims, error)
}

// OwnerScope restricts a listing to the tasks of one owner.
type OwnerScope struct {
	Owner string
}

// Guard is the single place task access is decided. Identity comes only from
// the credential passed with each request.
type Guard struct {
	verifier CredentialVerifier
}

// NewGuard creates a Guard backed by verifier.
func NewGuard(verifier CredentialVerifier) *Guard {
	return &Guard{verifier: verifier}
}

// Identify resolves credential to an owner id. A "Bearer " prefix is accepted.
func (g *Guard) Identify(ctx context.Context, credential string) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if token == "" {
		return "", fmt.Errorf("%w: missing credential", domain.ErrUnauthenticated)
	}

	claims, err := g.verifier.ValidateToken(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, auth.ErrExpiredToken)
		case errors.Is(err, auth.ErrInvalidToken):
			return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, auth.ErrInvalidToken)
		}
		return "", fmt.Errorf("verify credential: %w", err)
	}
	if claims == nil || claims.UserID == "" {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, auth.ErrInvalidToken)
	}
	return claims.UserID, nil
}

// Authorize allows owner to act on t only when t belongs to owner.
func (g *Guard) Authorize(owner string, t *domain.Task) error {
	if t == nil || t.Owner != owner {
		return domain.ErrForbidden
	}
	return nil
}

// ScopeQuery resolves credential to the scope every listing is restricted to.
func (g *Guard) ScopeQuery(ctx context.Context, credential string) (OwnerScope, error) {
	owner, err := g.Identify(ctx, credential)
	if err != nil {
		return OwnerScope{}, err
	}
	return OwnerScope{Owner: owner}, nil
}
