package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/bazzarnet/support-service/internal/domain"
	"github.com/bazzarnet/support-service/internal/repository"
	apperrors "github.com/bazzarnet/support-service/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and loads the caller's account.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. The account is
// re-read on every request so role changes take effect immediately.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.RegisteredClaims.Subject)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}

	actor := domain.ActorFor(user)
	c.Locals(principalKey, &actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated caller identity.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return domain.Anonymous(), false
	}
	actor, ok := val.(*domain.Actor)
	if !ok {
		return domain.Anonymous(), false
	}
	return *actor, true
}
