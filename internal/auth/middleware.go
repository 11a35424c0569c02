package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-tickets/internal/domain"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Users authenticate
// with a JWT; trusted bot processes authenticate per guild with an API
// key and relay the acting user in the request payload.
type Principal struct {
	SubjectType domain.SubjectType
	UserID      string
	GuildID     string
}

// AuthMiddleware validates bearer tokens or guild API keys and loads
// principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	verifier func(c *fiber.Ctx, guildID, apiKey string) error
}

// NewAuthMiddleware constructs middleware. verify is called for API-key
// requests with the guild route parameter.
func NewAuthMiddleware(tokens *TokenManager, verify func(c *fiber.Ctx, guildID, apiKey string) error) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, verifier: verify}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if apiKey := c.Get("X-API-Key"); apiKey != "" {
		guildID := c.Params("guildID")
		if guildID == "" {
			return apperrors.NewUnauthorized("api key requires a guild-scoped route")
		}
		if err := m.verifier(c, guildID, apiKey); err != nil {
			return apperrors.NewUnauthorized("invalid api key")
		}
		c.Locals(principalKey, &Principal{
			SubjectType: domain.SubjectTypeService,
			GuildID:     guildID,
		})
		return c.Next()
	}

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

	c.Locals(principalKey, &Principal{
		SubjectType: domain.SubjectTypeUser,
		UserID:      claims.SubjectID,
	})
	return c.Next()
}

// PrincipalFromContext extracts the authenticated principal.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}
