package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ClaimsContextKey is where the middleware stores the validated access claims
const ClaimsContextKey = "auth:claims"

// UserContextKey is where the middleware stores the loaded user record
const UserContextKey = "auth:user"

// RouteGuard builds the fiber middleware that protects API routes
type RouteGuard struct {
	tokens TokenService
	users  Users
	logger Logger
}

// NewRouteGuard creates a guard over the given token service and user store
func NewRouteGuard(tokens TokenService, users Users) *RouteGuard {
	return &RouteGuard{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}
}

func (g *RouteGuard) WithLogger(l Logger) *RouteGuard {
	if l != nil {
		g.logger = l
	}
	return g
}

// Protected authenticates the request from its bearer token. On success the
// claims and the loaded user land in Locals and in the user context, so
// downstream handlers can use FromContext and GetClaims.
func (g *RouteGuard) Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			return ErrUnableToFindSession
		}

		claims, err := g.tokens.ValidateAccessToken(raw)
		if err != nil {
			if IsTokenExpiredError(err) {
				return goerrors.Wrap(err, goerrors.CategoryAuth, "access token expired").
					WithCode(goerrors.CodeUnauthorized).
					WithTextCode(TextCodeTokenExpired)
			}
			return goerrors.Wrap(err, goerrors.CategoryAuth, "invalid access token").
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeTokenMalformed)
		}

		user, err := g.users.GetByID(c.UserContext(), claims.UserID())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return goerrors.New("identity no longer exists", goerrors.CategoryAuth).
					WithCode(goerrors.CodeUnauthorized)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load identity")
		}

		c.Locals(ClaimsContextKey, claims)
		c.Locals(UserContextKey, user)

		ctx := WithContext(c.UserContext(), user)
		ctx = WithClaimsContext(ctx, claims)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// RequireRoles gates a route to identities holding at least one of the given
// roles. It must run after Protected.
func (g *RouteGuard) RequireRoles(allow ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(ClaimsContextKey).(*AccessClaims)
		if !ok || claims == nil {
			return ErrUnableToFindSession
		}

		if !claims.HasAnyRole(allow...) {
			g.logger.Debug("role gate rejected user %s, needs one of %v", claims.UserID(), allow)
			return goerrors.New("insufficient role for this resource", goerrors.CategoryAuthz).
				WithCode(goerrors.CodeForbidden)
		}

		return c.Next()
	}
}

// UserFromLocals returns the user the guard stored for this request
func UserFromLocals(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(UserContextKey).(*User)
	return user, ok
}

// ClaimsFromLocals returns the claims the guard stored for this request
func ClaimsFromLocals(c *fiber.Ctx) (*AccessClaims, bool) {
	claims, ok := c.Locals(ClaimsContextKey).(*AccessClaims)
	return claims, ok
}

func extractBearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	const scheme = "Bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return ""
	}

	return strings.TrimSpace(header[len(scheme):])
}
