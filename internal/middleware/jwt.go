package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/shabakat/ledger/internal/domain"
)

const actorLocalsKey = "actor"

type actorClaims struct {
	Role      string `json:"role"`
	NetworkID string `json:"network_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor verifies the HS256 bearer token issued by the identity provider and
// stores the resolved domain.Actor for the rest of the request.
func Actor(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		var claims actorClaims
		_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		role := domain.Role(claims.Role)
		if claims.Subject == "" || !role.Valid() {
			return fiber.NewError(http.StatusUnauthorized, "invalid token claims")
		}
		actor := domain.Actor{CustomerID: claims.Subject, Role: role}
		if role == domain.RoleNetworkOwner {
			actor.OwnedNetworkID = claims.NetworkID
		}

		c.Locals(actorLocalsKey, actor)
		return c.Next()
	}
}

// CurrentActor returns the actor resolved by Actor. Without one the zero
// Actor is returned, which no operation authorizes.
func CurrentActor(c *fiber.Ctx) domain.Actor {
	actor, _ := c.Locals(actorLocalsKey).(domain.Actor)
	return actor
}

// SignActorToken issues a token carrying actor, in the format Actor accepts.
func SignActorToken(secret []byte, actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := actorClaims{
		Role:      string(actor.Role),
		NetworkID: actor.OwnedNetworkID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.CustomerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
