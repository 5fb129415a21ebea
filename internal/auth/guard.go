package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/book-review-service/pkg/util/errorutil"
)

// RequireIdentity ensures an identity was attached by the gate.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewUnauthorized(MsgAuthFailed)
		}
		return c.Next()
	}
}
