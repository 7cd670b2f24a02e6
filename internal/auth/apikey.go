package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// HashAdminKey hashes a plaintext admin key for storage in config.
func HashAdminKey(key string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareAdminKey verifies a presented key against the configured hash.
func CompareAdminKey(hashed, presented string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(presented))
}

// RequireAdminKey guards department administration routes with the
// X-Admin-Key header. An empty configured hash disables the routes.
func RequireAdminKey(adminKeyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminKeyHash == "" {
			return apperrors.NewNotAuthorized("administration disabled")
		}
		presented := c.Get("X-Admin-Key")
		if presented == "" {
			return apperrors.NewUnauthorized("missing admin key")
		}
		if err := CompareAdminKey(adminKeyHash, presented); err != nil {
			return apperrors.NewNotAuthorized("invalid admin key")
		}
		return c.Next()
	}
}
