// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CallbackSecretMiddleware rejects ad callbacks that do not carry the shared
// secret, either as a "secret" query parameter or an X-Callback-Secret header.
// An empty secret disables the check.
func CallbackSecretMiddleware(secret string) fiber.Handler {
	if secret == "" {
		logrus.Warn("⚠️ AD_CALLBACK_SECRET is not set, ad callbacks are unauthenticated")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		got := strings.TrimSpace(c.Get("X-Callback-Secret"))
		if got == "" {
			got = strings.TrimSpace(c.Query("secret"))
		}
		if got == "" {
			logrus.WithField("path", c.Path()).Warn("🚫 [AD_CALLBACK] missing callback secret")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "callback secret missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logrus.WithField("path", c.Path()).Warn("❌ [AD_CALLBACK] invalid callback secret")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "invalid callback secret",
			})
		}
		return c.Next()
	}
}
