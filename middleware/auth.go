// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// UserIDLocal is the fiber Locals key holding the acting user id.
const UserIDLocal = "user_id"

// CallbackUserMiddleware resolves the acting user of an ad-network callback
// from the query string. Providers disagree on casing, so userid, userId and
// user_id are all accepted.
func CallbackUserMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := ""
		for _, key := range []string{"userid", "userId", "user_id"} {
			if v := strings.TrimSpace(c.Query(key)); v != "" {
				userID = v
				break
			}
		}
		if userID == "" {
			logrus.WithField("path", c.Path()).Warn("❌ [AD_CALLBACK] user id missing")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "User ID is required.",
			})
		}

		c.Locals(UserIDLocal, userID)
		return c.Next()
	}
}

// UserID returns the id stored by CallbackUserMiddleware, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocal).(string)
	return id
}
