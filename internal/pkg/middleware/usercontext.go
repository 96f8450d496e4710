package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/picshelf/PicShelf/internal/pkg/session"
	"github.com/picshelf/PicShelf/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a request-scoped user
// context so handlers never touch the session store directly.
func UserContextMiddleware(c *fiber.Ctx) error {
	store := session.GetSessionStore()
	if store == nil {
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	sess, err := store.Get(c)
	if err != nil {
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	authenticated, _ := sess.Get(usercontext.AuthKey).(bool)
	userID, _ := sess.Get(usercontext.KeyUserID).(uint)
	if !authenticated || userID == 0 {
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	email, _ := sess.Get(usercontext.KeyUserEmail).(string)
	plan, _ := sess.Get(usercontext.KeyUserPlan).(string)

	usercontext.SetUserContext(c, usercontext.UserContext{
		UserID:     userID,
		Email:      email,
		IsLoggedIn: true,
		Plan:       plan,
	})
	return c.Next()
}
