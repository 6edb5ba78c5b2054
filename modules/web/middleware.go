package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lugezz/git-test/domain/user"
	"github.com/lugezz/git-test/modules/auth"
)

const (
	// currentUserKey is the locals key holding the resolved user.
	currentUserKey = "currentUser"
	// sessionCookie is the cookie carrying the session token.
	sessionCookie = "session"
)

// LoadUser resolves the session cookie into the current user and makes
// it available to downstream handlers via the request context locals.
// Requests without a valid session simply stay anonymous.
func LoadUser(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(sessionCookie)
		if token != "" {
			if u, err := authService.ResolveSession(c.UserContext(), token); err == nil {
				c.Locals(currentUserKey, u)
			}
		}
		return c.Next()
	}
}

// RequireAuth redirects unauthenticated requests to the login page.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return c.Redirect("/login/", fiber.StatusFound)
		}
		return c.Next()
	}
}

// CurrentUser returns the user resolved by LoadUser, nil when the
// request is anonymous.
func CurrentUser(c *fiber.Ctx) *user.User {
	u, _ := c.Locals(currentUserKey).(*user.User)
	return u
}
