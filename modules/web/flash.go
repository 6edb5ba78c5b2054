package web

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
)

// flashCookie carries a one-time notice across a redirect.
const flashCookie = "flash"

// setFlash stores a message shown on the next rendered page.
func setFlash(c *fiber.Ctx, msg string) {
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// popFlash returns the pending flash message, clearing it so it is
// shown exactly once.
func popFlash(c *fiber.Ctx) string {
	v := c.Cookies(flashCookie)
	if v == "" {
		return ""
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	msg, err := url.QueryUnescape(v)
	if err != nil {
		return ""
	}
	return msg
}
