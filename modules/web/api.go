package web

import (
	"github.com/gofiber/fiber/v2"

	domain "github.com/lugezz/git-test/domain/forum"
	"github.com/lugezz/git-test/modules/forum"
)

// apiError is the JSON error envelope for the read-only API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIRoutes lists the available API routes.
func (h *Handlers) APIRoutes(c *fiber.Ctx) error {
	return c.JSON([]string{
		"GET /api",
		"GET /api/rooms",
		"GET /api/rooms/:id",
	})
}

// APIRooms returns every room as a JSON array. Responses are served
// cache-aside through Redis when caching is enabled; writes in the
// forum service invalidate the entries.
func (h *Handlers) APIRooms(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if h.cache != nil {
		var cached []domain.Room
		hit, err := h.cache.Get(ctx, "all", &cached)
		if err != nil {
			h.logger.Warn("room cache read failed", "error", err)
		} else if hit {
			return c.JSON(cached)
		}
	}

	rooms, err := h.forum.AllRooms(ctx)
	if err != nil {
		return err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, "all", rooms); err != nil {
			h.logger.Warn("room cache write failed", "error", err)
		}
	}
	return c.JSON(rooms)
}

// APIRoom returns a single room as a JSON object, or a JSON 404 when
// the id does not resolve.
func (h *Handlers) APIRoom(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	if h.cache != nil {
		var cached domain.Room
		hit, err := h.cache.Get(ctx, id, &cached)
		if err != nil {
			h.logger.Warn("room cache read failed", "room_id", id, "error", err)
		} else if hit {
			return c.JSON(cached)
		}
	}

	room, err := h.forum.GetRoom(ctx, id)
	if err != nil {
		if forum.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(apiError{
				Error:   "not_found",
				Message: "Room not found",
			})
		}
		return err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, id, room); err != nil {
			h.logger.Warn("room cache write failed", "room_id", id, "error", err)
		}
	}
	return c.JSON(room)
}
