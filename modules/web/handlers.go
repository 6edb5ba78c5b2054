package web

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	domain "github.com/lugezz/git-test/domain/forum"
	"github.com/lugezz/git-test/modules/auth"
	"github.com/lugezz/git-test/modules/cache"
	"github.com/lugezz/git-test/modules/forum"
)

// Handlers contains the HTML view handlers.
type Handlers struct {
	auth   *auth.Service
	forum  *forum.Service
	cache  *cache.Cache
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance. cache may be nil.
func NewHandlers(authService *auth.Service, forumService *forum.Service, roomCache *cache.Cache) *Handlers {
	return &Handlers{
		auth:   authService,
		forum:  forumService,
		cache:  roomCache,
		logger: slog.Default(),
	}
}

// render renders a template with the current user and any pending
// flash message merged into the view data.
func (h *Handlers) render(c *fiber.Ctx, name string, data fiber.Map) error {
	data["CurrentUser"] = CurrentUser(c)
	data["Flash"] = popFlash(c)
	return c.Render(name, data)
}

// redirectWithFlash records a one-time notice and redirects.
func (h *Handlers) redirectWithFlash(c *fiber.Ctx, msg, location string) error {
	setFlash(c, msg)
	return c.Redirect(location, fiber.StatusFound)
}

// Home renders the home/search page. An empty q returns every room.
func (h *Handlers) Home(c *fiber.Ctx) error {
	ctx := c.UserContext()
	q := c.Query("q")

	rooms, err := h.forum.SearchRooms(ctx, q)
	if err != nil {
		return err
	}
	topics, err := h.forum.ListTopics(ctx, "", 5)
	if err != nil {
		return err
	}
	roomMessages, err := h.forum.RecentMessagesForTopic(ctx, q)
	if err != nil {
		return err
	}

	return h.render(c, "home", fiber.Map{
		"Rooms":        rooms,
		"Topics":       topics,
		"RoomCount":    len(rooms),
		"RoomMessages": roomMessages,
	})
}

// Room renders a room with its messages and participants.
func (h *Handlers) Room(c *fiber.Ctx) error {
	room, err := h.forum.GetRoom(c.UserContext(), c.Params("id"))
	if err != nil {
		if forum.IsNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Room not found")
		}
		return err
	}

	return h.render(c, "room", fiber.Map{
		"Room":         room,
		"Messages":     room.Messages,
		"Participants": room.Participants,
	})
}

// PostMessage creates a message in the room and redirects back to it.
// The author joins the participants; repeated posts keep membership
// idempotent.
func (h *Handlers) PostMessage(c *fiber.Ctx) error {
	u := CurrentUser(c)
	roomID := c.Params("id")

	if _, err := h.forum.PostMessage(c.UserContext(), u, roomID, c.FormValue("body")); err != nil {
		if forum.IsNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Room not found")
		}
		return err
	}
	return c.Redirect("/room/"+roomID+"/", fiber.StatusFound)
}

// CreateRoomForm renders the empty room form.
func (h *Handlers) CreateRoomForm(c *fiber.Ctx) error {
	topics, err := h.forum.ListTopics(c.UserContext(), "", 0)
	if err != nil {
		return err
	}
	return h.render(c, "room_form", fiber.Map{
		"Room":   &domain.Room{},
		"Topics": topics,
	})
}

// CreateRoom creates a room hosted by the current user and redirects
// home. The topic is get-or-created by name; name and description are
// accepted as submitted.
func (h *Handlers) CreateRoom(c *fiber.Ctx) error {
	u := CurrentUser(c)

	_, err := h.forum.CreateRoom(c.UserContext(), u.ID,
		c.FormValue("topic"), c.FormValue("name"), c.FormValue("description"))
	if err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// UpdateRoomForm renders the prefilled room form for the host. A
// non-host gets a flash notice and lands back home without the form.
func (h *Handlers) UpdateRoomForm(c *fiber.Ctx) error {
	ctx := c.UserContext()
	u := CurrentUser(c)

	room, err := h.forum.GetRoom(ctx, c.Params("id"))
	if err != nil {
		if forum.IsNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Room not found")
		}
		return err
	}
	if !domain.CanMutate(u.ID, room) {
		return h.redirectWithFlash(c,
			fmt.Sprintf("%s is not allowed to update room %q", u.Username, room.Name), "/")
	}

	topics, err := h.forum.ListTopics(ctx, "", 0)
	if err != nil {
		return err
	}
	return h.render(c, "room_form", fiber.Map{
		"Room":   room,
		"Topics": topics,
	})
}

// UpdateRoom saves the submitted room fields and redirects home.
func (h *Handlers) UpdateRoom(c *fiber.Ctx) error {
	u := CurrentUser(c)

	err := h.forum.UpdateRoom(c.UserContext(), u.ID, c.Params("id"),
		c.FormValue("topic"), c.FormValue("name"), c.FormValue("description"))
	if err != nil {
		switch {
		case forum.IsNotFound(err):
			return fiber.NewError(fiber.StatusNotFound, "Room not found")
		case errors.Is(err, forum.ErrForbidden):
			return h.redirectWithFlash(c,
				fmt.Sprintf("%s is not allowed to update this room", u.Username), "/")
		default:
			return err
		}
	}
	return c.Redirect("/", fiber.StatusFound)
}

// DeleteRoomConfirm renders the delete confirmation page for the host.
func (h *Handlers) DeleteRoomConfirm(c *fiber.Ctx) error {
	u := CurrentUser(c)

	room, err := h.forum.GetRoom(c.UserContext(), c.Params("id"))
	if err != nil {
		if forum.IsNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Room not found")
		}
		return err
	}
	if !domain.CanMutate(u.ID, room) {
		return h.redirectWithFlash(c,
			fmt.Sprintf("%s is not allowed to delete room %q", u.Username, room.Name), "/")
	}

	return h.render(c, "delete", fiber.Map{
		"Name": room.Name,
	})
}

// DeleteRoom deletes the room, cascading its messages, and redirects
// home.
func (h *Handlers) DeleteRoom(c *fiber.Ctx) error {
	u := CurrentUser(c)

	if err := h.forum.DeleteRoom(c.UserContext(), u.ID, c.Params("id")); err != nil {
		switch {
		case forum.IsNotFound(err):
			return fiber.NewError(fiber.StatusNotFound, "Room not found")
		case errors.Is(err, forum.ErrForbidden):
			return h.redirectWithFlash(c,
				fmt.Sprintf("%s is not allowed to delete this room", u.Username), "/")
		default:
			return err
		}
	}
	return c.Redirect("/", fiber.StatusFound)
}

// DeleteMessageConfirm renders the delete confirmation page for the
// message author.
func (h *Handlers) DeleteMessageConfirm(c *fiber.Ctx) error {
	u := CurrentUser(c)

	msg, err := h.forum.GetMessage(c.UserContext(), c.Params("id"))
	if err != nil {
		if forum.IsNotFound(err) {
			return fiber.NewError(fiber.StatusNotFound, "Message not found")
		}
		return err
	}
	if !domain.CanMutate(u.ID, msg) {
		return h.redirectWithFlash(c,
			fmt.Sprintf("%s is not allowed to delete this message", u.Username), "/")
	}

	return h.render(c, "delete", fiber.Map{
		"Name": msg.Body,
	})
}

// DeleteMessage deletes the message and redirects to its room.
func (h *Handlers) DeleteMessage(c *fiber.Ctx) error {
	u := CurrentUser(c)

	roomID, err := h.forum.DeleteMessage(c.UserContext(), u.ID, c.Params("id"))
	if err != nil {
		switch {
		case forum.IsNotFound(err):
			return fiber.NewError(fiber.StatusNotFound, "Message not found")
		case errors.Is(err, forum.ErrForbidden):
			return h.redirectWithFlash(c,
				fmt.Sprintf("%s is not allowed to delete this message", u.Username), "/")
		default:
			return err
		}
	}
	return c.Redirect("/room/"+roomID+"/", fiber.StatusFound)
}

// LoginForm renders the login page. Authenticated users go home.
func (h *Handlers) LoginForm(c *fiber.Ctx) error {
	if CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusFound)
	}
	return h.render(c, "login_register", fiber.Map{
		"Page":     "login",
		"Username": "",
	})
}

// Login authenticates the submitted credentials and starts a session.
// Unknown usernames and wrong passwords produce the same single
// message, re-rendered on the login page without a redirect.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusFound)
	}

	username := c.FormValue("username")
	u, err := h.auth.Authenticate(c.UserContext(), username, c.FormValue("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return h.render(c, "login_register", fiber.Map{
				"Page":     "login",
				"Username": username,
				"Error":    "Username and password do not match",
			})
		}
		return err
	}

	token, err := h.auth.IssueSession(u)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, token)
	return c.Redirect("/", fiber.StatusFound)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(c *fiber.Ctx) error {
	if CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusFound)
	}
	return h.render(c, "login_register", fiber.Map{
		"Page":     "register",
		"Username": "",
		"Email":    "",
	})
}

// Register creates an account, starts a session, and redirects home.
// Failures re-render the form with the validation message.
func (h *Handlers) Register(c *fiber.Ctx) error {
	if CurrentUser(c) != nil {
		return c.Redirect("/", fiber.StatusFound)
	}

	username := c.FormValue("username")
	email := c.FormValue("email")
	u, err := h.auth.Register(c.UserContext(), username, email, c.FormValue("password"))
	if err != nil {
		return h.render(c, "login_register", fiber.Map{
			"Page":     "register",
			"Username": username,
			"Email":    email,
			"Error":    registrationMessage(err),
		})
	}

	token, err := h.auth.IssueSession(u)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, token)
	return c.Redirect("/", fiber.StatusFound)
}

// Logout clears the session cookie and redirects home.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	h.clearSessionCookie(c)
	return c.Redirect("/", fiber.StatusFound)
}

// Profile renders a user's rooms and messages, read-only.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	profile, err := h.auth.GetUser(ctx, c.Params("id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	rooms, err := h.forum.RoomsByHost(ctx, profile.ID)
	if err != nil {
		return err
	}
	roomMessages, err := h.forum.MessagesByUser(ctx, profile.ID)
	if err != nil {
		return err
	}
	topics, err := h.forum.ListTopics(ctx, "", 0)
	if err != nil {
		return err
	}

	return h.render(c, "profile", fiber.Map{
		"Profile":      profile,
		"Rooms":        rooms,
		"RoomMessages": roomMessages,
		"Topics":       topics,
	})
}

// Topics renders the topic list filtered by q, plus the total room
// count across all topics.
func (h *Handlers) Topics(c *fiber.Ctx) error {
	ctx := c.UserContext()
	q := c.Query("q")

	topics, err := h.forum.ListTopics(ctx, q, 0)
	if err != nil {
		return err
	}
	roomCount, err := h.forum.RoomCount(ctx)
	if err != nil {
		return err
	}

	return h.render(c, "topics", fiber.Map{
		"Topics":    topics,
		"RoomCount": roomCount,
		"Query":     q,
	})
}

// Activity renders the recent-messages feed, oldest of the window
// first.
func (h *Handlers) Activity(c *fiber.Ctx) error {
	roomMessages, err := h.forum.Activity(c.UserContext())
	if err != nil {
		return err
	}
	return h.render(c, "activity", fiber.Map{
		"RoomMessages": roomMessages,
	})
}

// UpdateUserForm renders the profile edit form for the current user.
func (h *Handlers) UpdateUserForm(c *fiber.Ctx) error {
	return h.render(c, "update_user", fiber.Map{
		"Form": CurrentUser(c),
	})
}

// UpdateUser validates and saves the current user's editable fields,
// then redirects to their profile. Invalid input re-renders the form
// without saving.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	u := CurrentUser(c)

	updated, err := h.auth.UpdateUser(c.UserContext(), u.ID,
		c.FormValue("username"), c.FormValue("email"),
		c.FormValue("name"), c.FormValue("bio"))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername),
			errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrUserExists):
			return h.render(c, "update_user", fiber.Map{
				"Form":  u,
				"Error": err.Error(),
			})
		default:
			return err
		}
	}
	return c.Redirect("/profile/"+updated.ID+"/", fiber.StatusFound)
}

// setSessionCookie stores the session token in an HTTP-only cookie.
func (h *Handlers) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   h.auth.SessionMaxAge(),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// clearSessionCookie expires the session cookie.
func (h *Handlers) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// registrationMessage maps registration errors to the message shown on
// the form; unexpected errors stay generic.
func registrationMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrUserExists):
		return err.Error()
	default:
		return "Something went wrong during registration"
	}
}
