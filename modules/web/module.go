package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	authmod "github.com/lugezz/git-test/modules/auth"
	cachemod "github.com/lugezz/git-test/modules/cache"
	forummod "github.com/lugezz/git-test/modules/forum"
	"github.com/lugezz/git-test/views"
)

// Module is the HTTP server: server-rendered HTML views plus the
// read-only JSON API under /api.
type Module struct {
	app    *fiber.App
	addr   string
	auth   *authmod.Module
	forum  *forummod.Module
	cache  *cachemod.Module
	checks map[string]mono.HealthCheckableModule
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new web module.
func NewModule(addr string, auth *authmod.Module, forum *forummod.Module, cache *cachemod.Module) *Module {
	return &Module{
		addr:   addr,
		auth:   auth,
		forum:  forum,
		cache:  cache,
		checks: make(map[string]mono.HealthCheckableModule),
	}
}

// AddHealthCheck includes the module in the /health aggregation. Must
// be called before Start.
func (m *Module) AddHealthCheck(name string, module mono.HealthCheckableModule) {
	m.checks[name] = module
}

// Name returns the module name.
func (m *Module) Name() string {
	return "web"
}

// Start builds the Fiber app and starts listening. The auth and forum
// modules must have been started first.
func (m *Module) Start(_ context.Context) error {
	app, err := m.buildApp()
	if err != nil {
		return err
	}
	m.app = app

	// Catch immediate startup errors (port in use, permission denied)
	// before reporting the module as started.
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[web] HTTP server started on %s", m.addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[web] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// buildApp assembles the Fiber app with templates, middleware, and
// routes.
func (m *Module) buildApp() (*fiber.App, error) {
	authService := m.auth.Service()
	forumService := m.forum.Service()
	if authService == nil || forumService == nil {
		return nil, fmt.Errorf("auth and forum modules must be started first")
	}

	engine := html.NewFileSystem(http.FS(views.FS), ".html")

	app := fiber.New(fiber.Config{
		AppName:               "Forum",
		DisableStartupMessage: true,
		Views:                 engine,
		ViewsLayout:           "layouts/main",
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())
	app.Use(LoadUser(authService))

	var roomCache *cachemod.Cache
	if m.cache != nil {
		roomCache = m.cache.Cache()
	}
	h := NewHandlers(authService, forumService, roomCache)

	app.Get("/health", m.healthHandler)
	registerRoutes(app, h)
	return app, nil
}

// healthHandler aggregates the health of the registered modules. Any
// unhealthy module degrades the response to 503.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	healthy := true
	modules := fiber.Map{}
	for name, module := range m.checks {
		status := module.Health(c.UserContext())
		healthy = healthy && status.Healthy
		modules[name] = fiber.Map{
			"healthy": status.Healthy,
			"message": status.Message,
		}
	}

	code := fiber.StatusOK
	overall := "healthy"
	if !healthy {
		code = fiber.StatusServiceUnavailable
		overall = "degraded"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  overall,
		"modules": modules,
	})
}

// registerRoutes maps every URL path to its handler.
func registerRoutes(app *fiber.App, h *Handlers) {
	// Read-only JSON API.
	app.Get("/api", h.APIRoutes)
	app.Get("/api/rooms", h.APIRooms)
	app.Get("/api/rooms/:id", h.APIRoom)

	// Public pages.
	app.Get("/", h.Home)
	app.Get("/room/:id/", h.Room)
	app.Get("/login/", h.LoginForm)
	app.Post("/login/", h.Login)
	app.Get("/register/", h.RegisterForm)
	app.Post("/register/", h.Register)
	app.Get("/logout/", h.Logout)
	app.Get("/profile/:id/", h.Profile)
	app.Get("/topics/", h.Topics)
	app.Get("/activity/", h.Activity)

	// Auth-guarded pages.
	app.Post("/room/:id/", RequireAuth(), h.PostMessage)
	app.Get("/create-room/", RequireAuth(), h.CreateRoomForm)
	app.Post("/create-room/", RequireAuth(), h.CreateRoom)
	app.Get("/room/:id/update/", RequireAuth(), h.UpdateRoomForm)
	app.Post("/room/:id/update/", RequireAuth(), h.UpdateRoom)
	app.Get("/room/:id/delete/", RequireAuth(), h.DeleteRoomConfirm)
	app.Post("/room/:id/delete/", RequireAuth(), h.DeleteRoom)
	app.Get("/delete_message/:id/", RequireAuth(), h.DeleteMessageConfirm)
	app.Post("/delete_message/:id/", RequireAuth(), h.DeleteMessage)
	app.Get("/update-user/", RequireAuth(), h.UpdateUserForm)
	app.Post("/update-user/", RequireAuth(), h.UpdateUser)
}

// errorHandler maps errors to responses without leaking stack traces:
// JSON for /api paths, plain text for HTML pages.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("[web] Internal error: %v", err)
	}

	if strings.HasPrefix(c.Path(), "/api") {
		return c.Status(code).JSON(apiError{
			Error:   http.StatusText(code),
			Message: message,
		})
	}
	return c.Status(code).SendString(message)
}
