package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lugezz/git-test/domain/user"
	authmod "github.com/lugezz/git-test/modules/auth"
	forummod "github.com/lugezz/git-test/modules/forum"
	"github.com/lugezz/git-test/modules/storage"
)

// testEnv bundles the started modules behind an in-memory database.
type testEnv struct {
	app   *fiber.App
	auth  *authmod.Module
	forum *forummod.Module
}

// setupTestApp starts storage, auth, and forum modules on an in-memory
// database and assembles the Fiber app without listening on a port.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	storageModule := storage.NewModule(":memory:")
	if err := storageModule.Start(ctx); err != nil {
		t.Fatalf("failed to start storage module: %v", err)
	}
	t.Cleanup(func() { _ = storageModule.Stop(ctx) })

	authModule := authmod.NewModule(storageModule, authmod.SessionConfig{
		SecretKey: "test-secret",
		Duration:  time.Hour,
		Issuer:    "forum-test",
	})
	if err := authModule.Start(ctx); err != nil {
		t.Fatalf("failed to start auth module: %v", err)
	}

	forumModule := forummod.NewModule(storageModule)
	if err := forumModule.Start(ctx); err != nil {
		t.Fatalf("failed to start forum module: %v", err)
	}

	m := NewModule(":0", authModule, forumModule, nil)
	m.AddHealthCheck("storage", storageModule)
	app, err := m.buildApp()
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	return &testEnv{app: app, auth: authModule, forum: forumModule}
}

// registerUser creates an account and returns the user with a session
// cookie value for authenticated requests.
func (e *testEnv) registerUser(t *testing.T, username, password string) (*user.User, string) {
	t.Helper()

	u, err := e.auth.Service().Register(context.Background(), username, "", password)
	if err != nil {
		t.Fatalf("failed to register user %q: %v", username, err)
	}
	token, err := e.auth.Service().IssueSession(u)
	if err != nil {
		t.Fatalf("failed to issue session: %v", err)
	}
	return u, token
}

// formRequest builds a POST request with url-encoded form values.
func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(body)
}

func TestHealth(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status  string                     `json:"status"`
		Modules map[string]json.RawMessage `json:"modules"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", body.Status)
	}
	if _, ok := body.Modules["storage"]; !ok {
		t.Error("expected a storage entry in the health report")
	}
}

func TestHome(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestGuardedRoutesRedirectToLogin(t *testing.T) {
	env := setupTestApp(t)

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/create-room/", nil),
		httptest.NewRequest(http.MethodGet, "/update-user/", nil),
		formRequest("/room/some-id/", url.Values{"body": {"hi"}}),
		formRequest("/create-room/", url.Values{"topic": {"python"}, "name": {"Room"}}),
	}

	for _, req := range requests {
		resp, err := env.app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Errorf("%s %s: expected status 302, got %d", req.Method, req.URL.Path, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/login/" {
			t.Errorf("%s %s: expected redirect to /login/, got %q", req.Method, req.URL.Path, loc)
		}
	}
}

func TestRegister(t *testing.T) {
	env := setupTestApp(t)

	t.Run("success sets session cookie and redirects home", func(t *testing.T) {
		resp, err := env.app.Test(formRequest("/register/", url.Values{
			"username": {"Alice"},
			"email":    {"alice@example.com"},
			"password": {"correct-horse"},
		}), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected status 302, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/" {
			t.Errorf("expected redirect to /, got %q", loc)
		}

		var session *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == sessionCookie {
				session = c
			}
		}
		if session == nil || session.Value == "" {
			t.Fatal("expected a session cookie to be set")
		}
		sessionUser, err := env.auth.Service().ResolveSession(context.Background(), session.Value)
		if err != nil {
			t.Fatalf("session cookie does not resolve: %v", err)
		}
		if sessionUser.Username != "alice" {
			t.Errorf("expected session for alice, got %q", sessionUser.Username)
		}
	})

	t.Run("weak password re-renders the form", func(t *testing.T) {
		resp, err := env.app.Test(formRequest("/register/", url.Values{
			"username": {"bob"},
			"password": {"short"},
		}), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		body := readBody(t, resp)
		if !strings.Contains(body, "bob") {
			t.Error("expected the submitted username to be preserved in the form")
		}
	})
}

func TestLogin(t *testing.T) {
	env := setupTestApp(t)
	env.registerUser(t, "alice", "correct-horse")

	t.Run("wrong password shows a single message without redirect", func(t *testing.T) {
		resp, err := env.app.Test(formRequest("/login/", url.Values{
			"username": {"alice"},
			"password": {"wrong-password"},
		}), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if body := readBody(t, resp); !strings.Contains(body, "Username and password do not match") {
			t.Error("expected the login failure message in the response body")
		}
	})

	t.Run("unknown username shows the same message", func(t *testing.T) {
		resp, err := env.app.Test(formRequest("/login/", url.Values{
			"username": {"nobody"},
			"password": {"correct-horse"},
		}), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if body := readBody(t, resp); !strings.Contains(body, "Username and password do not match") {
			t.Error("expected the login failure message in the response body")
		}
	})

	t.Run("mixed-case username logs in", func(t *testing.T) {
		resp, err := env.app.Test(formRequest("/login/", url.Values{
			"username": {"Alice"},
			"password": {"correct-horse"},
		}), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected status 302, got %d", resp.StatusCode)
		}
	})
}

func TestRoomLifecycle(t *testing.T) {
	env := setupTestApp(t)
	host, hostToken := env.registerUser(t, "alice", "correct-horse")
	_, otherToken := env.registerUser(t, "bob", "correct-horse")
	ctx := context.Background()

	room, err := env.forum.Service().CreateRoom(ctx, host.ID, "python", "Room A", "talk")
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}

	t.Run("room page renders", func(t *testing.T) {
		resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/room/"+room.ID+"/", nil), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		if body := readBody(t, resp); !strings.Contains(body, "Room A") {
			t.Error("expected the room name in the response body")
		}
	})

	t.Run("unknown room returns 404", func(t *testing.T) {
		resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/room/no-such-id/", nil), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.StatusCode)
		}
	})

	t.Run("authenticated post joins the room", func(t *testing.T) {
		req := formRequest("/room/"+room.ID+"/", url.Values{"body": {"hello there"}})
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: otherToken})

		resp, err := env.app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected status 302, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/room/"+room.ID+"/" {
			t.Errorf("expected redirect back to the room, got %q", loc)
		}

		loaded, err := env.forum.Service().GetRoom(ctx, room.ID)
		if err != nil {
			t.Fatalf("failed to load room: %v", err)
		}
		if len(loaded.Messages) != 1 || len(loaded.Participants) != 1 {
			t.Errorf("expected 1 message and 1 participant, got %d and %d",
				len(loaded.Messages), len(loaded.Participants))
		}
	})

	t.Run("non-host update is flashed home", func(t *testing.T) {
		req := formRequest("/room/"+room.ID+"/update/", url.Values{
			"topic": {"golang"},
			"name":  {"Hijacked"},
		})
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: otherToken})

		resp, err := env.app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected status 302, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/" {
			t.Errorf("expected redirect to /, got %q", loc)
		}

		loaded, err := env.forum.Service().GetRoom(ctx, room.ID)
		if err != nil {
			t.Fatalf("failed to load room: %v", err)
		}
		if loaded.Name != "Room A" {
			t.Errorf("expected name unchanged, got %q", loaded.Name)
		}
	})

	t.Run("host deletes the room", func(t *testing.T) {
		req := formRequest("/room/"+room.ID+"/delete/", url.Values{})
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: hostToken})

		resp, err := env.app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("expected status 302, got %d", resp.StatusCode)
		}

		if _, err := env.forum.Service().GetRoom(ctx, room.ID); !forummod.IsNotFound(err) {
			t.Errorf("expected the room to be gone, got %v", err)
		}
	})
}

func TestProfile(t *testing.T) {
	env := setupTestApp(t)
	u, _ := env.registerUser(t, "alice", "correct-horse")

	t.Run("existing user renders", func(t *testing.T) {
		resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/profile/"+u.ID+"/", nil), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/profile/no-such-id/", nil), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.StatusCode)
		}
	})
}

func TestLogoutClearsSession(t *testing.T) {
	env := setupTestApp(t)
	_, token := env.registerUser(t, "alice", "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/logout/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})

	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected status 302, got %d", resp.StatusCode)
	}

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			session = c
		}
	}
	if session == nil {
		t.Fatal("expected a session cookie in the response")
	}
	if session.Value != "" || !session.Expires.Before(time.Now()) {
		t.Error("expected the session cookie to be expired")
	}
}
