package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/lugezz/git-test/domain/forum"
)

func TestAPIRoutes(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var routes []string
	if err := json.NewDecoder(resp.Body).Decode(&routes); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(routes) != 3 {
		t.Errorf("expected 3 routes, got %d: %v", len(routes), routes)
	}
}

func TestAPIRooms(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	host, _ := env.registerUser(t, "alice", "correct-horse")

	if _, err := env.forum.Service().CreateRoom(ctx, host.ID, "python", "Room A", ""); err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	if _, err := env.forum.Service().CreateRoom(ctx, host.ID, "golang", "Room B", ""); err != nil {
		t.Fatalf("failed to create room: %v", err)
	}

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != fiberJSONContentType {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var rooms []domain.Room
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("expected 2 rooms, got %d", len(rooms))
	}
	for _, room := range rooms {
		if room.Host == nil || room.Topic == nil {
			t.Errorf("expected host and topic to be embedded, got %+v", room)
		}
	}
}

func TestAPIRoom(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()
	host, _ := env.registerUser(t, "alice", "correct-horse")

	created, err := env.forum.Service().CreateRoom(ctx, host.ID, "python", "Room A", "talk")
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}

	t.Run("existing room", func(t *testing.T) {
		resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/"+created.ID, nil), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}

		var room domain.Room
		if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if room.ID != created.ID || room.Name != "Room A" {
			t.Errorf("expected room %q, got %+v", created.ID, room)
		}
	})

	t.Run("unknown id is a JSON 404", func(t *testing.T) {
		resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/rooms/no-such-id", nil), -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", resp.StatusCode)
		}

		var body apiError
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("expected a JSON error body: %v", err)
		}
		if body.Error != "not_found" {
			t.Errorf("expected error not_found, got %q", body.Error)
		}
	})
}

// fiberJSONContentType is the content type Fiber sets on JSON responses.
const fiberJSONContentType = "application/json"
