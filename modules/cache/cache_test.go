package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// setupTestCache connects to a local Redis instance, skipping the test
// when none is reachable. A random prefix isolates test runs.
func setupTestCache(t *testing.T) *Cache {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	c := New(client, "test:"+uuid.New().String()+":", time.Minute)
	if err := c.Ping(context.Background()); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = c.DeletePattern(context.Background(), "*")
		_ = c.Close()
	})
	return c
}

func TestCache_GetSet(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var missing payload
	hit, err := c.Get(ctx, "rooms", &missing)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("expected a miss for an unset key")
	}

	want := payload{Name: "Room A", Count: 3}
	if err := c.Set(ctx, "rooms", want); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got payload
	hit, err = c.Get(ctx, "rooms", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Fatal("expected a hit after Set")
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestCache_Delete(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "rooms", "value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Delete(ctx, "rooms"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var out string
	hit, err := c.Get(ctx, "rooms", &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("expected a miss after Delete")
	}
}

func TestCache_DeletePattern(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"all", "room-1", "room-2"} {
		if err := c.Set(ctx, key, "value"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if err := c.DeletePattern(ctx, "*"); err != nil {
		t.Fatalf("DeletePattern() error = %v", err)
	}

	for _, key := range []string{"all", "room-1", "room-2"} {
		var out string
		hit, err := c.Get(ctx, key, &out)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if hit {
			t.Errorf("expected %q to be deleted", key)
		}
	}
}
