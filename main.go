package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	authmod "github.com/lugezz/git-test/modules/auth"
	cachemod "github.com/lugezz/git-test/modules/cache"
	forummod "github.com/lugezz/git-test/modules/forum"
	storagemod "github.com/lugezz/git-test/modules/storage"
	webmod "github.com/lugezz/git-test/modules/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	dbPath := getEnv("DB_PATH", "./forum.db")
	httpPort := getEnvInt("HTTP_PORT", 8000)
	redisAddr := getEnv("REDIS_ADDR", "")
	cacheTTL := getEnvDuration("CACHE_TTL", 5*time.Minute)

	sessionConfig := authmod.DefaultSessionConfig()
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		sessionConfig.SecretKey = secret
	}

	log.Println("=== Forum ===")
	log.Printf("Database: %s", dbPath)
	log.Printf("HTTP Port: %d", httpPort)
	if redisAddr != "" {
		log.Printf("Redis: %s (TTL: %s)", redisAddr, cacheTTL)
	}

	// Create modules
	storageModule := storagemod.NewModule(dbPath)
	cacheModule := cachemod.NewModule(redisAddr, "rooms:", cacheTTL)
	authModule := authmod.NewModule(storageModule, sessionConfig)
	forumModule := forummod.NewModule(storageModule)
	webModule := webmod.NewModule(":"+strconv.Itoa(httpPort), authModule, forumModule, cacheModule)
	webModule.AddHealthCheck("storage", storageModule)
	webModule.AddHealthCheck("cache", cacheModule)

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Register modules with the framework.
	// Order: independent modules first, then dependent modules
	app.Register(storageModule) // Shared database
	app.Register(cacheModule)   // Optional Redis cache
	app.Register(authModule)    // Depends on storage
	app.Register(forumModule)   // Depends on storage
	app.Register(webModule)     // Depends on auth + forum

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wire the optional cache into the forum service for invalidation
	forumModule.SetCache(cacheModule.Cache())

	printStartupInfo(httpPort)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port int) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("Pages (http://localhost:%d):", port)
	log.Println("  GET  /                       - Home / room search")
	log.Println("  GET  /room/:id/              - Room detail; POST to send a message")
	log.Println("  GET  /create-room/           - New room form (login required)")
	log.Println("  GET  /room/:id/update/       - Edit room (host only)")
	log.Println("  GET  /room/:id/delete/       - Delete room (host only)")
	log.Println("  GET  /delete_message/:id/    - Delete message (author only)")
	log.Println("  GET  /login/ /register/ /logout/")
	log.Println("  GET  /profile/:id/ /topics/ /activity/ /update-user/")
	log.Println("")
	log.Println("Read-only API:")
	log.Println("  GET  /api                    - List API routes")
	log.Println("  GET  /api/rooms              - All rooms as JSON")
	log.Println("  GET  /api/rooms/:id          - Single room or 404")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
