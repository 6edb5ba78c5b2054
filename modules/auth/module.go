package auth

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/lugezz/git-test/modules/storage"
)

// Module provides registration, login, and session resolution on top of
// the shared storage module.
type Module struct {
	storage       *storage.Module
	service       *Service
	sessionConfig SessionConfig
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new auth module.
func NewModule(storageModule *storage.Module, sessionConfig SessionConfig) *Module {
	return &Module{
		storage:       storageModule,
		sessionConfig: sessionConfig,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// Start wires the repository, hasher, and session manager. The storage
// module must have been started first.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not started")
	}

	repo := NewUserRepository(db)
	hasher := NewPasswordHasher()
	sessions := NewSessionManager(m.sessionConfig)
	m.service = NewService(repo, hasher, sessions)

	log.Println("[auth] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Service returns the auth service instance. It is nil before Start.
func (m *Module) Service() *Service {
	return m.service
}
