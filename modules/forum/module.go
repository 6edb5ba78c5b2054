package forum

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/lugezz/git-test/modules/cache"
	"github.com/lugezz/git-test/modules/storage"
)

// Module provides the forum service on top of the shared storage
// module.
type Module struct {
	storage *storage.Module
	service *Service
	cache   *cache.Cache
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new forum module.
func NewModule(storageModule *storage.Module) *Module {
	return &Module{
		storage: storageModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "forum"
}

// SetCache attaches the room cache before Start. A nil cache disables
// invalidation.
func (m *Module) SetCache(c *cache.Cache) {
	m.cache = c
	if m.service != nil {
		m.service.SetCache(c)
	}
}

// Start wires the repositories and service. The storage module must
// have been started first.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not started")
	}

	rooms := NewRoomRepository(db)
	topics := NewTopicRepository(db)
	messages := NewMessageRepository(db)
	m.service = NewService(rooms, topics, messages)
	if m.cache != nil {
		m.service.SetCache(m.cache)
	}

	log.Println("[forum] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[forum] Module stopped")
	return nil
}

// Service returns the forum service instance. It is nil before Start.
func (m *Module) Service() *Service {
	return m.service
}
