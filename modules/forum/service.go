package forum

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/lugezz/git-test/domain/forum"
	"github.com/lugezz/git-test/domain/user"
	"github.com/lugezz/git-test/modules/cache"
)

// ErrForbidden is returned when a user tries to mutate an entity they
// do not own.
var ErrForbidden = errors.New("user is not allowed to modify this entity")

// ActivityWindow is the number of messages shown in the activity feed.
const ActivityWindow = 10

// Service implements the forum operations: room search and CRUD,
// message posting and deletion, topics, and the activity feed.
// Mutations invalidate the room cache when one is attached.
type Service struct {
	rooms    *RoomRepository
	topics   *TopicRepository
	messages *MessageRepository
	cache    *cache.Cache
}

// NewService creates a new forum Service.
func NewService(rooms *RoomRepository, topics *TopicRepository, messages *MessageRepository) *Service {
	return &Service{
		rooms:    rooms,
		topics:   topics,
		messages: messages,
	}
}

// SetCache attaches an optional room cache invalidated on mutations.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// SearchRooms returns the rooms matching q across topic name, room
// name, and description. An empty q returns the full room set.
func (s *Service) SearchRooms(ctx context.Context, q string) ([]forum.Room, error) {
	return s.rooms.Search(ctx, q)
}

// RecentMessagesForTopic returns messages belonging to rooms whose
// topic name matches q, for the home page feed.
func (s *Service) RecentMessagesForTopic(ctx context.Context, q string) ([]forum.Message, error) {
	return s.messages.FindByTopicMatch(ctx, q)
}

// ListTopics returns topics filtered by q; limit <= 0 means all.
func (s *Service) ListTopics(ctx context.Context, q string, limit int) ([]forum.Topic, error) {
	return s.topics.List(ctx, q, limit)
}

// RoomCount returns the total number of rooms across all topics.
func (s *Service) RoomCount(ctx context.Context) (int64, error) {
	return s.rooms.CountAll(ctx)
}

// GetRoom loads a room with its messages and participants.
func (s *Service) GetRoom(ctx context.Context, id string) (*forum.Room, error) {
	return s.rooms.FindByID(ctx, id)
}

// AllRooms returns every room for the read-only JSON API.
func (s *Service) AllRooms(ctx context.Context) ([]forum.Room, error) {
	return s.rooms.FindAll(ctx)
}

// CreateRoom creates a room hosted by the given user. The topic is
// get-or-created by name.
func (s *Service) CreateRoom(ctx context.Context, hostID, topicName, name, description string) (*forum.Room, error) {
	topic, err := s.topics.GetOrCreate(ctx, topicName)
	if err != nil {
		return nil, err
	}

	room := &forum.Room{
		ID:          uuid.New().String(),
		HostID:      hostID,
		TopicID:     topic.ID,
		Name:        name,
		Description: description,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	room.Topic = topic

	s.invalidateRoomCache(ctx)
	return room, nil
}

// UpdateRoom updates a room's topic, name, and description. Only the
// host may mutate the room; anyone else gets ErrForbidden and nothing
// is written.
func (s *Service) UpdateRoom(ctx context.Context, actorID, roomID, topicName, name, description string) error {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !forum.CanMutate(actorID, room) {
		return ErrForbidden
	}

	topic, err := s.topics.GetOrCreate(ctx, topicName)
	if err != nil {
		return err
	}

	room.TopicID = topic.ID
	room.Topic = topic
	room.Name = name
	room.Description = description
	if err := s.rooms.Update(ctx, room); err != nil {
		return err
	}

	s.invalidateRoomCache(ctx)
	return nil
}

// DeleteRoom deletes a room and cascades its messages and participant
// links. Only the host may delete the room.
func (s *Service) DeleteRoom(ctx context.Context, actorID, roomID string) error {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !forum.CanMutate(actorID, room) {
		return ErrForbidden
	}

	if err := s.rooms.Delete(ctx, room.ID); err != nil {
		return err
	}

	s.invalidateRoomCache(ctx)
	return nil
}

// PostMessage creates a message in the room and adds its author to the
// participants. Membership stays idempotent across repeated posts.
func (s *Service) PostMessage(ctx context.Context, author *user.User, roomID, body string) (*forum.Message, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	msg := &forum.Message{
		ID:     uuid.New().String(),
		UserID: author.ID,
		RoomID: room.ID,
		Body:   body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.rooms.AddParticipant(ctx, room, author); err != nil {
		return nil, err
	}

	s.invalidateRoomCache(ctx)
	return msg, nil
}

// GetMessage loads a message for the delete confirmation page.
func (s *Service) GetMessage(ctx context.Context, id string) (*forum.Message, error) {
	return s.messages.FindByID(ctx, id)
}

// DeleteMessage deletes a message and returns the id of the room it
// belonged to. Only the author may delete the message.
func (s *Service) DeleteMessage(ctx context.Context, actorID, messageID string) (string, error) {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if !forum.CanMutate(actorID, msg) {
		return "", ErrForbidden
	}

	if err := s.messages.Delete(ctx, msg.ID); err != nil {
		return "", err
	}

	s.invalidateRoomCache(ctx)
	return msg.RoomID, nil
}

// Activity returns the most recent messages, oldest of the window
// first: fetch newest-first, then reverse for display.
func (s *Service) Activity(ctx context.Context) ([]forum.Message, error) {
	msgs, err := s.messages.Recent(ctx, ActivityWindow)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// RoomsByHost returns the rooms created by the given user.
func (s *Service) RoomsByHost(ctx context.Context, hostID string) ([]forum.Room, error) {
	return s.rooms.FindByHost(ctx, hostID)
}

// MessagesByUser returns the messages written by the given user.
func (s *Service) MessagesByUser(ctx context.Context, userID string) ([]forum.Message, error) {
	return s.messages.FindByUser(ctx, userID)
}

// invalidateRoomCache drops every cached room payload. Best effort: a
// cache failure must never fail the write that triggered it.
func (s *Service) invalidateRoomCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "*"); err != nil {
		log.Printf("[forum] failed to invalidate room cache: %v", err)
	}
}

// IsNotFound reports whether the error is an unresolved room or
// message id, so handlers can map it to a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrMessageNotFound)
}
