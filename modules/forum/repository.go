package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lugezz/git-test/domain/forum"
	"github.com/lugezz/git-test/domain/user"
)

var (
	// ErrRoomNotFound is returned when a room id does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrMessageNotFound is returned when a message id does not resolve.
	ErrMessageNotFound = errors.New("message not found")
)

// TopicRepository handles topic persistence.
type TopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new TopicRepository.
func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// GetOrCreate fetches the topic with the given name or inserts it if
// absent. The insert tolerates a concurrent winner, so two rooms naming
// the same new topic never produce duplicates.
func (r *TopicRepository) GetOrCreate(ctx context.Context, name string) (*forum.Topic, error) {
	topic := forum.Topic{
		ID:   uuid.New().String(),
		Name: name,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&topic).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	var out forum.Topic
	if err := r.db.WithContext(ctx).First(&out, "name = ?", name).Error; err != nil {
		return nil, fmt.Errorf("failed to load topic: %w", err)
	}
	return &out, nil
}

// List retrieves topics whose name contains q (case-insensitive).
// An empty q matches everything; limit <= 0 means no limit.
func (r *TopicRepository) List(ctx context.Context, q string, limit int) ([]forum.Topic, error) {
	var topics []forum.Topic
	query := r.db.WithContext(ctx).Order("name ASC")
	if q != "" {
		query = query.Where("name LIKE ?", "%"+q+"%")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

// RoomRepository handles room persistence.
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create saves a new room.
func (r *RoomRepository) Create(ctx context.Context, room *forum.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// FindByID retrieves a room with its topic, host, participants, and
// messages. Messages come back in creation order with their authors.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*forum.Room, error) {
	var room forum.Room
	err := r.db.WithContext(ctx).
		Preload("Topic").
		Preload("Host").
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at ASC")
		}).
		Preload("Messages.User").
		First(&room, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

// Search retrieves rooms whose topic name, room name, or description
// contains q (case-insensitive, OR across the three fields). An empty q
// returns every room.
func (r *RoomRepository) Search(ctx context.Context, q string) ([]forum.Room, error) {
	var rooms []forum.Room
	pattern := "%" + q + "%"
	err := r.db.WithContext(ctx).
		Joins("JOIN topics ON topics.id = rooms.topic_id").
		Where("topics.name LIKE ? OR rooms.name LIKE ? OR rooms.description LIKE ?",
			pattern, pattern, pattern).
		Preload("Topic").
		Preload("Host").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search rooms: %w", err)
	}
	return rooms, nil
}

// FindAll retrieves every room with topic, host, and participants, as
// served by the read-only JSON API.
func (r *RoomRepository) FindAll(ctx context.Context) ([]forum.Room, error) {
	var rooms []forum.Room
	err := r.db.WithContext(ctx).
		Preload("Topic").
		Preload("Host").
		Preload("Participants").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// FindByHost retrieves the rooms created by the given user.
func (r *RoomRepository) FindByHost(ctx context.Context, hostID string) ([]forum.Room, error) {
	var rooms []forum.Room
	err := r.db.WithContext(ctx).
		Preload("Topic").
		Preload("Host").
		Where("host_id = ?", hostID).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms by host: %w", err)
	}
	return rooms, nil
}

// Update saves the room's mutable fields.
func (r *RoomRepository) Update(ctx context.Context, room *forum.Room) error {
	if err := r.db.WithContext(ctx).Save(room).Error; err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	return nil
}

// Delete removes the room along with its messages and participant
// links, all in one transaction.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&forum.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete room messages: %w", err)
		}
		if err := tx.Exec("DELETE FROM room_participants WHERE room_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete room participants: %w", err)
		}
		result := tx.Delete(&forum.Room{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete room: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRoomNotFound
		}
		return nil
	})
}

// AddParticipant records the user as a participant of the room. The
// underlying association insert is a no-op when the link already
// exists, so repeated posts keep membership idempotent.
func (r *RoomRepository) AddParticipant(ctx context.Context, room *forum.Room, u *user.User) error {
	err := r.db.WithContext(ctx).Model(room).Association("Participants").Append(u)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// CountAll returns the total number of rooms across all topics.
func (r *RoomRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&forum.Room{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return count, nil
}

// MessageRepository handles message persistence.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create saves a new message.
func (r *MessageRepository) Create(ctx context.Context, msg *forum.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindByID retrieves a message with its author.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*forum.Message, error) {
	var msg forum.Message
	err := r.db.WithContext(ctx).Preload("User").First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &msg, nil
}

// Delete removes a message.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&forum.Message{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Recent retrieves the most recently created messages, newest first.
func (r *MessageRepository) Recent(ctx context.Context, limit int) ([]forum.Message, error) {
	var msgs []forum.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return msgs, nil
}

// FindByUser retrieves the messages written by the given user.
func (r *MessageRepository) FindByUser(ctx context.Context, userID string) ([]forum.Message, error) {
	var msgs []forum.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by user: %w", err)
	}
	return msgs, nil
}

// FindByTopicMatch retrieves messages belonging to rooms whose topic
// name contains q (case-insensitive).
func (r *MessageRepository) FindByTopicMatch(ctx context.Context, q string) ([]forum.Message, error) {
	var msgs []forum.Message
	err := r.db.WithContext(ctx).
		Joins("JOIN rooms ON rooms.id = messages.room_id").
		Joins("JOIN topics ON topics.id = rooms.topic_id").
		Where("topics.name LIKE ?", "%"+q+"%").
		Preload("User").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by topic: %w", err)
	}
	return msgs, nil
}
