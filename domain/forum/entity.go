package forum

import (
	"time"

	"github.com/lugezz/git-test/domain/user"
)

// Topic is a free-text category label. Names are unique and created
// lazily the first time a room references them.
type Topic struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:200;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the Topic entity.
func (Topic) TableName() string {
	return "topics"
}

// Room is a discussion room. It always belongs to exactly one host and
// one topic. Participants are the users who have posted in the room.
type Room struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	HostID       string      `gorm:"size:36;not null;index" json:"host_id"`
	Host         *user.User  `gorm:"foreignKey:HostID" json:"host,omitempty"`
	TopicID      string      `gorm:"size:36;not null;index" json:"topic_id"`
	Topic        *Topic      `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Name         string      `gorm:"size:200" json:"name"`
	Description  string      `gorm:"size:1000" json:"description"`
	Participants []user.User `gorm:"many2many:room_participants" json:"participants,omitempty"`
	Messages     []Message   `gorm:"foreignKey:RoomID" json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName returns the table name for the Room entity.
func (Room) TableName() string {
	return "rooms"
}

// OwnerID returns the id of the user allowed to mutate the room.
func (r *Room) OwnerID() string {
	return r.HostID
}

// Message is a single post inside a room.
type Message struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"size:36;not null;index" json:"user_id"`
	User      *user.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RoomID    string     `gorm:"size:36;not null;index" json:"room_id"`
	Body      string     `gorm:"size:2000;not null" json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// OwnerID returns the id of the user allowed to mutate the message.
func (m *Message) OwnerID() string {
	return m.UserID
}

// Ownable is satisfied by entities with a single owning user.
type Ownable interface {
	OwnerID() string
}

// CanMutate reports whether the given user may update or delete the
// entity. It is the single authorization predicate applied before every
// mutation of owned entities.
func CanMutate(userID string, entity Ownable) bool {
	return userID != "" && userID == entity.OwnerID()
}
