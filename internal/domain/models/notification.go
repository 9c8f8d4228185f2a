// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotificationNewVideo  = "new_video"
	NotificationNewReport = "new_report"
	NotificationReply     = "reply"
	NotificationBroadcast = "broadcast"
)

// Notification is an in-app message for one member.
type Notification struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  string             `bson:"user_id" json:"-"`
	Type    string             `bson:"type" json:"type"`
	Title   string             `bson:"title" json:"title"`
	Message string             `bson:"message,omitempty" json:"message,omitempty"`
	Link    string             `bson:"link,omitempty" json:"link,omitempty"`

	Read   bool       `bson:"read" json:"read"`
	ReadAt *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
