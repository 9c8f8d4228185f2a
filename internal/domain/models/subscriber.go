// internal/domain/models/subscriber.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subscriber is a member who registered for portal updates.
// UserID is the identity-provider user ID and is unique.
type Subscriber struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Name       string             `bson:"name,omitempty" json:"name,omitempty"`
	EmailOptIn bool               `bson:"email_opt_in" json:"email_opt_in"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
