// internal/domain/models/comment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment target types.
const (
	TargetVideo  = "video"
	TargetReport = "report"
)

// IsValidTarget reports whether t names a commentable content type.
func IsValidTarget(t string) bool {
	return t == TargetVideo || t == TargetReport
}

// Comment is a member comment on a video or report.
//
// Threads are one level deep: ParentID, when set, always points at a root
// comment on the same target. Likes holds the identity-provider user IDs of
// members who liked the comment.
type Comment struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TargetType string              `bson:"target_type" json:"target_type"`
	TargetID   primitive.ObjectID  `bson:"target_id" json:"target_id"`
	ParentID   *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`

	UserID    string `bson:"user_id" json:"user_id"`
	UserName  string `bson:"user_name" json:"user_name"`
	UserImage string `bson:"user_image,omitempty" json:"user_image,omitempty"`

	Content string   `bson:"content" json:"content"`
	Likes   []string `bson:"likes" json:"-"`
	Edited  bool     `bson:"edited" json:"edited"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// LikedBy reports whether userID is in the likes list.
func (c Comment) LikedBy(userID string) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
