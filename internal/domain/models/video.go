// internal/domain/models/video.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Video platforms recognized from the video URL.
const (
	PlatformYouTube = "youtube"
	PlatformVimeo   = "vimeo"
)

// Video is an embedded YouTube/Vimeo video published on the portal.
type Video struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title   string             `bson:"title" json:"title"`
	TitleCI string             `bson:"title_ci" json:"-"` // lowercase, diacritics-stripped

	Description  string `bson:"description,omitempty" json:"description,omitempty"`
	URL          string `bson:"url" json:"url"`
	Platform     string `bson:"platform" json:"platform"`
	EmbedID      string `bson:"embed_id" json:"embed_id"`
	ThumbnailURL string `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`

	Category string   `bson:"category,omitempty" json:"category,omitempty"`
	Tickers  []string `bson:"tickers,omitempty" json:"tickers,omitempty"`
	Premium  bool     `bson:"premium" json:"premium"`

	Status      string     `bson:"status" json:"status"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// IsPublished reports whether the video is visible on the public site.
func (v Video) IsPublished() bool { return v.Status == StatusPublished }
