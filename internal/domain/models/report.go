// internal/domain/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report is a research report, normally a PDF kept in file storage.
// ExternalURL is used instead of a stored file for reports hosted elsewhere.
type Report struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title   string             `bson:"title" json:"title"`
	TitleCI string             `bson:"title_ci" json:"-"`

	Summary  string   `bson:"summary,omitempty" json:"summary,omitempty"`
	Category string   `bson:"category,omitempty" json:"category,omitempty"`
	Tickers  []string `bson:"tickers,omitempty" json:"tickers,omitempty"`
	Premium  bool     `bson:"premium" json:"premium"`

	FileKey     string `bson:"file_key,omitempty" json:"-"`
	FileName    string `bson:"file_name,omitempty" json:"file_name,omitempty"`
	FileSize    int64  `bson:"file_size,omitempty" json:"file_size,omitempty"`
	ExternalURL string `bson:"external_url,omitempty" json:"external_url,omitempty"`

	Status      string     `bson:"status" json:"status"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// HasFile reports whether a PDF was uploaded for the report.
func (r Report) HasFile() bool { return r.FileKey != "" }

// HasDocument reports whether the report can be downloaded at all.
func (r Report) HasDocument() bool { return r.HasFile() || r.ExternalURL != "" }

// IsPublished reports whether the report is visible on the public site.
func (r Report) IsPublished() bool { return r.Status == StatusPublished }
