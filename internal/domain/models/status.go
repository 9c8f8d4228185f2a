// internal/domain/models/status.go
package models

// Publication states shared by videos and reports.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// IsValidStatus reports whether s is a known publication state.
func IsValidStatus(s string) bool {
	return s == StatusDraft || s == StatusPublished
}
