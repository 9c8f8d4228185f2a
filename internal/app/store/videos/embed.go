// internal/app/store/videos/embed.go
package videostore

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dalemusser/fiiportal/internal/domain/models"
)

var (
	youtubeIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDRE   = regexp.MustCompile(`^[0-9]{6,12}$`)
)

// ParseVideoURL recognizes YouTube and Vimeo links and returns the platform
// and the id used to build the embed player.
//
//	https://www.youtube.com/watch?v=ID   https://youtu.be/ID
//	https://www.youtube.com/embed/ID     https://www.youtube.com/shorts/ID
//	https://vimeo.com/123456789          https://player.vimeo.com/video/123456789
func ParseVideoURL(raw string) (platform, embedID string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtube.com", "youtube-nocookie.com":
		var id string
		switch {
		case len(parts) == 1 && parts[0] == "watch":
			id = u.Query().Get("v")
		case len(parts) >= 2 && (parts[0] == "embed" || parts[0] == "shorts" || parts[0] == "live"):
			id = parts[1]
		}
		if youtubeIDRE.MatchString(id) {
			return models.PlatformYouTube, id, true
		}
	case "youtu.be":
		if len(parts) >= 1 && youtubeIDRE.MatchString(parts[0]) {
			return models.PlatformYouTube, parts[0], true
		}
	case "vimeo.com":
		if len(parts) >= 1 && vimeoIDRE.MatchString(parts[len(parts)-1]) {
			return models.PlatformVimeo, parts[len(parts)-1], true
		}
	case "player.vimeo.com":
		if len(parts) == 2 && parts[0] == "video" && vimeoIDRE.MatchString(parts[1]) {
			return models.PlatformVimeo, parts[1], true
		}
	}
	return "", "", false
}

// DefaultThumbnail returns the platform thumbnail for an embed id. Vimeo has
// no predictable thumbnail URL, so it returns "".
func DefaultThumbnail(platform, embedID string) string {
	if platform == models.PlatformYouTube {
		return "https://img.youtube.com/vi/" + embedID + "/hqdefault.jpg"
	}
	return ""
}

// EmbedURL returns the iframe source for the video.
func EmbedURL(platform, embedID string) string {
	switch platform {
	case models.PlatformYouTube:
		return "https://www.youtube-nocookie.com/embed/" + embedID
	case models.PlatformVimeo:
		return "https://player.vimeo.com/video/" + embedID
	}
	return ""
}
