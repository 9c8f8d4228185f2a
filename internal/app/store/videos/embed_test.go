package videostore

import "testing"

func TestParseVideoURL(t *testing.T) {
	tests := []struct {
		url      string
		platform string
		id       string
		ok       bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42", "youtube", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "youtube", "dQw4w9WgXcQ", true},
		{"https://vimeo.com/76979871", "vimeo", "76979871", true},
		{"https://player.vimeo.com/video/76979871", "vimeo", "76979871", true},
		{"https://www.youtube.com/watch?v=short", "", "", false},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", "", false},
		{"ftp://youtu.be/dQw4w9WgXcQ", "", "", false},
		{"not a url", "", "", false},
		{"https://vimeo.com/about", "", "", false},
	}
	for _, tt := range tests {
		p, id, ok := ParseVideoURL(tt.url)
		if ok != tt.ok || p != tt.platform || id != tt.id {
			t.Errorf("ParseVideoURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.url, p, id, ok, tt.platform, tt.id, tt.ok)
		}
	}
}

func TestDefaultThumbnail(t *testing.T) {
	if got := DefaultThumbnail("youtube", "abc"); got != "https://img.youtube.com/vi/abc/hqdefault.jpg" {
		t.Errorf("youtube thumbnail: got %q", got)
	}
	if got := DefaultThumbnail("vimeo", "123"); got != "" {
		t.Errorf("vimeo thumbnail: got %q", got)
	}
}

func TestEmbedURL(t *testing.T) {
	if got := EmbedURL("vimeo", "123"); got != "https://player.vimeo.com/video/123" {
		t.Errorf("vimeo embed: got %q", got)
	}
	if got := EmbedURL("dailymotion", "x"); got != "" {
		t.Errorf("unknown platform: got %q", got)
	}
}
