package course

import "testing"

func TestVideoID(t *testing.T) {
	tests := []struct {
		name   string
		link   string
		wantID string
		wantOK bool
	}{
		{name: "watch", link: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "watch with params", link: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "second param", link: "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "short", link: "https://youtu.be/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "embed", link: "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "v path", link: "https://www.youtube.com/v/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "user path", link: "https://www.youtube.com/u/w/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "fragment", link: "https://youtu.be/dQw4w9WgXcQ#t=1", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "id too short", link: "https://youtu.be/abc", wantOK: false},
		{name: "id too long", link: "https://youtu.be/dQw4w9WgXcQx", wantOK: false},
		{name: "not youtube", link: "https://example.com/video", wantOK: false},
		{name: "empty", link: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := VideoID(tt.link)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("VideoID(%q) = %q, %v, want %q, %v", tt.link, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestEmbedURL(t *testing.T) {
	if got := EmbedURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/embed/dQw4w9WgXcQ" {
		t.Errorf("EmbedURL() = %q", got)
	}
}
