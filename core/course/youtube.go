package course

import "regexp"

const videoIDLen = 11

var youtubeRegex = regexp.MustCompile(`^.*(youtu.be\/|v\/|u\/\w\/|embed\/|watch\?v=|&v=)([^#&?]*).*`)

// VideoID extracts the 11-character video id from a YouTube URL.
// It reports false for links it cannot parse.
func VideoID(link string) (string, bool) {
	m := youtubeRegex.FindStringSubmatch(link)
	if m == nil || len(m[2]) != videoIDLen {
		return "", false
	}
	return m[2], true
}

// EmbedURL is the player URL for a video id.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}
