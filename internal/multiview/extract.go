package multiview

import (
	"net/url"
	"regexp"
	"strings"
)

var streamIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// pathPrefixes lists youtube.com paths whose final segment is the id.
var pathPrefixes = []string{"/live/", "/shorts/", "/embed/"}

// ValidStreamID reports whether s is a well-formed 11-character token.
func ValidStreamID(s string) bool {
	return streamIDPattern.MatchString(s)
}

// ExtractStreamID parses pasted text into a StreamID. It accepts a bare token,
// a youtube.com watch/live/shorts/embed URL or a youtu.be short link.
func ExtractStreamID(input string) (StreamID, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if ValidStreamID(trimmed) {
		return StreamID(trimmed), true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	var candidate string
	switch {
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		candidate = fromVideoPath(u)
	case host == "youtu.be":
		candidate = lastSegment(u.Path)
	}
	if !ValidStreamID(candidate) {
		return "", false
	}
	return StreamID(candidate), true
}

func fromVideoPath(u *url.URL) string {
	if strings.HasPrefix(u.Path, "/watch") {
		return u.Query().Get("v")
	}
	for _, prefix := range pathPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return lastSegment(u.Path)
		}
	}
	return ""
}

func lastSegment(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
