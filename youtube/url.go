package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidVideoURL = errors.New("Invalid YouTube URL provided.")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID returns the video id of a youtube.com/watch, youtube.com/embed
// or youtu.be URL.
func ExtractVideoID(videoURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(videoURL))
	if err != nil {
		return "", ErrInvalidVideoURL
	}

	var id string

	switch strings.ToLower(u.Hostname()) {
	case "www.youtube.com", "youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")

		case strings.HasPrefix(u.Path, "/embed/"):
			segments := strings.Split(u.Path, "/")
			id = segments[2]
		}

	case "youtu.be":
		id = strings.TrimLeft(u.Path, "/")
	}

	if !videoIDPattern.MatchString(id) {
		return "", ErrInvalidVideoURL
	}

	return id, nil
}
