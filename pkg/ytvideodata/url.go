package ytvideodata

import (
	"errors"
	"regexp"
)

var ErrInvalidVideoURL = errors.New("invalid youtube url")

// Matches watch (?v=), youtu.be, embed, shorts, /v/ and channel-style URLs; the id is 11 chars.
var videoIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|embed|shorts)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractID returns the video id from a youtube url without touching the network.
func ExtractID(rawURL string) (string, error) {
	match := videoIDPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return "", ErrInvalidVideoURL
	}

	return match[1], nil
}
