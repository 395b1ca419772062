package upload

import (
	"fmt"
	"net/url"
	"strings"
)

// DestinationID returns the course id in a host page URL: the numeric path
// segment right after "courses". When the URL has none, fallback is used if
// it is numeric.
func DestinationID(pageURL, fallback string) (string, error) {
	if u, err := url.Parse(pageURL); err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := 0; i+1 < len(segments); i++ {
			if segments[i] == "courses" && isNumeric(segments[i+1]) {
				return segments[i+1], nil
			}
		}
	}

	fallback = strings.TrimSpace(fallback)
	if isNumeric(fallback) {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: no course id in %q", ErrNoDestination, pageURL)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
