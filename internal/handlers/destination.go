package handlers

import (
	"errors"
	"net/url"
	"strings"
)

// MaxDestinationLength is the longest destination accepted for shortening.
const MaxDestinationLength = 2048

var (
	ErrEmptyDestination   = errors.New("url cannot be empty")
	ErrDestinationTooLong = errors.New("url exceeds 2048 characters")
	ErrInvalidDestination = errors.New("invalid url")
)

// NormalizeDestination validates a destination and returns the form that is stored.
//   - Surrounding whitespace is trimmed
//   - A missing scheme becomes https://
//   - Only http and https with a dotted host are accepted
func NormalizeDestination(raw string) (string, error) {
	dest := strings.TrimSpace(raw)
	if dest == "" {
		return "", ErrEmptyDestination
	}

	dest = withScheme(dest)

	if len(dest) > MaxDestinationLength {
		return "", ErrDestinationTooLong
	}

	u, err := url.Parse(dest)
	if err != nil {
		return "", errors.Join(ErrInvalidDestination, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidDestination
	}

	if u.Host == "" || !strings.Contains(u.Hostname(), ".") {
		return "", ErrInvalidDestination
	}

	return dest, nil
}

func withScheme(dest string) string {
	if strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://") {
		return dest
	}

	return "https://" + dest
}
