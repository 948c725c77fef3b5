package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDestination(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "keeps https url",
			input:    "https://example.com/path?foo=bar",
			expected: "https://example.com/path?foo=bar",
		},
		{
			name:     "keeps http url",
			input:    "http://example.com",
			expected: "http://example.com",
		},
		{
			name:     "adds https when scheme is missing",
			input:    "example.com/landing",
			expected: "https://example.com/landing",
		},
		{
			name:     "trims whitespace",
			input:    "  https://example.com  ",
			expected: "https://example.com",
		},
		{
			name:     "keeps port",
			input:    "https://example.com:8080/path",
			expected: "https://example.com:8080/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDestination(tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeDestination_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{name: "empty", input: "", err: ErrEmptyDestination},
		{name: "blank", input: "   ", err: ErrEmptyDestination},
		{name: "too long", input: "https://example.com/" + strings.Repeat("a", MaxDestinationLength), err: ErrDestinationTooLong},
		{name: "host without dot", input: "https://localhost/path", err: ErrInvalidDestination},
		{name: "other scheme", input: "ftp://example.com", err: ErrInvalidDestination},
		{name: "unparsable", input: "https://exa mple.com:port", err: ErrInvalidDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeDestination(tt.input)

			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNormalizeDestination_LengthBoundary(t *testing.T) {
	prefix := "https://example.com/"
	exact := prefix + strings.Repeat("a", MaxDestinationLength-len(prefix))

	got, err := NormalizeDestination(exact)

	require.NoError(t, err)
	assert.Len(t, got, MaxDestinationLength)
}
