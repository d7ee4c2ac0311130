package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims and drops empties",
			input:    []string{" it ", "", "  ", "en"},
			expected: []string{"it", "en"},
		},
		{
			name:     "dedupes preserving first-seen order",
			input:    []string{"en", "it", "en", "fr", "it"},
			expected: []string{"en", "it", "fr"},
		},
		{
			name:     "keeps locale tag casing",
			input:    []string{"pt-BR", "pt-br", "PT-BR"},
			expected: []string{"pt-BR", "pt-br", "PT-BR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "hosts collapse case-insensitively",
			input:    []string{"Amore.Example", "amore.example", "WWW.AMORE.EXAMPLE"},
			expected: []string{"amore.example", "www.amore.example"},
		},
		{
			name:     "trims, lowercases, drops empties",
			input:    []string{"  Google ", "facebook", "GOOGLE", ""},
			expected: []string{"google", "facebook"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
