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
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{
			name:     "labels trimmed and deduped in order",
			input:    []string{" fragile ", "cold-chain", "fragile", "", "  ", "cold-chain"},
			expected: []string{"fragile", "cold-chain"},
		},
		{
			name:     "case is preserved",
			input:    []string{"Hazmat", "hazmat"},
			expected: []string{"Hazmat", "hazmat"},
		},
		{
			name:     "all blank",
			input:    []string{" ", ""},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	got := DedupeAndTrimLower([]string{" Lab.Example.com", "lab.example.com", "*.Partner.io "})
	assert.Equal(t, []string{"lab.example.com", "*.partner.io"}, got)
	assert.Nil(t, DedupeAndTrimLower(nil))
}
