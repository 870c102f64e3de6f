package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		fold     func(string) string
		expected []string
	}{
		{"nothing in", nil, nil, nil},
		{"only blanks", []string{"", "  "}, strings.ToUpper, nil},
		{"keeps case without fold", []string{" Employer", "employer"}, nil, []string{"Employer", "employer"}},
		{"state codes", []string{"tx", " TX ", "ak", "Tx"}, strings.ToUpper, []string{"TX", "AK"}},
		{"text values", []string{"EMPLOYER", "military", "Employer "}, strings.ToLower, []string{"employer", "military"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Canonicalize(tt.input, tt.fold))
		})
	}
}
