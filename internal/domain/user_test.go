package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmail(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare address", "a@x.com", "a@x.com", false},
		{"lower-cased and trimmed", "  Ada@Example.com ", "ada@example.com", false},
		{"display name", "Bob <A@X.com>", "", true},
		{"quoted display name", `"Bob" <a@x.com>`, "", true},
		{"angle brackets", "<a@x.com>", "", true},
		{"trailing comment", "a@x.com (comment)", "", true},
		{"no domain", "not-an-email", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEmail(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
