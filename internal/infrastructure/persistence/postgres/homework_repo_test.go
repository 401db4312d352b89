package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		firstName string
		lastName  string
		username  string
		code      string
		want      string
	}{
		{"full name", "Aidana", "Serik", "aidana", "st001", "Aidana Serik"},
		{"first name only", "Aidana", "", "aidana", "st001", "Aidana"},
		{"username fallback", "", "", "aidana", "st001", "@aidana"},
		{"code fallback", "", "", "", "st001", "st001"},
		{"missing creator row", "", "", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := displayName(tt.firstName, tt.lastName, tt.username, tt.code)
			assert.Equal(t, tt.want, got)
		})
	}
}
