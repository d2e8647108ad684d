package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		raw  string
		want Type
	}{
		{"", DefaultType},
		{"checking", TypeChecking},
		{"  Savings ", TypeSavings},
		{"CHECKING", TypeChecking},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseType(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseType("brokerage")
	assert.ErrorIs(t, err, ErrUnknownType)
}
