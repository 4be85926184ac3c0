package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		in        string
		wantFirst string
		wantLast  string
	}{
		{in: "", wantFirst: "Customer"},
		{in: "   ", wantFirst: "Customer"},
		{in: "Cher", wantFirst: "Cher"},
		{in: "Ana Perez", wantFirst: "Ana", wantLast: "Perez"},
		{in: "  Ana   Lucia  Perez ", wantFirst: "Ana", wantLast: "Lucia Perez"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first, last := SplitName(tt.in)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}
