package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bantrap/internal/platform"
)

func TestIsExempt(t *testing.T) {
	tests := []struct {
		name string
		caps platform.Capabilities
		want bool
	}{
		{"no rights", 0, false},
		{"administrator", platform.CapAdminister, true},
		{"ban members", platform.CapBanMembers, true},
		{"both", platform.CapAdminister | platform.CapBanMembers, true},
		{"unrelated bits", platform.Capabilities(1 << 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExempt(tt.caps))
		})
	}
}
