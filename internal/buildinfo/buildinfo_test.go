package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		ctx           *Context
		wantVersion   string
		wantBuildDate string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty build date", NewContext("1.0.0", ""), "1.0.0", UnknownValue},
		{"pre-release tag", NewContext("1.0.0-beta.1", "2026-10-01"), "1.0.0-beta.1", "2026-10-01"},
		{"build metadata", NewContext("1.0.0+build.123", "2026-10-01"), "1.0.0+build.123", "2026-10-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVersion, tt.ctx.Version())
			assert.Equal(t, tt.wantBuildDate, tt.ctx.BuildDate())
		})
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	s := NewContext("2.1.0", "2026-10-18").String()
	assert.Contains(t, s, "2.1.0 (built 2026-10-18, ")
	assert.Contains(t, s, runtime.Version())
}
