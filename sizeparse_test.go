package lss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseSizeScenarioS6 pins scenario S6 exactly.
func TestParseSizeScenarioS6(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"4k", 4096},
		{"8 MB", 8 * 1024 * 1024},
		{"12G", 12 * 1024 * 1024 * 1024},
		{"32 PB", 32 * 1024 * 1024 * 1024 * 1024 * 1024},
		{"garbage", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseSize(c.in), "input %q", c.in)
	}
}

func TestParseSizeRejectsLowercaseByteSuffix(t *testing.T) {
	assert.Equal(t, int64(0), ParseSize("4kb"))
	assert.Equal(t, int64(4096), ParseSize("4kB"))
}
