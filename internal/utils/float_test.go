package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArgs(t *testing.T) {
	f, ok := ParseFloatArg("2.5")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = ParseFloatArg("NaN")
	assert.False(t, ok)

	n, ok := ParseIntArg("12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = ParseIntArg("1.5")
	assert.False(t, ok)

	b, ok := ParseBoolArg("true")
	assert.True(t, ok)
	assert.True(t, b)
}
