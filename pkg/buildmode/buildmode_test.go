//go:build !shipping

package buildmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDevelopmentConfiguration(t *testing.T) {
	assert.True(t, Enabled)
	assert.False(t, Shipping())
	assert.Equal(t, "development", Name())
}
