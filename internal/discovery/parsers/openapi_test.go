package parsers

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathToURLPattern(t *testing.T) {
	pattern := pathToURLPattern("/users/{id}/orders/{orderId}")
	re, err := regexp.Compile(pattern)
	require.NoError(t, err)
	assert.True(t, re.MatchString("/users/42/orders/7"))
	assert.False(t, re.MatchString("/users/42/orders/7/extra"))
}

func TestPathToURLPattern_NoParams(t *testing.T) {
	pattern := pathToURLPattern("/health")
	re, err := regexp.Compile(pattern)
	require.NoError(t, err)
	assert.True(t, re.MatchString("/health"))
	assert.False(t, re.MatchString("/health2"))
}
