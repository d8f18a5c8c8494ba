package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "web-development", Slugify("  Web Development "))
	assert.Equal(t, Slugify("Web  Development"), Slugify("web development"))
	assert.True(t, ValidSlug("web-development"))
	assert.False(t, ValidSlug("Web Development"))
}
