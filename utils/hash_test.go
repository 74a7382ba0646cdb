package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
	assert.Equal(t, ContentHash([]byte("resume")), ContentHash([]byte("resume")))
	assert.NotEqual(t, ContentHash([]byte("resume a")), ContentHash([]byte("resume b")))
	assert.Len(t, ShortHash([]byte("resume")), 12)
}
