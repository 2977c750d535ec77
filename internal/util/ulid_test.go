package util

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewULID(t *testing.T) {
	id := NewULID()
	assert.Len(t, id, 26)
	assert.True(t, IsULID(id))
	assert.NotEqual(t, id, NewULID())
}

func TestIsULID_Invalid(t *testing.T) {
	assert.False(t, IsULID(""))
	assert.False(t, IsULID("not-a-ulid"))
	assert.False(t, IsULID("01HGZ8VNRYXS8QKNJV5GRWPWD")) // 25 chars
}

func TestNewPlaceholderRunID(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	id := NewPlaceholderRunID(now)

	assert.Regexp(t, regexp.MustCompile(`^mock_\d+_[0-9a-z]{9}$`), id)
	assert.Contains(t, id, "_1718000000123_")
	assert.NotEqual(t, id, NewPlaceholderRunID(now))
}

func TestRandomBase36(t *testing.T) {
	s := RandomBase36(32)
	assert.Regexp(t, `^[0-9a-z]{32}$`, s)
}
