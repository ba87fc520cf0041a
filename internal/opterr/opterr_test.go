package opterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindIO, "writing cache", cause)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "io")
}

func TestIsMatchesByKindOnly(t *testing.T) {
	err := Wrap(KindCacheNotFound, "no cache file", errors.New("stat failed"))
	assert.True(t, errors.Is(err, New(KindCacheNotFound, "")))
	assert.False(t, errors.Is(err, New(KindIO, "")))
}

func TestKindOfReturnsOutermostKind(t *testing.T) {
	inner := New(KindReference, "dangling stop id")
	wrapped := Wrap(KindInvariant, "route build failed", inner)
	assert.Equal(t, KindInvariant, KindOf(wrapped))
}

func TestCSVParseCarriesFileAndRecord(t *testing.T) {
	err := CSVParse("stops.txt", "12,,45.5", "missing stop_id", nil)
	assert.Equal(t, "stops.txt", err.File)
	assert.Equal(t, "12,,45.5", err.Record)
}
