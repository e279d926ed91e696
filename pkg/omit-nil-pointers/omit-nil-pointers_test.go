package omitnilpointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOmitNilPointers(t *testing.T) {
	isPlaying := true
	var currentTime *float64

	fields := OmitNilPointers(map[string]any{
		"is_playing":   &isPlaying,
		"current_time": currentTime,
		"updated_at":   int64(10),
		"driver_id":    nil,
	})

	assert.Equal(t, map[string]any{
		"is_playing": true,
		"updated_at": int64(10),
	}, fields)
	assert.Equal(t, []any{"is_playing", true, "updated_at", int64(10)}, Pairs(fields))
}
