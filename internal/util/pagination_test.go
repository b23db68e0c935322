package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name             string
		page, size       int
		wantFrom, wantLm int
	}{
		{name: "defaults", page: 0, size: 0, wantFrom: 0, wantLm: DefaultPageSize},
		{name: "third page", page: 3, size: 20, wantFrom: 40, wantLm: 20},
		{name: "too large size", page: 2, size: 500, wantFrom: DefaultPageSize, wantLm: DefaultPageSize},
		{name: "negative page", page: -4, size: 5, wantFrom: 0, wantLm: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, limit := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantLm, limit)
		})
	}
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("7", 1))
	assert.Equal(t, 1, ParseIntDefault("", 1))
	assert.Equal(t, 1, ParseIntDefault("x", 1))

	id, ok := ParseID("12")
	assert.True(t, ok)
	assert.EqualValues(t, 12, id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, ok := ParseID(bad)
		assert.False(t, ok, bad)
	}
}
