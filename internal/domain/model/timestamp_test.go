package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"2099-01-01T00:00:00Z", "2099-01-01T00:00:00Z", true},
		{"2099-01-01T02:00:00+02:00", "2099-01-01T00:00:00Z", true},
		{"2099-01-01 00:00:00", "2099-01-01T00:00:00Z", true},
		{"2099-01-01T00:00", "2099-01-01T00:00:00Z", true},
		{"2099-01-01", "2099-01-01T00:00:00Z", true},
		{"next tuesday", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeTimestamp(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimestamp_ZoneLessUsesLocation(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)

	got, ok := ParseTimestamp("2026-02-10 12:00:00", berlin)

	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC), got.UTC())
}
