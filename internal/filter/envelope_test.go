package filter

import (
	"testing"

	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/stretchr/testify/assert"
)

func envelope(msgType bridge.MessageType, tsMs int64) *bridge.Envelope {
	return &bridge.Envelope{
		Type: msgType,
		Sample: bridge.LocationSample{
			Latitude:    51.5074,
			Longitude:   -0.1278,
			TimestampMs: tsMs,
		},
	}
}

func TestCriteria_Matches(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		env      *bridge.Envelope
		want     bool
	}{
		{
			name:     "empty criteria matches everything",
			criteria: Criteria{},
			env:      envelope(bridge.MessageTypeInit, 1000),
			want:     true,
		},
		{
			name:     "since bound passes newer sample",
			criteria: Criteria{SinceTimestampMs: 500},
			env:      envelope(bridge.MessageTypeUpdate, 1000),
			want:     true,
		},
		{
			name:     "since bound rejects older sample",
			criteria: Criteria{SinceTimestampMs: 2000},
			env:      envelope(bridge.MessageTypeUpdate, 1000),
			want:     false,
		},
		{
			name:     "until bound rejects newer sample",
			criteria: Criteria{UntilTimestampMs: 500},
			env:      envelope(bridge.MessageTypeUpdate, 1000),
			want:     false,
		},
		{
			name:     "type filter matches",
			criteria: Criteria{Type: bridge.MessageTypeInit},
			env:      envelope(bridge.MessageTypeInit, 1000),
			want:     true,
		},
		{
			name:     "type filter rejects other type",
			criteria: Criteria{Type: bridge.MessageTypeInit},
			env:      envelope(bridge.MessageTypeUpdate, 1000),
			want:     false,
		},
		{
			name: "all criteria must match",
			criteria: Criteria{
				SinceTimestampMs: 500,
				UntilTimestampMs: 2000,
				Type:             bridge.MessageTypeUpdate,
			},
			env:  envelope(bridge.MessageTypeUpdate, 1000),
			want: true,
		},
		{
			name: "one failing criterion rejects",
			criteria: Criteria{
				SinceTimestampMs: 500,
				Type:             bridge.MessageTypeInit,
			},
			env:  envelope(bridge.MessageTypeUpdate, 1000),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(tt.env))
		})
	}
}

func TestCriteria_HasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{SinceTimestampMs: 1}).HasFilters())
	assert.True(t, (&Criteria{UntilTimestampMs: 1}).HasFilters())
	assert.True(t, (&Criteria{Type: bridge.MessageTypeInit}).HasFilters())
}
