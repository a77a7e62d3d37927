package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int64
		wantLow  int64
		wantHigh int64
	}{
		{name: "already ordered", a: 3, b: 7, wantLow: 3, wantHigh: 7},
		{name: "reversed", a: 7, b: 3, wantLow: 3, wantHigh: 7},
		{name: "large ids", a: 9007199254740993, b: 12, wantLow: 12, wantHigh: 9007199254740993},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := NormalizePair(tt.a, tt.b)
			assert.Equal(t, tt.wantLow, low)
			assert.Equal(t, tt.wantHigh, high)
		})
	}
}

func TestNormalizePairSymmetry(t *testing.T) {
	lowA, highA := NormalizePair(42, 1001)
	lowB, highB := NormalizePair(1001, 42)
	assert.Equal(t, lowA, lowB)
	assert.Equal(t, highA, highB)
}

func TestOtherParticipant(t *testing.T) {
	conv := Conversation{ParticipantLowId: 3, ParticipantHighId: 7}

	other, ok := conv.OtherParticipant(3)
	assert.True(t, ok)
	assert.Equal(t, int64(7), other)

	other, ok = conv.OtherParticipant(7)
	assert.True(t, ok)
	assert.Equal(t, int64(3), other)

	_, ok = conv.OtherParticipant(99)
	assert.False(t, ok)
}

func TestUnreadCountFor(t *testing.T) {
	conv := Conversation{
		ParticipantLowId:  3,
		ParticipantHighId: 7,
		UnreadCountLow:    4,
		UnreadCountHigh:   1,
	}

	assert.Equal(t, int64(4), conv.UnreadCountFor(3))
	assert.Equal(t, int64(1), conv.UnreadCountFor(7))
	assert.Equal(t, int64(0), conv.UnreadCountFor(99))
}

func TestTruncatePreview(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, TruncatePreview(short))

	exact := strings.Repeat("a", PreviewMaxLen)
	assert.Equal(t, exact, TruncatePreview(exact))

	long := strings.Repeat("b", 150)
	got := TruncatePreview(long)
	assert.Len(t, got, PreviewMaxLen)
	assert.Equal(t, long[:PreviewMaxLen], got)
}

func TestTruncatePreviewMultibyte(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := TruncatePreview(long)
	assert.Equal(t, PreviewMaxLen, len([]rune(got)))
	assert.Equal(t, strings.Repeat("é", PreviewMaxLen), got)
}
