package timestamp

import (
	"testing"
	"time"
)

var (
	testTime   = time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	testTimeMs = int64(1673785845123)
)

func TestNow(t *testing.T) {
	before := time.Now().UnixMilli()
	ts := Now()
	after := time.Now().UnixMilli()

	if ts < before || ts > after {
		t.Errorf("Now() = %d, expected between %d and %d", ts, before, after)
	}
}

func TestToUnixMs(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected int64
	}{
		{name: "normal time", input: testTime, expected: testTimeMs},
		{name: "zero time", input: time.Time{}, expected: 0},
		{name: "unix epoch", input: time.Unix(0, 0), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToUnixMs(tt.input)
			if result != tt.expected {
				t.Errorf("ToUnixMs(%v) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFromUnixMs(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected time.Time
	}{
		{name: "normal timestamp", input: testTimeMs, expected: time.UnixMilli(testTimeMs)},
		{name: "zero timestamp", input: 0, expected: time.Time{}},
		{name: "negative timestamp", input: -1000, expected: time.UnixMilli(-1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromUnixMs(tt.input)
			if !result.Equal(tt.expected) {
				t.Errorf("FromUnixMs(%d) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSince(t *testing.T) {
	oneSecondAgo := time.Now().Add(-time.Second).UnixMilli()
	duration := Since(oneSecondAgo)

	if duration < 900*time.Millisecond || duration > 1100*time.Millisecond {
		t.Errorf("Since(%d) = %v, expected approximately 1 second", oneSecondAgo, duration)
	}

	if zeroDuration := Since(0); zeroDuration != 0 {
		t.Errorf("Since(0) = %v, expected 0", zeroDuration)
	}
}

func TestRoundTripAccuracy(t *testing.T) {
	now := time.Now()
	ms := ToUnixMs(now)
	back := FromUnixMs(ms)

	if back.UnixMilli() != now.UnixMilli() {
		t.Errorf("round trip lost precision: %v != %v", back, now)
	}
}
