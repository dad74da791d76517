package timeutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatISO(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC)
	assert.Equal(t, "2024-01-01T10:00:30.000Z", FormatISO(ts))

	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2024-01-01T15:00:30.000Z", FormatISO(time.Date(2024, 1, 1, 10, 0, 30, 0, est)))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{seconds: 300, want: "5 minutes 0 seconds"},
		{seconds: 59, want: "0 minutes 59 seconds"},
		{seconds: 3725, want: "1 hours 2 minutes 5 seconds"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatDuration(tc.seconds))
	}
}

func TestQueryStep(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 15*time.Second, QueryStep(start, start.Add(5*time.Minute), 100))
	assert.Equal(t, time.Minute, QueryStep(start, start.Add(90*time.Minute), 100))
	assert.Equal(t, 5*time.Minute, QueryStep(start, start.Add(5*time.Hour), 100))
	assert.Equal(t, 12*time.Minute, QueryStep(start, start.Add(20*time.Hour), 100))
	assert.Equal(t, time.Minute, QueryStep(start, start.Add(time.Minute), 0))
}

func TestSleep(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
