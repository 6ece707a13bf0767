package interval

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		min     float64
		max     float64
		wantErr bool
	}{
		{"valid range", 1, 5, false},
		{"equal bounds", 2, 2, false},
		{"tiny interval", 0.001, 0.002, false},
		{"zero min", 0, 5, true},
		{"both zero", 0, 0, true},
		{"negative max", 1, -1, true},
		{"min above max", 5, 1, true},
		{"nan", math.NaN(), 1, true},
		{"inf", 1, math.Inf(1), true},
		{"one hour", 3600, 3600, false},
		{"above one hour", 1, 3600.5, true},
		{"huge", 1e12, 1e12, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Validate(tt.min, tt.max)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, ErrInvalidRange))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.min, r.Min)
			require.Equal(t, tt.max, r.Max)
		})
	}
}

func TestSampleStaysInRange(t *testing.T) {
	r, err := Validate(0.5, 2.5)
	require.NoError(t, err)

	for i := 0; i < 5000; i++ {
		v := r.Sample()
		require.GreaterOrEqual(t, v, 0.5)
		require.LessOrEqual(t, v, 2.5)
	}
}

func TestSampleFromEdges(t *testing.T) {
	r := Range{Min: 1, Max: 3}
	require.Equal(t, 1.0, r.SampleFrom(func() float64 { return 0 }))
	require.Equal(t, 2.0, r.SampleFrom(func() float64 { return 0.5 }))
	require.LessOrEqual(t, r.SampleFrom(func() float64 { return 0.9999999 }), 3.0)

	fixed := Range{Min: 2, Max: 2}
	require.Equal(t, 2.0, fixed.SampleFrom(func() float64 { return 0.7 }))
}

func TestDuration(t *testing.T) {
	require.Equal(t, 1500*time.Millisecond, Duration(1.5))
	require.Equal(t, time.Duration(0), Duration(-2))
	require.Equal(t, time.Duration(0), Duration(math.NaN()))
	require.Equal(t, time.Hour, Duration(MaxSeconds))
}

func TestDurationSaturates(t *testing.T) {
	longest := time.Duration(math.MaxInt64)
	require.Equal(t, longest, Duration(1e12))
	require.Equal(t, longest, Duration(math.Inf(1)))
	require.Equal(t, longest, Duration(float64(math.MaxInt64)/1e9))
	require.Positive(t, Duration(9.2e9))
}
