package slots

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	times map[string][]string
	err   error
	calls int
}

func (f *fakeLookup) BookedTimes(_ context.Context, date, specialty string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.times[date+"|"+specialty], nil
}

func TestToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"9:30", 570, true},
		{"14:00", 840, true},
		{"10:30 AM", 630, true},
		{"10:30am", 630, true},
		{"12:00 AM", 0, true},
		{"12:15 PM", 735, true},
		{"1:05 pm", 785, true},
		{" 08:00 ", 480, true},
		{"24:00", 0, false},
		{"13:00 PM", 0, false},
		{"10:30  AM", 0, false},
		{"ten", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ToMinutes(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestFromMinutesRoundTrip(t *testing.T) {
	for m := 0; m < 24*60; m++ {
		got, ok := ToMinutes(FromMinutes(m))
		require.True(t, ok, m)
		require.Equal(t, m, got)
	}
	assert.Equal(t, "09:05", FromMinutes(545))
}

func TestIsAvailable(t *testing.T) {
	lookup := &fakeLookup{times: map[string][]string{
		"2025-06-01|Cardiology": {"10:00", "2:00 PM", "garbage"},
	}}
	c := NewChecker(lookup, nil)
	ctx := context.Background()

	tests := []struct {
		time      string
		specialty string
		want      bool
	}{
		{"10:00", "Cardiology", false},
		{"10:00 AM", "Cardiology", false},
		{"10:29", "Cardiology", false},
		{"9:31", "Cardiology", false},
		{"10:30", "Cardiology", true},
		{"9:30", "Cardiology", true},
		{"13:45", "Cardiology", false},
		{"15:00", "Cardiology", true},
		{"10:00", "Dermatology", true},
		{"not a time", "Cardiology", true},
	}
	for _, tt := range tests {
		got, err := c.IsAvailable(ctx, "2025-06-01", tt.time, tt.specialty)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s", tt.time, tt.specialty)
	}

	got, err := c.IsAvailable(ctx, "2025-06-02", "10:00", "Cardiology")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIsAvailable_LookupError(t *testing.T) {
	c := NewChecker(&fakeLookup{err: errors.New("db down")}, nil)
	_, err := c.IsAvailable(context.Background(), "2025-06-01", "10:00", "Cardiology")
	assert.Error(t, err)
}

func TestSuggestAlternatives(t *testing.T) {
	ctx := context.Background()

	t.Run("candidates around requested", func(t *testing.T) {
		c := NewChecker(&fakeLookup{times: map[string][]string{"d|s": {"10:00"}}}, nil)
		got, err := c.SuggestAlternatives(ctx, "d", "10:15", "s", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"10:45"}, got)

		got, err = c.SuggestAlternatives(ctx, "d", "10:00", "s", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:30", "10:30"}, got)
	})

	t.Run("earlier offset first and limit respected", func(t *testing.T) {
		c := NewChecker(&fakeLookup{times: map[string][]string{"d|s": {"10:00"}}}, nil)
		got, err := c.SuggestAlternatives(ctx, "d", "10:00", "s", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"09:30"}, got)
	})

	t.Run("earlier side taken", func(t *testing.T) {
		c := NewChecker(&fakeLookup{times: map[string][]string{"d|s": {"9:30", "10:00"}}}, nil)
		got, err := c.SuggestAlternatives(ctx, "d", "10:00", "s", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"10:30"}, got)
	})

	t.Run("day bounds", func(t *testing.T) {
		c := NewChecker(&fakeLookup{}, nil)
		got, err := c.SuggestAlternatives(ctx, "d", "00:10", "s", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"00:40"}, got)

		got, err = c.SuggestAlternatives(ctx, "d", "23:30", "s", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"23:00"}, got)

		got, err = c.SuggestAlternatives(ctx, "d", "11:45 PM", "s", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"23:15"}, got)
	})

	t.Run("never out of range nor over limit", func(t *testing.T) {
		c := NewChecker(&fakeLookup{}, nil)
		for m := 0; m < 24*60; m += 7 {
			got, err := c.SuggestAlternatives(ctx, "d", FromMinutes(m), "s", 2)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), 2)
			for _, g := range got {
				v, ok := ToMinutes(g)
				require.True(t, ok)
				assert.GreaterOrEqual(t, v, 0)
				assert.LessOrEqual(t, v, 23*60+30)
			}
		}
	})

	t.Run("unparseable time", func(t *testing.T) {
		lookup := &fakeLookup{}
		c := NewChecker(lookup, nil)
		got, err := c.SuggestAlternatives(ctx, "d", "soon", "s", 2)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Zero(t, lookup.calls)
	})
}

func TestConflicts(t *testing.T) {
	assert.True(t, Conflicts("10:00", []string{"10:00"}))
	assert.True(t, Conflicts("10:00 am", []string{"10:00 AM"}))
	assert.True(t, Conflicts("10:00", []string{"10:00 AM"}))
	assert.False(t, Conflicts("10:15", []string{"10:00"}))
	assert.False(t, Conflicts("10:29", []string{"10:00", "10:45"}))
	assert.True(t, Conflicts("whenever", []string{"whenever"}))
	assert.False(t, Conflicts("whenever", []string{"10:00"}))
	assert.False(t, Conflicts("10:30", []string{"10:00", "junk"}))
	assert.False(t, Conflicts("10:00", nil))
}
