package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-time.Hour)
	days7 := 7
	daysZero := 0
	daysNegative := -3

	tests := []struct {
		name     string
		explicit *time.Time
		days     *int
		want     time.Time
		wantErr  error
	}{
		{name: "default_30_days", want: now.Add(DefaultTTL)},
		{name: "explicit_future", explicit: &future, want: future},
		{name: "explicit_past", explicit: &past, wantErr: ErrInvalidExpiration},
		{name: "explicit_equal_to_now", explicit: &now, wantErr: ErrInvalidExpiration},
		{name: "days", days: &days7, want: now.Add(7 * 24 * time.Hour)},
		{name: "days_zero", days: &daysZero, wantErr: ErrInvalidExpiration},
		{name: "days_negative", days: &daysNegative, wantErr: ErrInvalidExpiration},
		{name: "explicit_wins_over_days", explicit: &future, days: &days7, want: future},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeExpiry(now, tt.explicit, tt.days)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.True(t, got.After(now))
		})
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Now()

	live := Link{ExpiresAt: now.Add(time.Hour)}
	dead := Link{ExpiresAt: now.Add(-time.Hour)}
	boundary := Link{ExpiresAt: now}

	require.False(t, IsExpired(live, now))
	require.True(t, IsExpired(dead, now))
	require.True(t, IsExpired(boundary, now))
}

func TestIsExpiringSoon(t *testing.T) {
	now := time.Now()

	soon := Link{ExpiresAt: now.Add(2 * time.Hour)}
	later := Link{ExpiresAt: now.Add(72 * time.Hour)}
	expired := Link{ExpiresAt: now.Add(-time.Minute)}

	require.True(t, IsExpiringSoon(soon, now, 0))
	require.False(t, IsExpiringSoon(later, now, 0))
	// Expired records are never "expiring soon".
	require.False(t, IsExpiringSoon(expired, now, 0))
	// Custom window.
	require.True(t, IsExpiringSoon(later, now, 100*time.Hour))
}
