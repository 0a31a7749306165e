package respawn

import (
	"testing"
	"time"
)

func TestCompute(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		kill     time.Time
		interval time.Duration
		want     time.Time
	}{
		{
			name:     "kill now",
			kill:     now,
			interval: 9 * time.Hour,
			want:     time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC),
		},
		{
			name:     "kill earlier today",
			kill:     time.Date(2026, 8, 30, 8, 30, 0, 0, time.UTC),
			interval: 6 * time.Hour,
			want:     time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC),
		},
		{
			name:     "future clock means yesterday",
			kill:     time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC),
			interval: 9 * time.Hour,
			want:     time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "one minute ahead still rolls back",
			kill:     now.Add(time.Minute),
			interval: 24 * time.Hour,
			want:     now.Add(time.Minute).AddDate(0, 0, -1).Add(24 * time.Hour),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.kill, now, tt.interval)
			if !got.Equal(tt.want) {
				t.Fatalf("Compute = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeNoDriftAcrossCycles(t *testing.T) {
	t.Parallel()
	interval := 9 * time.Hour
	settle := time.Minute
	at := time.Date(2026, 1, 1, 19, 0, 0, 0, time.UTC)
	for i := 0; i < 1000; i++ {
		at = at.Add(interval + settle)
	}
	want := time.Date(2026, 1, 1, 19, 0, 0, 0, time.UTC).Add(1000 * (interval + settle))
	if !at.Equal(want) {
		t.Fatalf("accumulated drift: got %v, want %v", at, want)
	}
}

func TestComputeScenarioLateNight(t *testing.T) {
	t.Parallel()
	// Kill reported as 23:00 while it's 01:00 the next day.
	now := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)
	kill := time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)
	got := Compute(kill, now, 9*time.Hour)
	want := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Compute = %v, want %v", got, want)
	}
}
