package repository

import (
	"testing"
	"time"
)

func TestNormalizePeriodMapping(t *testing.T) {
	cases := []struct {
		period string
		gran   Granularity
		lag    time.Duration
	}{
		{"24h", Gran30m, 30 * time.Minute},
		{"7d", Gran30m, 30 * time.Minute},
		{"30d", Gran1h, time.Hour},
		{"90d", Gran1h, time.Hour},
		{"1y", Gran1d, 24 * time.Hour},
		{"all", Gran1d, 24 * time.Hour},
	}
	for _, c := range cases {
		spec := NormalizePeriod(c.period)
		if spec.Granularity != c.gran {
			t.Errorf("%s: granularity %s, want %s", c.period, spec.Granularity, c.gran)
		}
		if spec.Lag != c.lag {
			t.Errorf("%s: lag %v, want %v", c.period, spec.Lag, c.lag)
		}
	}
}

func TestNormalizePeriodDefaults(t *testing.T) {
	if got := NormalizePeriod(""); got.Name != "30d" {
		t.Errorf("empty period: got %s, want 30d", got.Name)
	}
	if got := NormalizePeriod("2w"); got.Name != "30d" {
		t.Errorf("unknown period: got %s, want 30d", got.Name)
	}
}

func TestLagMonotoneWithGranularity(t *testing.T) {
	// a coarser bucket never has a smaller lag than a finer one
	lagFor := map[Granularity]time.Duration{}
	for _, name := range Periods() {
		spec := NormalizePeriod(name)
		if prev, ok := lagFor[spec.Granularity]; ok && prev != spec.Lag {
			t.Fatalf("granularity %s has conflicting lags %v and %v", spec.Granularity, prev, spec.Lag)
		}
		lagFor[spec.Granularity] = spec.Lag
	}
	if lagFor[Gran30m] > lagFor[Gran1h] || lagFor[Gran1h] > lagFor[Gran1d] {
		t.Fatalf("lags not monotone: %v", lagFor)
	}
}

func TestGranularityStep(t *testing.T) {
	if Gran30m.Step() != 30*time.Minute {
		t.Errorf("30m step: %v", Gran30m.Step())
	}
	if Gran1h.Step() != time.Hour {
		t.Errorf("1h step: %v", Gran1h.Step())
	}
	if Gran1d.Step() != 24*time.Hour {
		t.Errorf("1d step: %v", Gran1d.Step())
	}
}

func TestLookbackCoversPeriod(t *testing.T) {
	if NormalizePeriod("all").Lookback != 0 {
		t.Error("all period must be unbounded")
	}
	if NormalizePeriod("90d").Lookback != 90*24*time.Hour {
		t.Error("90d lookback mismatch")
	}
}
