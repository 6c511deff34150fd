package analytics

import "testing"

func TestDistinctPathEstimateCountsDistinctFingerprints(t *testing.T) {
	fps := []uint64{1, 2, 3, 1, 2, 1}
	got := DistinctPathEstimate(fps)
	if got == 0 {
		t.Fatalf("expected a nonzero distinct-path estimate")
	}
	// HyperLogLog is an estimate, not exact, but with only 3 distinct
	// values at precision 12 it should be close.
	if got > 10 {
		t.Fatalf("expected the estimate to be in the right ballpark for 3 distinct values, got %d", got)
	}
}

func TestDistinctPathEstimateEmptyInput(t *testing.T) {
	if got := DistinctPathEstimate(nil); got != 0 {
		t.Fatalf("expected an empty input to estimate 0 distinct values, got %d", got)
	}
}

func TestDefaultConnectionConfigHasSaneDefaults(t *testing.T) {
	cfg := DefaultConnectionConfig()
	if cfg.Addr == "" || cfg.Database == "" {
		t.Fatalf("expected non-empty addr/database defaults, got %+v", cfg)
	}
	if cfg.MaxRetries <= 0 {
		t.Fatalf("expected a positive MaxRetries default")
	}
}
