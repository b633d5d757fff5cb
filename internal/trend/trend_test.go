package trend

import "testing"

func TestCompareZeroToZero(t *testing.T) {
	got := Compare(0, 0)
	if got.ChangePercent != 0 || !got.IsZeroToZero || !got.IsNoData {
		t.Fatalf("zero-to-zero: got %+v", got)
	}
	if got.HasCurrentData || got.HasPreviousData {
		t.Fatalf("zero values must not count as data: %+v", got)
	}
}

func TestCompareNewData(t *testing.T) {
	got := Compare(5, 0)
	if got.ChangePercent != 100 {
		t.Fatalf("expected +100 for new data, got %+v", got)
	}
	if !got.HasCurrentData || got.HasPreviousData || got.IsZeroToZero {
		t.Fatalf("flags: got %+v", got)
	}
}

func TestCompareLostData(t *testing.T) {
	got := Compare(0, 5)
	if got.ChangePercent != -100 {
		t.Fatalf("expected -100 for lost data, got %+v", got)
	}
	if got.HasCurrentData || !got.HasPreviousData {
		t.Fatalf("flags: got %+v", got)
	}
}

func TestCompareStandardDelta(t *testing.T) {
	if got := Compare(120, 100); got.ChangePercent != 20 {
		t.Fatalf("expected +20, got %+v", got)
	}
	if got := Compare(80, 100); got.ChangePercent != -20 {
		t.Fatalf("expected -20, got %+v", got)
	}
}

func TestCompareRoundsToOneDecimal(t *testing.T) {
	got := Compare(1, 3)
	if got.ChangePercent != -66.7 {
		t.Fatalf("expected -66.7, got %v", got.ChangePercent)
	}
}
