package period

import (
	"testing"
	"time"
)

func date(value string) time.Time {
	t, err := time.Parse(ISODate, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolveLongPeriodLeavesOneDayGap(t *testing.T) {
	set := Resolve(nil, 90, date("2025-06-01"))

	if set.Current.From != "2025-03-03" || set.Current.To != "2025-06-01" {
		t.Fatalf("current: got %+v", set.Current)
	}
	if set.LastMonth.From != "2025-02-01" || set.LastMonth.To != "2025-03-02" {
		t.Fatalf("last month: got %+v", set.LastMonth)
	}
	if set.LastQuarter.From != "2024-12-03" || set.LastQuarter.To != "2025-03-02" {
		t.Fatalf("last quarter: got %+v", set.LastQuarter)
	}
}

func TestResolveShortPeriodTouchesCurrent(t *testing.T) {
	set := Resolve(nil, 30, date("2025-06-01"))

	if set.Current.From != "2025-05-02" || set.Current.To != "2025-06-01" {
		t.Fatalf("current: got %+v", set.Current)
	}
	// Short windows chain without a gap: last month ends at current.from.
	if set.LastMonth.To != set.Current.From {
		t.Fatalf("expected touching windows, got last month to %s vs current from %s",
			set.LastMonth.To, set.Current.From)
	}
	if set.LastMonth.From != "2025-04-02" {
		t.Fatalf("last month from: got %s", set.LastMonth.From)
	}
	if set.LastQuarter.To != set.Current.From || set.LastQuarter.From != "2025-02-01" {
		t.Fatalf("last quarter: got %+v", set.LastQuarter)
	}
}

func TestResolveCutoffBoundary(t *testing.T) {
	// 60 days uses the gapped rule, 59 the touching rule.
	gapped := Resolve(nil, 60, date("2025-06-01"))
	if gapped.LastMonth.To == gapped.Current.From {
		t.Fatalf("P=60 must not touch current: %+v", gapped)
	}
	if gapped.LastMonth.To != "2025-04-01" {
		t.Fatalf("P=60 last month to: got %s", gapped.LastMonth.To)
	}

	touching := Resolve(nil, 59, date("2025-06-01"))
	if touching.LastMonth.To != touching.Current.From {
		t.Fatalf("P=59 must touch current: %+v", touching)
	}
}

func TestResolveExplicitCurrentOverride(t *testing.T) {
	override := &Period{From: "2025-01-01", To: "2025-03-31"}
	set := Resolve(override, 90, date("2025-06-01"))

	if set.Current != *override {
		t.Fatalf("expected override to win, got %+v", set.Current)
	}
	if set.LastMonth.To != "2024-12-31" {
		t.Fatalf("last month must anchor to override start, got %+v", set.LastMonth)
	}
}

func TestResolveZeroDaysDegeneratesToSingleDay(t *testing.T) {
	set := Resolve(nil, 0, date("2025-06-01"))
	if set.Current.From != set.Current.To || set.Current.From != "2025-06-01" {
		t.Fatalf("expected single-day window, got %+v", set.Current)
	}
}

func TestExtendedRangeIgnoresOverride(t *testing.T) {
	got := ExtendedRange(90, date("2025-06-01"))
	if got.From != "2024-12-03" || got.To != "2025-06-01" {
		t.Fatalf("extended range: got %+v", got)
	}
}

func TestContainsTruncatesTimestamps(t *testing.T) {
	p := Period{From: "2025-03-03", To: "2025-06-01"}
	if !p.Contains("2025-03-03T10:30:00Z") {
		t.Fatalf("expected timestamp inside window")
	}
	if p.Contains("2025-03-02T23:59:59Z") {
		t.Fatalf("expected timestamp before window to be excluded")
	}
	if p.Contains("") {
		t.Fatalf("expected empty date to be excluded")
	}
}

func TestFilterMatchesDirectWindow(t *testing.T) {
	type row struct{ created string }
	rows := []row{
		{"2024-12-02"}, {"2024-12-03"}, {"2025-03-02"},
		{"2025-03-03"}, {"2025-06-01"}, {"2025-06-02"},
	}
	set := Resolve(nil, 90, date("2025-06-01"))

	current := Filter(rows, func(r row) string { return r.created }, set.Current)
	if len(current) != 2 || current[0].created != "2025-03-03" || current[1].created != "2025-06-01" {
		t.Fatalf("current slice: got %+v", current)
	}

	quarter := Filter(rows, func(r row) string { return r.created }, set.LastQuarter)
	if len(quarter) != 2 || quarter[0].created != "2024-12-03" || quarter[1].created != "2025-03-02" {
		t.Fatalf("quarter slice: got %+v", quarter)
	}
}
