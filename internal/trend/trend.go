package trend

import "math"

// Change captures a period-over-period delta together with the sentinel
// flags the dashboard color/label logic keys off.
type Change struct {
	ChangePercent   float64 `json:"changePercent"`
	HasCurrentData  bool    `json:"hasCurrentData"`
	HasPreviousData bool    `json:"hasPreviousData"`
	IsNoData        bool    `json:"isNoData"`
	IsZeroToZero    bool    `json:"isZeroToZero"`
}

// Compare computes the trend between a current and a previous value.
// Values of exactly zero count as "no data" by contract: a previous value
// of zero with current data is reported as +100 ("new data"), the inverse
// as -100, and zero-to-zero is flagged rather than divided.
func Compare(current, previous float64) Change {
	if math.IsNaN(current) {
		current = 0
	}
	if math.IsNaN(previous) {
		previous = 0
	}

	change := Change{
		HasCurrentData:  current > 0,
		HasPreviousData: previous > 0,
	}
	change.IsNoData = !change.HasCurrentData && !change.HasPreviousData

	switch {
	case current == 0 && previous == 0:
		change.IsZeroToZero = true
	case previous == 0:
		change.ChangePercent = 100
	case current == 0:
		change.ChangePercent = -100
	default:
		change.ChangePercent = round1((current - previous) / math.Abs(previous) * 100)
	}
	return change
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}
