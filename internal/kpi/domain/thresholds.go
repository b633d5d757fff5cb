package domain

// Metric names accepted by the metric endpoint.
const (
	MetricAutoRenewalRate    = "auto_renewal_rate"
	MetricActivePricebooks   = "active_pricebooks"
	MetricProductCount       = "product_count"
	MetricCreditMemoRatio    = "credit_memo_ratio"
	MetricOpportunityToQuote = "opportunity_to_quote_time"
	MetricQuoteToOrder       = "quote_to_order_time"
	MetricOrderToInvoice     = "order_to_invoice_time"
	MetricInvoiceToPayment   = "invoice_to_payment_time"
)

// Direction states whether larger values are healthier.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// Band is the target band for one metric. For HigherIsBetter metrics a
// value at or above TargetMax is good and one below TargetMin is bad; for
// LowerIsBetter the comparison flips.
type Band struct {
	TargetMin float64
	TargetMax float64
	Direction Direction
}

// Classify maps a value into the status buckets the dashboard renders.
func (b Band) Classify(value float64) Status {
	if b.Direction == HigherIsBetter {
		switch {
		case value >= b.TargetMax:
			return StatusGood
		case value >= b.TargetMin:
			return StatusOkay
		default:
			return StatusBad
		}
	}
	switch {
	case value <= b.TargetMin:
		return StatusGood
	case value <= b.TargetMax:
		return StatusOkay
	default:
		return StatusBad
	}
}

// bands is the single threshold table every metric route classifies
// through. Adding a metric means adding a row here, not re-deriving
// classification logic in a handler.
var bands = map[string]Band{
	MetricAutoRenewalRate:    {TargetMin: 70, TargetMax: 75, Direction: HigherIsBetter},
	MetricActivePricebooks:   {TargetMin: 3, TargetMax: 10, Direction: LowerIsBetter},
	MetricProductCount:       {TargetMin: 150, TargetMax: 300, Direction: LowerIsBetter},
	MetricCreditMemoRatio:    {TargetMin: 5, TargetMax: 10, Direction: LowerIsBetter},
	MetricOpportunityToQuote: {TargetMin: 3, TargetMax: 6, Direction: LowerIsBetter},
	MetricQuoteToOrder:       {TargetMin: 5, TargetMax: 10, Direction: LowerIsBetter},
	MetricOrderToInvoice:     {TargetMin: 7, TargetMax: 14, Direction: LowerIsBetter},
	MetricInvoiceToPayment:   {TargetMin: 30, TargetMax: 45, Direction: LowerIsBetter},
}

// BandFor looks up the target band for a metric name.
func BandFor(metric string) (Band, bool) {
	band, ok := bands[metric]
	return band, ok
}

// MetricNames lists every registered metric.
func MetricNames() []string {
	names := make([]string, 0, len(bands))
	for name := range bands {
		names = append(names, name)
	}
	return names
}
