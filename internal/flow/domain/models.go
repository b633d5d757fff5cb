package domain

import (
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
	"github.com/sgericke98/beacon-l2c-sub000/internal/trend"
)

// Stage duration targets in days. Medians at or below target score 100.
const (
	TargetDaysToQuote      = 3.0
	TargetDaysQuoteToOrder = 5.0
)

// Deal-size buckets partition every non-negative USD amount: boundaries
// are half-open except enterprise, which is unbounded above.
const (
	DealSizeSmall      = "small"      // < 10k
	DealSizeMedium     = "medium"     // [10k, 100k)
	DealSizeLarge      = "large"      // [100k, 1M)
	DealSizeEnterprise = "enterprise" // >= 1M
)

// Quote-speed buckets on days_to_quote.
const (
	QuoteSpeedFast   = "fast"   // < 7 days
	QuoteSpeedMedium = "medium" // [7, 30)
	QuoteSpeedSlow   = "slow"   // >= 30
)

// OpportunityQuoteRow is one denormalized row of mv_opportunity_quote_pairs.
type OpportunityQuoteRow struct {
	OpportunityID        string     `gorm:"column:opportunity_id" json:"opportunity_id"`
	OpportunityName      string     `gorm:"column:opportunity_name" json:"opportunity_name"`
	OpportunityCreatedAt time.Time  `gorm:"column:opportunity_created_date" json:"opportunity_created_date"`
	QuoteID              *string    `gorm:"column:quote_id" json:"quote_id,omitempty"`
	QuoteCreatedAt       *time.Time `gorm:"column:quote_created_date" json:"quote_created_date,omitempty"`
	DaysToQuote          *float64   `gorm:"column:days_to_quote" json:"days_to_quote,omitempty"`
	AmountUSD            *float64   `gorm:"column:amount_usd" json:"amount_usd,omitempty"`
	CustomerTier         string     `gorm:"column:customer_tier" json:"customer_tier"`
	CustomerCountry      string     `gorm:"column:customer_country" json:"customer_country"`
	MarketSegment        string     `gorm:"column:market_segment" json:"market_segment"`
	Stage                string     `gorm:"column:stage" json:"stage"`
	LeadSource           string     `gorm:"column:lead_source" json:"lead_source"`
	OpportunityType      string     `gorm:"column:opportunity_type" json:"opportunity_type"`
}

// QuoteOrderRow is one denormalized row of mv_quote_order_pairs.
type QuoteOrderRow struct {
	QuoteID          string     `gorm:"column:quote_id" json:"quote_id"`
	OpportunityID    string     `gorm:"column:opportunity_id" json:"opportunity_id"`
	OpportunityName  string     `gorm:"column:opportunity_name" json:"opportunity_name"`
	QuoteCreatedAt   time.Time  `gorm:"column:quote_created_date" json:"quote_created_date"`
	OrderID          *string    `gorm:"column:order_id" json:"order_id,omitempty"`
	OrderCreatedAt   *time.Time `gorm:"column:order_created_date" json:"order_created_date,omitempty"`
	DaysQuoteToOrder *float64   `gorm:"column:days_quote_to_order" json:"days_quote_to_order,omitempty"`
	AmountUSD        *float64   `gorm:"column:amount_usd" json:"amount_usd,omitempty"`
	CustomerTier     string     `gorm:"column:customer_tier" json:"customer_tier"`
	CustomerCountry  string     `gorm:"column:customer_country" json:"customer_country"`
	MarketSegment    string     `gorm:"column:market_segment" json:"market_segment"`
	Stage            string     `gorm:"column:stage" json:"stage"`
	LeadSource       string     `gorm:"column:lead_source" json:"lead_source"`
	OpportunityType  string     `gorm:"column:opportunity_type" json:"opportunity_type"`
}

// Filters narrow a materialized-view fetch. Empty fields are skipped.
type Filters struct {
	DateFrom         string   `json:"date_from,omitempty"`
	DateTo           string   `json:"date_to,omitempty"`
	CustomerTiers    []string `json:"customer_tiers,omitempty"`
	Countries        []string `json:"countries,omitempty"`
	MarketSegments   []string `json:"market_segments,omitempty"`
	Stages           []string `json:"stages,omitempty"`
	LeadSources      []string `json:"lead_sources,omitempty"`
	OpportunityTypes []string `json:"opportunity_types,omitempty"`
	DealSize         string   `json:"deal_size,omitempty"`
	QuoteSpeed       string   `json:"quote_speed,omitempty"`
}

// Request asks for flow metrics over a period length, optionally pinning
// the current window explicitly.
type Request struct {
	Period     *period.Period `json:"period,omitempty"`
	PeriodDays int            `json:"period_days"`
	Filters    Filters        `json:"filters"`
}

// StageTrend compares one stage statistic across periods.
type StageTrend struct {
	AverageDays trend.Change `json:"average_days"`
	Performance trend.Change `json:"performance"`
	RecordCount trend.Change `json:"record_count"`
}

// DetailRow is a drill-down table row with display-ready duration strings.
type DetailRow struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Duration  string   `json:"duration"`
	AmountUSD *float64 `json:"amount_usd,omitempty"`
	Country   string   `json:"country"`
	Type      string   `json:"type"`
	CreatedAt string   `json:"created_at"`
}

// StageMetrics aggregates one funnel stage for the current window.
type StageMetrics struct {
	Stage         string      `json:"stage"`
	AverageDays   float64     `json:"average_days"`
	MedianDays    float64     `json:"median_days"`
	Performance   int         `json:"performance"`
	RecordCount   int         `json:"record_count"`
	VsLastMonth   StageTrend  `json:"vs_last_month"`
	VsLastQuarter StageTrend  `json:"vs_last_quarter"`
	DetailedData  []DetailRow `json:"detailed_data"`
}

// Metrics is the flow endpoint response body.
type Metrics struct {
	Periods            period.Set   `json:"periods"`
	OpportunityToQuote StageMetrics `json:"opportunity_to_quote"`
	QuoteToOrder       StageMetrics `json:"quote_to_order"`
	TotalRecords       int          `json:"total_records"`
}
