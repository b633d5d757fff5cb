package domain

import (
	"context"
	"errors"

	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
	"github.com/sgericke98/beacon-l2c-sub000/internal/trend"
)

// Status classifies a metric value against its target band.
type Status string

const (
	StatusGood Status = "good"
	StatusOkay Status = "okay"
	StatusBad  Status = "bad"
)

// Request asks for one named metric over a period length.
type Request struct {
	Metric     string         `json:"metric"`
	Period     *period.Period `json:"period,omitempty"`
	PeriodDays int            `json:"period_days"`
}

// Result is the per-metric response envelope.
type Result struct {
	Metric        string           `json:"metric"`
	Value         float64          `json:"value"`
	TargetMin     float64          `json:"target_min"`
	TargetMax     float64          `json:"target_max"`
	Status        Status           `json:"status"`
	VsLastMonth   trend.Change     `json:"vs_last_month"`
	VsLastQuarter trend.Change     `json:"vs_last_quarter"`
	DetailedData  []map[string]any `json:"detailed_data"`
}

// Service computes a named business metric with period comparisons.
type Service interface {
	GetMetric(ctx context.Context, req Request) (*Result, error)
}

var (
	ErrUnknownMetric = errors.New("unknown_metric")
	ErrInvalidPeriod = errors.New("invalid_period")
)
