package domain

import (
	"context"
	"errors"
)

// Service computes lead-to-cash flow metrics with period comparisons.
type Service interface {
	GetFlowMetrics(ctx context.Context, req Request) (*Metrics, error)
}

var (
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrInvalidDealSize   = errors.New("invalid_deal_size")
	ErrInvalidQuoteSpeed = errors.New("invalid_quote_speed")
	ErrQueryTimeout      = errors.New("query_timeout")
)
