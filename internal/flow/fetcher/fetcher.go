package fetcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	flowdomain "github.com/sgericke98/beacon-l2c-sub000/internal/flow/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
	"github.com/sgericke98/beacon-l2c-sub000/internal/retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize     = 10000
	defaultMaxPages     = 1000
	defaultQueryTimeout = 10 * time.Second
)

// Fetcher reads precomputed join rows from the materialized views. It
// paginates internally, bounds each page query by the configured budget,
// and retries the whole fetch on timeouts.
type Fetcher struct {
	db           *gorm.DB
	log          *zap.Logger
	pageSize     int
	maxPages     int
	queryTimeout time.Duration
	policy       retry.Policy
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

func New(p Params) *Fetcher {
	pageSize := p.Cfg.Flow.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPages := p.Cfg.Flow.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	queryTimeout := p.Cfg.Flow.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Fetcher{
		db:           p.DB,
		log:          p.Log.Named("flow.fetcher"),
		pageSize:     pageSize,
		maxPages:     maxPages,
		queryTimeout: queryTimeout,
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.LinearBackoff(time.Second),
			Retryable:   isQueryTimeout,
		},
	}
}

// OpportunityQuotePairs fetches all opportunity-quote rows matching the
// filters, excluding rows that never produced a quote.
func (f *Fetcher) OpportunityQuotePairs(ctx context.Context, filters flowdomain.Filters) ([]flowdomain.OpportunityQuoteRow, error) {
	return fetchAll[flowdomain.OpportunityQuoteRow](ctx, f, func(ctx context.Context) (*gorm.DB, error) {
		q := f.db.WithContext(ctx).
			Table("mv_opportunity_quote_pairs").
			Where("quote_created_date IS NOT NULL").
			Order("opportunity_created_date DESC")
		q, err := applyCommonFilters(q, filters, "opportunity_created_date")
		if err != nil {
			return nil, err
		}
		return applyQuoteSpeed(q, filters.QuoteSpeed, "days_to_quote")
	})
}

// QuoteOrderPairs fetches all quote-order rows matching the filters,
// excluding quotes that never converted to an order.
func (f *Fetcher) QuoteOrderPairs(ctx context.Context, filters flowdomain.Filters) ([]flowdomain.QuoteOrderRow, error) {
	return fetchAll[flowdomain.QuoteOrderRow](ctx, f, func(ctx context.Context) (*gorm.DB, error) {
		q := f.db.WithContext(ctx).
			Table("mv_quote_order_pairs").
			Where("order_created_date IS NOT NULL").
			Order("quote_created_date DESC")
		return applyCommonFilters(q, filters, "quote_created_date")
	})
}

func fetchAll[T any](ctx context.Context, f *Fetcher, build func(ctx context.Context) (*gorm.DB, error)) ([]T, error) {
	var rows []T
	err := f.policy.Do(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		for page := 0; page < f.maxPages; page++ {
			batch, err := fetchOnePage[T](ctx, f, build, page)
			if err != nil {
				return err
			}
			rows = append(rows, batch...)
			if len(batch) < f.pageSize {
				return nil
			}
		}
		f.log.Warn("page ceiling reached, result truncated",
			zap.Int("max_pages", f.maxPages),
			zap.Int("rows", len(rows)),
		)
		return nil
	})
	if err != nil {
		if isQueryTimeout(err) {
			return nil, flowdomain.ErrQueryTimeout
		}
		return nil, err
	}
	return rows, nil
}

// fetchOnePage bounds a single page query by the configured budget.
func fetchOnePage[T any](ctx context.Context, f *Fetcher, build func(ctx context.Context) (*gorm.DB, error), page int) ([]T, error) {
	if f.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.queryTimeout)
		defer cancel()
	}
	q, err := build(ctx)
	if err != nil {
		return nil, err
	}
	var batch []T
	if err := q.Limit(f.pageSize).Offset(page * f.pageSize).Find(&batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func applyCommonFilters(q *gorm.DB, filters flowdomain.Filters, dateColumn string) (*gorm.DB, error) {
	if len(filters.CustomerTiers) > 0 {
		q = q.Where("customer_tier IN ?", filters.CustomerTiers)
	}
	if len(filters.Countries) > 0 {
		q = q.Where("customer_country IN ?", filters.Countries)
	}
	if len(filters.MarketSegments) > 0 {
		q = q.Where("market_segment IN ?", filters.MarketSegments)
	}
	if len(filters.Stages) > 0 {
		q = q.Where("stage IN ?", filters.Stages)
	}
	if len(filters.LeadSources) > 0 {
		q = q.Where("lead_source IN ?", filters.LeadSources)
	}
	if len(filters.OpportunityTypes) > 0 {
		q = q.Where("opportunity_type IN ?", filters.OpportunityTypes)
	}
	q, err := applyDateRange(q, filters, dateColumn)
	if err != nil {
		return nil, err
	}
	return applyDealSize(q, filters.DealSize, "amount_usd")
}

func applyDateRange(q *gorm.DB, filters flowdomain.Filters, column string) (*gorm.DB, error) {
	if filters.DateFrom != "" {
		from, err := period.Parse(filters.DateFrom)
		if err != nil {
			return nil, flowdomain.ErrInvalidPeriod
		}
		q = q.Where(column+" >= ?", from)
	}
	if filters.DateTo != "" {
		to, err := period.Parse(filters.DateTo)
		if err != nil {
			return nil, flowdomain.ErrInvalidPeriod
		}
		// To is an inclusive date; the column carries timestamps.
		q = q.Where(column+" < ?", to.AddDate(0, 0, 1))
	}
	return q, nil
}

// DealSizeBounds maps a bucket to its half-open USD range. Enterprise has
// no upper bound.
func DealSizeBounds(bucket string) (min, max *float64, err error) {
	f := func(v float64) *float64 { return &v }
	switch strings.ToLower(strings.TrimSpace(bucket)) {
	case "":
		return nil, nil, nil
	case flowdomain.DealSizeSmall:
		return nil, f(10_000), nil
	case flowdomain.DealSizeMedium:
		return f(10_000), f(100_000), nil
	case flowdomain.DealSizeLarge:
		return f(100_000), f(1_000_000), nil
	case flowdomain.DealSizeEnterprise:
		return f(1_000_000), nil, nil
	default:
		return nil, nil, flowdomain.ErrInvalidDealSize
	}
}

func applyDealSize(q *gorm.DB, bucket, column string) (*gorm.DB, error) {
	min, max, err := DealSizeBounds(bucket)
	if err != nil {
		return nil, err
	}
	if min != nil {
		q = q.Where(column+" >= ?", *min)
	}
	if max != nil {
		q = q.Where(column+" < ?", *max)
	}
	return q, nil
}

func applyQuoteSpeed(q *gorm.DB, bucket, column string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(bucket)) {
	case "":
		return q, nil
	case flowdomain.QuoteSpeedFast:
		return q.Where(column+" < ?", 7.0), nil
	case flowdomain.QuoteSpeedMedium:
		return q.Where(column+" >= ? AND "+column+" < ?", 7.0, 30.0), nil
	case flowdomain.QuoteSpeedSlow:
		return q.Where(column+" >= ?", 30.0), nil
	default:
		return nil, flowdomain.ErrInvalidQuoteSpeed
	}
}

// IsStatementTimeout matches the Postgres statement-timeout error class
// (SQLSTATE 57014).
func IsStatementTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "57014") ||
		strings.Contains(msg, "statement timeout") ||
		strings.Contains(msg, "canceling statement")
}

// isQueryTimeout treats an exceeded client-side budget the same as the
// server-side statement-timeout class: retryable, surfaced as
// ErrQueryTimeout.
func isQueryTimeout(err error) bool {
	return IsStatementTimeout(err) || errors.Is(err, context.DeadlineExceeded)
}
