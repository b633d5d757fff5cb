package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/clock"
	kpidomain "github.com/sgericke98/beacon-l2c-sub000/internal/kpi/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/mview"
	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
	"github.com/sgericke98/beacon-l2c-sub000/internal/trend"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const detailRowLimit = 50

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clk       clock.Clock
	refresher *mview.Refresher
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Refresher *mview.Refresher
}

func NewService(p Params) kpidomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("kpi.service"),
		clk:       p.Clock,
		refresher: p.Refresher,
	}
}

// GetMetric computes the metric value for the current window and the two
// comparison windows. The three sub-queries are independent, so they fan
// out concurrently; any failure aborts the whole request.
func (s *Service) GetMetric(ctx context.Context, req kpidomain.Request) (*kpidomain.Result, error) {
	metric := strings.TrimSpace(req.Metric)
	band, ok := kpidomain.BandFor(metric)
	if !ok {
		return nil, kpidomain.ErrUnknownMetric
	}

	periods := period.Resolve(req.Period, req.PeriodDays, s.clk.Now())
	s.refresher.MaybeRefresh(ctx)

	windows := [3]period.Period{periods.Current, periods.LastMonth, periods.LastQuarter}
	var (
		values [3]float64
		errs   [3]error
		wg     sync.WaitGroup
	)
	for i := range windows {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values[i], errs[i] = s.compute(ctx, metric, windows[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	details, err := s.details(ctx, metric, periods.Current)
	if err != nil {
		return nil, err
	}

	return &kpidomain.Result{
		Metric:        metric,
		Value:         values[0],
		TargetMin:     band.TargetMin,
		TargetMax:     band.TargetMax,
		Status:        band.Classify(values[0]),
		VsLastMonth:   trend.Compare(values[0], values[1]),
		VsLastQuarter: trend.Compare(values[0], values[2]),
		DetailedData:  details,
	}, nil
}

func (s *Service) compute(ctx context.Context, metric string, window period.Period) (float64, error) {
	from, to, err := windowBounds(window)
	if err != nil {
		return 0, err
	}

	switch metric {
	case kpidomain.MetricAutoRenewalRate:
		return s.autoRenewalRate(ctx, from, to)
	case kpidomain.MetricActivePricebooks:
		return s.countActive(ctx, "pricebook_raw", to)
	case kpidomain.MetricProductCount:
		return s.countActive(ctx, "products_raw", to)
	case kpidomain.MetricCreditMemoRatio:
		return s.creditMemoRatio(ctx, from, to)
	case kpidomain.MetricOpportunityToQuote:
		return s.averageDuration(ctx, "mv_opportunity_quote_pairs", "days_to_quote", "opportunity_created_date", from, to)
	case kpidomain.MetricQuoteToOrder:
		return s.averageDuration(ctx, "mv_quote_order_pairs", "days_quote_to_order", "quote_created_date", from, to)
	case kpidomain.MetricOrderToInvoice:
		return s.averageDuration(ctx, "mv_invoice_payment_pairs", "days_order_to_invoice", "invoice_created_date", from, to)
	case kpidomain.MetricInvoiceToPayment:
		return s.averageDuration(ctx, "mv_invoice_payment_pairs", "days_invoice_to_payment", "invoice_created_date", from, to)
	default:
		return 0, kpidomain.ErrUnknownMetric
	}
}

func (s *Service) autoRenewalRate(ctx context.Context, from, to time.Time) (float64, error) {
	var row struct {
		Total int64
		Auto  int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		        SUM(CASE WHEN auto_renewal THEN 1 ELSE 0 END) AS auto
		 FROM salesforce_opportunities
		 WHERE opportunity_type = 'Renewal'
		   AND created_date >= ? AND created_date < ?`,
		from,
		to,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.Total == 0 {
		return 0, nil
	}
	return float64(row.Auto) / float64(row.Total) * 100, nil
}

// countActive counts active catalog rows that existed by the end of the
// window, so the trend against earlier windows stays meaningful for what
// is otherwise a snapshot metric.
func (s *Service) countActive(ctx context.Context, table string, to time.Time) (float64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table(table).
		Where("is_active = ?", true).
		Where("created_date < ?", to).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return float64(count), nil
}

func (s *Service) creditMemoRatio(ctx context.Context, from, to time.Time) (float64, error) {
	var invoices int64
	if err := s.db.WithContext(ctx).
		Table("netsuite_invoices").
		Where("tran_date >= ? AND tran_date < ?", from, to).
		Count(&invoices).Error; err != nil {
		return 0, err
	}
	if invoices == 0 {
		return 0, nil
	}

	var memos int64
	if err := s.db.WithContext(ctx).
		Table("netsuite_credit_memos").
		Where("tran_date >= ? AND tran_date < ?", from, to).
		Count(&memos).Error; err != nil {
		return 0, err
	}
	return float64(memos) / float64(invoices) * 100, nil
}

func (s *Service) averageDuration(ctx context.Context, table, durationColumn, dateColumn string, from, to time.Time) (float64, error) {
	var avg *float64
	err := s.db.WithContext(ctx).Raw(
		`SELECT AVG(`+durationColumn+`)
		 FROM `+table+`
		 WHERE `+dateColumn+` >= ? AND `+dateColumn+` < ?
		   AND `+durationColumn+` IS NOT NULL`,
		from,
		to,
	).Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (s *Service) details(ctx context.Context, metric string, window period.Period) ([]map[string]any, error) {
	from, to, err := windowBounds(window)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx)
	switch metric {
	case kpidomain.MetricAutoRenewalRate:
		q = q.Table("salesforce_opportunities").
			Select("source_id, name, amount, currency, auto_renewal, created_date").
			Where("opportunity_type = 'Renewal'").
			Where("created_date >= ? AND created_date < ?", from, to).
			Order("created_date DESC")
	case kpidomain.MetricActivePricebooks:
		q = q.Table("pricebook_raw").
			Select("source_id, name, is_active, created_date").
			Where("is_active = ?", true).
			Where("created_date < ?", to).
			Order("created_date DESC")
	case kpidomain.MetricProductCount:
		q = q.Table("products_raw").
			Select("source_id, code, name, is_active, created_date").
			Where("is_active = ?", true).
			Where("created_date < ?", to).
			Order("created_date DESC")
	case kpidomain.MetricCreditMemoRatio:
		q = q.Table("netsuite_credit_memos").
			Select("source_id, invoice_id, amount, tran_date").
			Where("tran_date >= ? AND tran_date < ?", from, to).
			Order("tran_date DESC")
	case kpidomain.MetricOpportunityToQuote:
		q = q.Table("mv_opportunity_quote_pairs").
			Select("opportunity_id, opportunity_name, days_to_quote, amount_usd, customer_country, opportunity_created_date").
			Where("opportunity_created_date >= ? AND opportunity_created_date < ?", from, to).
			Where("days_to_quote IS NOT NULL").
			Order("opportunity_created_date DESC")
	case kpidomain.MetricQuoteToOrder:
		q = q.Table("mv_quote_order_pairs").
			Select("quote_id, opportunity_name, days_quote_to_order, amount_usd, customer_country, quote_created_date").
			Where("quote_created_date >= ? AND quote_created_date < ?", from, to).
			Where("days_quote_to_order IS NOT NULL").
			Order("quote_created_date DESC")
	case kpidomain.MetricOrderToInvoice:
		q = q.Table("mv_invoice_payment_pairs").
			Select("invoice_id, order_id, days_order_to_invoice, amount_usd, invoice_created_date").
			Where("invoice_created_date >= ? AND invoice_created_date < ?", from, to).
			Where("days_order_to_invoice IS NOT NULL").
			Order("invoice_created_date DESC")
	case kpidomain.MetricInvoiceToPayment:
		q = q.Table("mv_invoice_payment_pairs").
			Select("invoice_id, payment_id, days_invoice_to_payment, amount_usd, invoice_created_date").
			Where("invoice_created_date >= ? AND invoice_created_date < ?", from, to).
			Where("days_invoice_to_payment IS NOT NULL").
			Order("invoice_created_date DESC")
	default:
		return nil, kpidomain.ErrUnknownMetric
	}

	var rows []map[string]any
	if err := q.Limit(detailRowLimit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func windowBounds(window period.Period) (time.Time, time.Time, error) {
	from, err := period.Parse(window.From)
	if err != nil {
		return time.Time{}, time.Time{}, kpidomain.ErrInvalidPeriod
	}
	to, err := period.Parse(window.To)
	if err != nil {
		return time.Time{}, time.Time{}, kpidomain.ErrInvalidPeriod
	}
	// To is an inclusive date; columns carry timestamps.
	return from, to.AddDate(0, 0, 1), nil
}
