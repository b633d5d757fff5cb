package service

import (
	"context"

	"github.com/sgericke98/beacon-l2c-sub000/internal/clock"
	"github.com/sgericke98/beacon-l2c-sub000/internal/flow/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/flow/fetcher"
	"github.com/sgericke98/beacon-l2c-sub000/internal/mview"
	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	fetcher   *fetcher.Fetcher
	refresher *mview.Refresher
	clk       clock.Clock
	log       *zap.Logger
}

type Params struct {
	fx.In

	Fetcher   *fetcher.Fetcher
	Refresher *mview.Refresher
	Clock     clock.Clock
	Log       *zap.Logger
}

func NewService(p Params) domain.Service {
	return &Service{
		fetcher:   p.Fetcher,
		refresher: p.Refresher,
		clk:       p.Clock,
		log:       p.Log.Named("flow.service"),
	}
}

// GetFlowMetrics fetches one extended-range superset per view and slices
// it into the current, last-month and last-quarter windows client-side.
func (s *Service) GetFlowMetrics(ctx context.Context, req domain.Request) (*domain.Metrics, error) {
	today := s.clk.Now()
	periods := period.Resolve(req.Period, req.PeriodDays, today)
	extended := period.ExtendedRange(req.PeriodDays, today)

	filters := req.Filters
	filters.DateFrom = extended.From
	filters.DateTo = extended.To

	s.refresher.MaybeRefresh(ctx)

	oppQuote, err := s.fetcher.OpportunityQuotePairs(ctx, filters)
	if err != nil {
		return nil, err
	}
	quoteOrder, err := s.fetcher.QuoteOrderPairs(ctx, filters)
	if err != nil {
		return nil, err
	}

	oppStage := buildStage(
		"opportunity_to_quote",
		oppQuote,
		func(r domain.OpportunityQuoteRow) string { return r.OpportunityCreatedAt.Format(period.ISODate) },
		func(r domain.OpportunityQuoteRow) *float64 { return r.DaysToQuote },
		domain.TargetDaysToQuote,
		periods,
		func(r domain.OpportunityQuoteRow, duration string) domain.DetailRow {
			return domain.DetailRow{
				ID:        r.OpportunityID,
				Name:      r.OpportunityName,
				Duration:  duration,
				AmountUSD: r.AmountUSD,
				Country:   r.CustomerCountry,
				Type:      r.OpportunityType,
				CreatedAt: r.OpportunityCreatedAt.Format(period.ISODate),
			}
		},
	)

	orderStage := buildStage(
		"quote_to_order",
		quoteOrder,
		func(r domain.QuoteOrderRow) string { return r.QuoteCreatedAt.Format(period.ISODate) },
		func(r domain.QuoteOrderRow) *float64 { return r.DaysQuoteToOrder },
		domain.TargetDaysQuoteToOrder,
		periods,
		func(r domain.QuoteOrderRow, duration string) domain.DetailRow {
			return domain.DetailRow{
				ID:        r.QuoteID,
				Name:      r.OpportunityName,
				Duration:  duration,
				AmountUSD: r.AmountUSD,
				Country:   r.CustomerCountry,
				Type:      r.OpportunityType,
				CreatedAt: r.QuoteCreatedAt.Format(period.ISODate),
			}
		},
	)

	s.log.Debug("flow metrics computed",
		zap.Int("opportunity_quote_rows", len(oppQuote)),
		zap.Int("quote_order_rows", len(quoteOrder)),
		zap.String("current_from", periods.Current.From),
		zap.String("current_to", periods.Current.To),
	)

	return &domain.Metrics{
		Periods:            periods,
		OpportunityToQuote: oppStage,
		QuoteToOrder:       orderStage,
		TotalRecords:       oppStage.RecordCount + orderStage.RecordCount,
	}, nil
}
