package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sgericke98/beacon-l2c-sub000/internal/clock"
	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"github.com/sgericke98/beacon-l2c-sub000/internal/currency"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/netsuite"
	"github.com/sgericke98/beacon-l2c-sub000/internal/ingest/salesforce"
	obsmetrics "github.com/sgericke98/beacon-l2c-sub000/internal/observability/metrics"
	"github.com/sgericke98/beacon-l2c-sub000/internal/retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CurrencyConverter stamps USD amounts on ingested records.
type CurrencyConverter interface {
	ToUSD(ctx context.Context, amount float64, currencyCode string) (float64, error)
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clk        clock.Clock
	genID      *snowflake.Node
	currency   CurrencyConverter
	salesforce domain.Source
	netsuite   domain.Source
	metrics    *obsmetrics.SyncMetrics
	batchSize  int
	policy     retry.Policy

	mu      sync.Mutex
	parents map[string]bool
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Config     config.Config
	GenID      *snowflake.Node
	Currency   *currency.Service
	Salesforce *salesforce.Client
	NetSuite   *netsuite.Client
	Metrics    *obsmetrics.SyncMetrics `optional:"true"`
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ingest.service"),
		clk:        p.Clock,
		genID:      p.GenID,
		currency:   p.Currency,
		salesforce: p.Salesforce,
		netsuite:   p.NetSuite,
		metrics:    p.Metrics,
		batchSize:  p.Config.Ingest.BatchSize,
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     retry.LinearBackoff(time.Second),
			Retryable:   isDuplicateKey,
		},
		parents: map[string]bool{},
	}
}

type plan struct {
	query string
	idKey string
}

var plans = map[string]map[string]plan{
	domain.SourceSalesforce: {
		domain.EntityOpportunity: {query: soqlOpportunities, idKey: "Id"},
		domain.EntityQuote:       {query: soqlQuotes, idKey: "Id"},
		domain.EntityOrder:       {query: soqlOrders, idKey: "Id"},
		domain.EntityPricebook:   {query: soqlPricebooks, idKey: "Id"},
		domain.EntityProduct:     {query: soqlProducts, idKey: "Id"},
	},
	domain.SourceNetSuite: {
		domain.EntityInvoice:    {query: suiteqlInvoices, idKey: "id"},
		domain.EntityCreditMemo: {query: suiteqlCreditMemos, idKey: "id"},
		domain.EntityPayment:    {query: suiteqlPayments, idKey: "id"},
	},
}

// Sync pulls every record for one entity from its source system, dedupes
// by source id, resolves parent links, and batch-upserts into the raw
// table. Batch failures are isolated: the run keeps going and the final
// result carries both success and error counts.
func (s *Service) Sync(ctx context.Context, source, entity string, progress domain.ProgressFunc) (*domain.Result, error) {
	entityPlan, ok := plans[source][entity]
	if !ok {
		return nil, domain.ErrUnknownEntity
	}

	src := s.salesforce
	if source == domain.SourceNetSuite {
		src = s.netsuite
	}

	run := s.startRun(ctx, source, entity)
	started := s.clk.Now()

	rows, err := src.Query(ctx, entityPlan.query)
	if err != nil {
		s.finishRun(ctx, run, nil, err)
		s.metrics.IncRun(source, entity, domain.RunStatusFailed)
		return nil, err
	}

	deduped, duplicates := s.dedupe(rows, entityPlan.idKey, entity)
	now := s.clk.Now()

	var result *domain.Result
	switch entity {
	case domain.EntityOpportunity:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.Opportunity {
			return s.convertOpportunity(ctx, row, now)
		}, nil)
	case domain.EntityQuote:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.Quote {
			return s.convertQuote(ctx, row, now)
		}, markPrimaryQuotes)
	case domain.EntityOrder:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.Order {
			return s.convertOrder(ctx, row, now)
		}, nil)
	case domain.EntityPricebook:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.Pricebook {
			return s.convertPricebook(row, now)
		}, nil)
	case domain.EntityProduct:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.Product {
			return s.convertProduct(row, now)
		}, nil)
	case domain.EntityInvoice:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.Invoice {
			return s.convertInvoice(ctx, row, now)
		}, nil)
	case domain.EntityCreditMemo:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.CreditMemo {
			return s.convertCreditMemo(ctx, row, now)
		}, nil)
	case domain.EntityPayment:
		result = syncRows(ctx, s, deduped, duplicates, progress, func(row map[string]any) domain.Payment {
			return s.convertPayment(ctx, row, now)
		}, nil)
	}

	result.Source = source
	result.Entity = entity
	result.Duplicates = duplicates
	if progress != nil {
		progress(domain.Progress{
			Processed: result.Processed,
			Total:     result.Total,
			Success:   result.Success,
			Errors:    result.Errors,
		})
	}

	s.finishRun(ctx, run, result, nil)

	finished := s.clk.Now()
	s.metrics.ObserveSyncDuration(source, entity, finished.Sub(started))
	s.metrics.AddRecords(source, entity, "success", result.Success)
	s.metrics.AddRecords(source, entity, "error", result.Errors)
	s.metrics.AddRecords(source, entity, "duplicate", result.Duplicates)
	if result.Errors == 0 {
		s.metrics.IncRun(source, entity, domain.RunStatusSucceeded)
		s.metrics.SetLastSuccess(source, entity, finished)
	} else {
		s.metrics.IncRun(source, entity, domain.RunStatusFailed)
	}

	s.log.Info("sync finished",
		zap.String("source", source),
		zap.String("entity", entity),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("errors", result.Errors),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

// syncRows converts the deduped rows and upserts them in fixed-size
// batches with onConflict-by-source-id semantics. A batch hitting the
// duplicate-key class is retried, then split into per-record upserts so a
// single bad row cannot sink its whole batch.
func syncRows[T any](
	ctx context.Context,
	s *Service,
	rows []map[string]any,
	duplicates int,
	progress domain.ProgressFunc,
	convert func(map[string]any) T,
	post func([]T),
) *domain.Result {
	models := make([]T, 0, len(rows))
	for _, row := range rows {
		models = append(models, convert(row))
	}
	if post != nil {
		post(models)
	}

	result := &domain.Result{
		Total:     len(rows) + duplicates,
		Processed: duplicates,
	}
	for start := 0; start < len(models); start += s.batchSize {
		end := start + s.batchSize
		if end > len(models) {
			end = len(models)
		}
		batch := models[start:end]

		err := s.policy.Do(ctx, func(ctx context.Context) error {
			return s.upsert(ctx, &batch)
		})
		switch {
		case err == nil:
			result.Success += len(batch)
		case isDuplicateKey(err):
			for i := range batch {
				one := batch[i : i+1]
				if err := s.upsert(ctx, &one); err != nil {
					result.Errors++
					s.log.Warn("record upsert failed", zap.Error(err))
				} else {
					result.Success++
				}
			}
		default:
			result.Errors += len(batch)
			s.log.Warn("batch upsert failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
		}

		result.Processed += len(batch)
		if progress != nil {
			progress(domain.Progress{
				Processed: result.Processed,
				Total:     result.Total,
				Success:   result.Success,
				Errors:    result.Errors,
			})
		}
	}
	return result
}

func (s *Service) upsert(ctx context.Context, batch any) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}},
		UpdateAll: true,
	}).Create(batch).Error
}

// dedupe keeps the first occurrence of every source id, warning on the
// rest.
func (s *Service) dedupe(rows []map[string]any, idKey, entity string) ([]map[string]any, int) {
	seen := make(map[string]bool, len(rows))
	out := make([]map[string]any, 0, len(rows))
	duplicates := 0
	for _, row := range rows {
		id := getString(row, idKey)
		if id == "" || seen[id] {
			duplicates++
			s.log.Warn("duplicate source id skipped",
				zap.String("entity", entity),
				zap.String("source_id", id),
			)
			continue
		}
		seen[id] = true
		out = append(out, row)
	}
	return out, duplicates
}

// resolveParent links a child to its parent only when the parent row has
// already been ingested. Positive lookups are cached for the life of the
// process; misses are not, so a later parent sync can still link.
func (s *Service) resolveParent(ctx context.Context, table, sourceID string) string {
	if sourceID == "" {
		return ""
	}
	key := table + ":" + sourceID

	s.mu.Lock()
	hit := s.parents[key]
	s.mu.Unlock()
	if hit {
		return sourceID
	}

	var count int64
	if err := s.db.WithContext(ctx).Table(table).Where("source_id = ?", sourceID).Count(&count).Error; err != nil {
		s.log.Warn("parent lookup failed", zap.String("table", table), zap.Error(err))
		return ""
	}
	if count == 0 {
		s.log.Warn("parent not ingested yet",
			zap.String("table", table),
			zap.String("source_id", sourceID),
		)
		return ""
	}

	s.mu.Lock()
	s.parents[key] = true
	s.mu.Unlock()
	return sourceID
}

// markPrimaryQuotes flags the latest-created quote per opportunity as the
// primary one.
func markPrimaryQuotes(quotes []domain.Quote) {
	latest := map[string]int{}
	for i, quote := range quotes {
		if quote.OpportunityID == "" {
			continue
		}
		current, ok := latest[quote.OpportunityID]
		if !ok || quote.CreatedDate.After(quotes[current].CreatedDate) {
			latest[quote.OpportunityID] = i
		}
	}
	for _, i := range latest {
		quotes[i].IsPrimary = true
	}
}

func (s *Service) startRun(ctx context.Context, source, entity string) *domain.SyncRun {
	run := &domain.SyncRun{
		ID:        s.genID.Generate(),
		Source:    source,
		Entity:    entity,
		Status:    domain.RunStatusRunning,
		Stats:     datatypes.JSONMap{},
		StartedAt: s.clk.Now(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.log.Warn("sync run bookkeeping failed", zap.Error(err))
		return nil
	}
	return run
}

func (s *Service) finishRun(ctx context.Context, run *domain.SyncRun, result *domain.Result, runErr error) {
	if run == nil {
		return
	}
	status := domain.RunStatusSucceeded
	stats := datatypes.JSONMap{}
	if runErr != nil {
		status = domain.RunStatusFailed
		stats["error"] = runErr.Error()
	}
	if result != nil {
		stats["total"] = result.Total
		stats["processed"] = result.Processed
		stats["success"] = result.Success
		stats["errors"] = result.Errors
		stats["duplicates"] = result.Duplicates
		if result.Errors > 0 {
			status = domain.RunStatusFailed
		}
	}
	finished := s.clk.Now()
	err := s.db.WithContext(ctx).Model(run).Updates(map[string]any{
		"status":      status,
		"stats":       stats,
		"finished_at": finished,
	}).Error
	if err != nil {
		s.log.Warn("sync run bookkeeping failed", zap.Error(err))
	}
}

// isDuplicateKey matches the duplicate-in-statement error class across
// postgres (21000/23505) and the sqlite test driver.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "21000") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed")
}
