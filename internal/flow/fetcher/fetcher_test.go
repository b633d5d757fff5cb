package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	flowdomain "github.com/sgericke98/beacon-l2c-sub000/internal/flow/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/period"
	"github.com/sgericke98/beacon-l2c-sub000/internal/retry"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFlowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE mv_opportunity_quote_pairs (
			opportunity_id TEXT NOT NULL,
			opportunity_name TEXT NOT NULL,
			opportunity_created_date DATETIME NOT NULL,
			quote_id TEXT,
			quote_created_date DATETIME,
			days_to_quote REAL,
			amount_usd REAL,
			customer_tier TEXT NOT NULL DEFAULT '',
			customer_country TEXT NOT NULL DEFAULT '',
			market_segment TEXT NOT NULL DEFAULT '',
			stage TEXT NOT NULL DEFAULT '',
			lead_source TEXT NOT NULL DEFAULT '',
			opportunity_type TEXT NOT NULL DEFAULT ''
		)`,
	).Error; err != nil {
		t.Fatalf("create view table: %v", err)
	}
	return db
}

func newTestFetcher(db *gorm.DB, pageSize, maxPages int) *Fetcher {
	return &Fetcher{
		db:       db,
		log:      zap.NewNop(),
		pageSize: pageSize,
		maxPages: maxPages,
		policy:   retry.Policy{MaxAttempts: 1},
	}
}

func insertPair(t *testing.T, db *gorm.DB, id string, created time.Time, quoteCreated *time.Time, daysToQuote, amountUSD *float64, country string) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO mv_opportunity_quote_pairs (
			opportunity_id, opportunity_name, opportunity_created_date,
			quote_id, quote_created_date, days_to_quote, amount_usd,
			customer_country, customer_tier, market_segment, stage, lead_source, opportunity_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', '', '', '', '')`,
		id,
		"Opp "+id,
		created,
		id+"-q",
		quoteCreated,
		daysToQuote,
		amountUSD,
		country,
	).Error; err != nil {
		t.Fatalf("insert pair: %v", err)
	}
}

func f64(v float64) *float64 { return &v }

func ts(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(value string) *time.Time {
	t := ts(value)
	return &t
}

func TestFetchPaginatesUntilShortPage(t *testing.T) {
	db := setupFlowTestDB(t)
	for i := 0; i < 7; i++ {
		insertPair(t, db,
			fmt.Sprintf("opp-%02d", i),
			ts("2025-05-01").AddDate(0, 0, i),
			tsp("2025-05-10"), f64(2), f64(50_000), "DE")
	}

	f := newTestFetcher(db, 3, 1000)
	rows, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("expected all 7 rows across pages, got %d", len(rows))
	}
}

func TestFetchStopsAtPageCeiling(t *testing.T) {
	db := setupFlowTestDB(t)
	for i := 0; i < 6; i++ {
		insertPair(t, db,
			fmt.Sprintf("opp-%02d", i),
			ts("2025-05-01").AddDate(0, 0, i),
			tsp("2025-05-10"), f64(2), f64(50_000), "DE")
	}

	f := newTestFetcher(db, 2, 2)
	rows, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected truncation at 2 pages * 2 rows, got %d", len(rows))
	}
}

func TestFetchExcludesNullQuoteDates(t *testing.T) {
	db := setupFlowTestDB(t)
	insertPair(t, db, "with-quote", ts("2025-05-01"), tsp("2025-05-03"), f64(2), f64(50_000), "DE")
	insertPair(t, db, "no-quote", ts("2025-05-02"), nil, nil, f64(50_000), "DE")

	f := newTestFetcher(db, 100, 10)
	rows, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 || rows[0].OpportunityID != "with-quote" {
		t.Fatalf("expected only the joined row, got %+v", rows)
	}
}

func TestFetchAppliesDealSizeBucket(t *testing.T) {
	db := setupFlowTestDB(t)
	insertPair(t, db, "small", ts("2025-05-01"), tsp("2025-05-03"), f64(2), f64(5_000), "DE")
	insertPair(t, db, "medium", ts("2025-05-01"), tsp("2025-05-03"), f64(2), f64(50_000), "DE")
	insertPair(t, db, "large", ts("2025-05-01"), tsp("2025-05-03"), f64(2), f64(500_000), "DE")
	insertPair(t, db, "enterprise", ts("2025-05-01"), tsp("2025-05-03"), f64(2), f64(5_000_000), "DE")

	f := newTestFetcher(db, 100, 10)
	for _, bucket := range []string{"small", "medium", "large", "enterprise"} {
		rows, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{DealSize: bucket})
		if err != nil {
			t.Fatalf("fetch %s: %v", bucket, err)
		}
		if len(rows) != 1 || rows[0].OpportunityID != bucket {
			t.Fatalf("bucket %s: got %+v", bucket, rows)
		}
	}

	if _, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{DealSize: "gigantic"}); !errors.Is(err, flowdomain.ErrInvalidDealSize) {
		t.Fatalf("expected invalid deal size error")
	}
}

func TestDealSizeBoundsPartition(t *testing.T) {
	amounts := []float64{0, 9_999.99, 10_000, 99_999.99, 100_000, 999_999.99, 1_000_000, 25_000_000}
	buckets := []string{"small", "medium", "large", "enterprise"}

	for _, amount := range amounts {
		matches := 0
		for _, bucket := range buckets {
			min, max, err := DealSizeBounds(bucket)
			if err != nil {
				t.Fatalf("bounds %s: %v", bucket, err)
			}
			in := true
			if min != nil && amount < *min {
				in = false
			}
			if max != nil && amount >= *max {
				in = false
			}
			if in {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("amount %v matched %d buckets, want exactly 1", amount, matches)
		}
	}
}

func TestExtendedRangeSliceMatchesDirectFetch(t *testing.T) {
	db := setupFlowTestDB(t)
	created := []string{
		"2024-12-02", "2024-12-03", "2025-03-02",
		"2025-03-03", "2025-05-15", "2025-06-01",
	}
	for i, day := range created {
		insertPair(t, db, fmt.Sprintf("opp-%d", i), ts(day), tsp(day), f64(2), f64(50_000), "DE")
	}

	f := newTestFetcher(db, 100, 10)
	today := ts("2025-06-01")
	periods := period.Resolve(nil, 90, today)
	extended := period.ExtendedRange(90, today)

	superset, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{
		DateFrom: extended.From,
		DateTo:   extended.To,
	})
	if err != nil {
		t.Fatalf("extended fetch: %v", err)
	}

	sliced := period.Filter(superset, func(r flowdomain.OpportunityQuoteRow) string {
		return r.OpportunityCreatedAt.Format(period.ISODate)
	}, periods.Current)

	direct, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{
		DateFrom: periods.Current.From,
		DateTo:   periods.Current.To,
	})
	if err != nil {
		t.Fatalf("direct fetch: %v", err)
	}

	slicedIDs := idSet(sliced)
	directIDs := idSet(direct)
	if len(slicedIDs) != len(directIDs) {
		t.Fatalf("slice/direct mismatch: %v vs %v", slicedIDs, directIDs)
	}
	for id := range directIDs {
		if _, ok := slicedIDs[id]; !ok {
			t.Fatalf("direct row %s missing from slice", id)
		}
	}
}

func TestFetchBoundsEachPageByQueryBudget(t *testing.T) {
	db := setupFlowTestDB(t)
	insertPair(t, db, "opp-1", ts("2025-05-01"), tsp("2025-05-10"), f64(2), f64(50_000), "DE")

	f := newTestFetcher(db, 100, 10)
	f.queryTimeout = time.Minute

	var sawDeadline bool
	rows, err := fetchAll[flowdomain.OpportunityQuoteRow](context.Background(), f, func(ctx context.Context) (*gorm.DB, error) {
		_, sawDeadline = ctx.Deadline()
		return f.db.WithContext(ctx).
			Table("mv_opportunity_quote_pairs").
			Order("opportunity_created_date DESC"), nil
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !sawDeadline {
		t.Fatalf("expected page context to carry the query deadline")
	}
}

func TestExhaustedQueryBudgetSurfacesTimeout(t *testing.T) {
	db := setupFlowTestDB(t)
	insertPair(t, db, "opp-1", ts("2025-05-01"), tsp("2025-05-10"), f64(2), f64(50_000), "DE")

	// A one-nanosecond budget is already spent when the page query runs.
	f := newTestFetcher(db, 100, 10)
	f.queryTimeout = time.Nanosecond

	if _, err := f.OpportunityQuotePairs(context.Background(), flowdomain.Filters{}); !errors.Is(err, flowdomain.ErrQueryTimeout) {
		t.Fatalf("expected query timeout, got %v", err)
	}
}

func TestStatementTimeoutIsRetried(t *testing.T) {
	if !IsStatementTimeout(errors.New("ERROR: canceling statement due to statement timeout (SQLSTATE 57014)")) {
		t.Fatalf("expected statement timeout to be retryable")
	}
	if IsStatementTimeout(errors.New("connection refused")) {
		t.Fatalf("expected unrelated error to be non-retryable")
	}
}

func idSet(rows []flowdomain.OpportunityQuoteRow) map[string]struct{} {
	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		out[row.OpportunityID] = struct{}{}
	}
	return out
}
