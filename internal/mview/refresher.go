package mview

import (
	"context"
	"math/rand"
	"sync"

	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Views served to the metrics layer, refreshed together.
var views = []string{
	"mv_opportunity_quote_pairs",
	"mv_quote_order_pairs",
	"mv_invoice_payment_pairs",
}

// Refresher keeps the materialized views reasonably fresh. Each metrics
// request rolls a configurable probability before triggering a refresh;
// two concurrent refreshes are redundant but harmless, so there is no
// mutual exclusion beyond what Postgres provides.
type Refresher struct {
	db          *gorm.DB
	log         *zap.Logger
	probability float64

	mu   sync.Mutex
	roll func() float64
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

func NewRefresher(p Params) *Refresher {
	probability := p.Cfg.MView.RefreshProbability
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}
	return &Refresher{
		db:          p.DB,
		log:         p.Log.Named("mview.refresher"),
		probability: probability,
		roll:        rand.Float64,
	}
}

// MaybeRefresh refreshes all views with the configured probability. It is
// fire-and-forget from the caller's perspective: failures are logged, not
// propagated, so a stale view never fails a metrics request.
func (r *Refresher) MaybeRefresh(ctx context.Context) {
	if r == nil || r.probability <= 0 {
		return
	}
	r.mu.Lock()
	hit := r.roll() < r.probability
	r.mu.Unlock()
	if !hit {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn("materialized view refresh failed", zap.Error(err))
	}
}

// Refresh refreshes every metric view concurrently with readers.
func (r *Refresher) Refresh(ctx context.Context) error {
	for _, view := range views {
		if err := r.db.WithContext(ctx).Exec(
			"REFRESH MATERIALIZED VIEW CONCURRENTLY " + view,
		).Error; err != nil {
			return err
		}
	}
	return nil
}
