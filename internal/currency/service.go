package currency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sgericke98/beacon-l2c-sub000/internal/cache"
	"github.com/sgericke98/beacon-l2c-sub000/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const rateTTL = 30 * time.Minute

var ErrUnknownCurrency = errors.New("unknown_currency")

// Service resolves exchange rates through the get_exchange_rate database
// function, fronted by a TTL cache so metric requests do not hammer it.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	rates cache.Cache[string, float64]
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("currency.service"),
		rates: cache.NewTTLCache[string, float64](p.Clock),
	}
}

// Rate returns the conversion rate from one ISO currency code to another.
func (s *Service) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, ErrUnknownCurrency
	}
	if from == to {
		return 1, nil
	}

	key := from + ":" + to
	if rate, ok := s.rates.Get(key); ok {
		return rate, nil
	}

	var rate *float64
	err := s.db.WithContext(ctx).Raw(
		`SELECT get_exchange_rate(?, ?)`,
		from,
		to,
	).Scan(&rate).Error
	if err != nil {
		return 0, err
	}
	if rate == nil || *rate <= 0 {
		return 0, ErrUnknownCurrency
	}

	s.rates.Set(key, *rate, rateTTL)
	return *rate, nil
}

// ToUSD converts an amount in the given currency to USD.
func (s *Service) ToUSD(ctx context.Context, amount float64, currencyCode string) (float64, error) {
	rate, err := s.Rate(ctx, currencyCode, "USD")
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}
