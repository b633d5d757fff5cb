package seed

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type rate struct {
	From string
	To   string
	Rate float64
}

// defaultRates are development fixtures so USD conversion works before a
// rates feed is configured. Production rates come from the feed, never
// from here.
var defaultRates = []rate{
	{From: "EUR", To: "USD", Rate: 1.08},
	{From: "GBP", To: "USD", Rate: 1.27},
	{From: "CAD", To: "USD", Rate: 0.73},
	{From: "AUD", To: "USD", Rate: 0.66},
	{From: "JPY", To: "USD", Rate: 0.0068},
}

// EnsureExchangeRates seeds fallback exchange rates, leaving any existing
// pair untouched.
func EnsureExchangeRates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	validFrom := time.Now().UTC().Truncate(24 * time.Hour)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range defaultRates {
			var count int64
			err := tx.Table("exchange_rates").
				Where("from_currency = ? AND to_currency = ?", r.From, r.To).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			err = tx.Exec(
				`INSERT INTO exchange_rates (from_currency, to_currency, rate, valid_from)
				 VALUES (?, ?, ?, ?)`,
				r.From, r.To, r.Rate, validFrom,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
