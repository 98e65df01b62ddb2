package processor

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Rockazim/vertex-funding-rates/models"
)

// Raw archive values are 24-hour funding rates scaled by 1e18.
var (
	rateScale   = decimal.New(1, 18)
	hoursPerDay = decimal.NewFromInt(24)
	percent     = decimal.NewFromInt(100)
)

// ProcessFundingRates converts raw snapshot values into hourly percentage
// entries grouped by ticker. Entries are appended in encounter order:
// snapshot order first, then map iteration order within a snapshot, which is
// unspecified — the source guarantees no key order, so ranking ties between
// tickers first seen in the same snapshot are not reproducible across runs.
// The stage never fails; malformed rates degrade to zero-valued entries with
// the Fallback flag set, and unmapped or non-numeric product ids get an
// Unknown(<id>) label.
func ProcessFundingRates(snapshots []models.Snapshot, mapping *models.ProductMapping) *models.FundingBook {
	book := models.NewFundingBook()
	for _, snapshot := range snapshots {
		for key, raw := range snapshot.FundingRates {
			entry := models.FundingEntry{Timestamp: snapshot.Timestamp}
			if value, err := decimal.NewFromString(raw); err != nil {
				entry.Fallback = true
			} else {
				entry.HourlyRatePct = value.Div(rateScale).Div(hoursPerDay).Mul(percent).InexactFloat64()
			}
			book.Append(resolveTicker(mapping, key), entry)
		}
	}
	return book
}

// resolveTicker maps a product-id key to its ticker symbol. Non-numeric keys
// are used literally in the placeholder label instead of failing the record.
func resolveTicker(mapping *models.ProductMapping, key string) string {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return fmt.Sprintf("Unknown(%s)", key)
	}
	if ticker, ok := mapping.Ticker(id); ok {
		return ticker
	}
	return fmt.Sprintf("Unknown(%d)", id)
}
