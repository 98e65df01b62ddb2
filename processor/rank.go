package processor

import (
	"sort"

	"github.com/Rockazim/vertex-funding-rates/models"
)

// AverageRates sums each ticker's hourly percentages and divides by the day
// divisor, yielding an approximate average daily rate. The result is sorted
// by rate descending; the sort is stable, so equal averages keep the tickers'
// first-appearance order.
func AverageRates(book *models.FundingBook, divisorDays int) []models.AverageRate {
	rates := make([]models.AverageRate, 0, book.Len())
	for _, ticker := range book.Tickers() {
		var total float64
		for _, entry := range book.Entries(ticker) {
			total += entry.HourlyRatePct
		}
		rates = append(rates, models.AverageRate{
			Ticker: ticker,
			Rate:   total / float64(divisorDays),
		})
	}

	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].Rate > rates[j].Rate
	})
	return rates
}
