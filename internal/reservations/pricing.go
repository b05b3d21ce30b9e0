package reservations

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// BillableDays rounds a rental window up to whole days, minimum one.
func BillableDays(start, end time.Time) int64 {
	days := int64(math.Ceil(float64(end.Sub(start)) / float64(day)))
	if days < 1 {
		return 1
	}
	return days
}

// Quote prices a window at the vehicle's daily rate.
func Quote(pricePerDay decimal.Decimal, start, end time.Time) decimal.Decimal {
	return pricePerDay.Mul(decimal.NewFromInt(BillableDays(start, end))).Round(2)
}
