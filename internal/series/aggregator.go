// backend-go/internal/series/aggregator.go
package series

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/salescast/backend-go/internal/domain"
)

// Day normalizes a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

type bucket struct {
	quantity float64
	revenue  decimal.Decimal
}

// Aggregate groups records by sale date, sums quantity and revenue, and
// fills every missing calendar day within [min date, max date] of the
// input subset with a zero entry. The result is sorted ascending and
// gap-free. An empty input yields an empty series: there is no span to
// fill and callers must treat it as "no data".
func Aggregate(records []domain.TransactionRecord) domain.DailySeries {
	if len(records) == 0 {
		return nil
	}

	buckets := make(map[time.Time]*bucket)
	var minDate, maxDate time.Time
	for _, rec := range records {
		if rec.SaleDate.IsZero() {
			// Rows without a parsed sale date never aggregate.
			continue
		}
		day := Day(rec.SaleDate)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}
		b.quantity += rec.Quantity
		b.revenue = b.revenue.Add(rec.NetAmount)

		if minDate.IsZero() || day.Before(minDate) {
			minDate = day
		}
		if maxDate.IsZero() || day.After(maxDate) {
			maxDate = day
		}
	}

	if len(buckets) == 0 {
		return nil
	}

	return fillSpan(buckets, minDate, maxDate)
}

// FillForward re-runs the gap-fill over [series first date, end],
// synthesizing zero entries for every day past the real data. Entries
// beyond end are dropped, so the result always terminates exactly at end.
func FillForward(s domain.DailySeries, end time.Time) domain.DailySeries {
	if len(s) == 0 {
		return nil
	}
	end = Day(end)

	buckets := make(map[time.Time]*bucket, len(s))
	for _, p := range s {
		day := Day(p.Date)
		if day.After(end) {
			continue
		}
		buckets[day] = &bucket{quantity: p.Quantity, revenue: p.Revenue}
	}

	start := Day(s.FirstDate())
	if end.Before(start) {
		return nil
	}

	return fillSpan(buckets, start, end)
}

func fillSpan(buckets map[time.Time]*bucket, minDate, maxDate time.Time) domain.DailySeries {
	out := make(domain.DailySeries, 0, DaysBetween(minDate, maxDate)+1)
	for d := minDate; !d.After(maxDate); d = d.AddDate(0, 0, 1) {
		if b, ok := buckets[d]; ok {
			out = append(out, domain.DailyPoint{Date: d, Quantity: b.quantity, Revenue: b.revenue})
		} else {
			out = append(out, domain.DailyPoint{Date: d, Quantity: 0, Revenue: decimal.Zero})
		}
	}
	return out
}
