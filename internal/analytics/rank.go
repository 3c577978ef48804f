package analytics

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// topN bounds every ranked breakdown.
const topN = 10

// round rounds half away from zero to places decimals.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// percentage returns part/whole as a percentage rounded to 2 decimals, or 0
// when whole is 0.
func percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round(part/whole*100, 2)
}

// rankCounts orders counts descending (ties by name) and keeps the first n.
func rankCounts(counts map[string]int64, n int) []NameValue {
	out := lo.MapToSlice(counts, func(name string, count int64) NameValue {
		return NameValue{Name: name, Value: count}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// usageBreakdown ranks counts and attaches percentages whose base is the
// sum over every group, including those cut by truncation.
func usageBreakdown(counts map[string]int64) []UsageBreakdown {
	var total int64
	for _, c := range counts {
		total += c
	}
	return lo.Map(rankCounts(counts, topN), func(nv NameValue, _ int) UsageBreakdown {
		return UsageBreakdown{
			Name:       nv.Name,
			Count:      nv.Value,
			Percentage: percentage(float64(nv.Value), float64(total)),
		}
	})
}

// valueBreakdown ranks summed values and attaches percentages of grandTotal.
func valueBreakdown(values map[string]float64, grandTotal float64) []ValueBreakdown {
	out := lo.MapToSlice(values, func(name string, v float64) ValueBreakdown {
		return ValueBreakdown{Name: name, Value: v, Percentage: percentage(v, grandTotal)}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
