package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	varietalLoverThreshold = 5
	topRatedLimit          = 3
)

type ladderStep struct {
	key       string
	label     string
	threshold int64
}

var consumedLadder = []ladderStep{
	{key: "first-sip", label: "First Sip", threshold: 1},
	{key: "five-deep", label: "5 Bottles Deep", threshold: 5},
	{key: "dozen-club", label: "Dozen Club", threshold: 12},
	{key: "quarter-century", label: "Quarter Century", threshold: 25},
	{key: "half-century", label: "Half Century", threshold: 50},
}

// Rollup assembles a Profile from grouped query results. It does no I/O.
func Rollup(agg Aggregates) Profile {
	return Profile{
		Cellar: CellarStats{
			TotalBottles:      agg.TotalBottles,
			TotalWines:        agg.TotalWines,
			VarietalBreakdown: nonEmpty(agg.CellarVarietal),
			VintageBreakdown:  sortedVintages(agg.Vintages),
			OldestVintage:     agg.Oldest,
			TotalValue:        totalValue(agg.Priced),
		},
		Consumed: ConsumedStats{
			TotalConsumed:       agg.TotalConsumed,
			AverageRating:       averageRating(agg.RatingSum, agg.RatedCount),
			ConsumedByVarietal:  nonEmpty(agg.ConsumedVarietal),
			AvgRatingByVarietal: varietalAverages(agg.VarietalRatings),
			TopRated:            topRated(agg.TopRated),
		},
		Milestones: milestones(agg.TotalConsumed, agg.ConsumedVarietal),
	}
}

func nonEmpty(in []VarietalCount) []VarietalCount {
	out := make([]VarietalCount, 0, len(in))
	for _, v := range in {
		if v.Varietal != "" {
			out = append(out, v)
		}
	}
	return out
}

func sortedVintages(in []VintageCount) []VintageCount {
	out := make([]VintageCount, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Vintage < out[j].Vintage })
	return out
}

// totalValue is null when no entry carries a purchase price.
func totalValue(entries []PricedEntry) decimal.NullDecimal {
	if len(entries) == 0 {
		return decimal.NullDecimal{}
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Price.Mul(decimal.NewFromInt(e.Quantity)))
	}
	return decimal.NewNullDecimal(sum.Round(2))
}

func averageRating(sum, count int64) int64 {
	if count == 0 {
		return 0
	}
	return int64(math.Round(float64(sum) / float64(count)))
}

func varietalAverages(in []VarietalRatingSum) []VarietalRating {
	out := make([]VarietalRating, 0, len(in))
	for _, v := range in {
		if v.Varietal == "" || v.Count == 0 {
			continue
		}
		avg := float64(v.Sum) / float64(v.Count)
		out = append(out, VarietalRating{
			Varietal:  v.Varietal,
			AvgRating: math.Round(avg*10) / 10,
			Count:     v.Count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgRating != out[j].AvgRating {
			return out[i].AvgRating > out[j].AvgRating
		}
		return out[i].Varietal < out[j].Varietal
	})
	return out
}

func topRated(in []RatedWine) []RatedWine {
	out := make([]RatedWine, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > topRatedLimit {
		out = out[:topRatedLimit]
	}
	return out
}

func milestones(consumed int64, varietals []VarietalCount) []Milestone {
	out := make([]Milestone, 0, len(consumedLadder)+len(varietals))
	for _, step := range consumedLadder {
		out = append(out, Milestone{
			Key:         step.key,
			Label:       step.label,
			Description: fmt.Sprintf("Consume %d %s", step.threshold, wineNoun(step.threshold)),
			Threshold:   step.threshold,
			Achieved:    consumed >= step.threshold,
		})
	}

	lovers := make([]VarietalCount, 0)
	for _, v := range varietals {
		if v.Varietal != "" && v.Count >= varietalLoverThreshold {
			lovers = append(lovers, v)
		}
	}
	sort.Slice(lovers, func(i, j int) bool { return lovers[i].Varietal < lovers[j].Varietal })
	for _, v := range lovers {
		out = append(out, Milestone{
			Key:         "varietal-" + v.Varietal,
			Label:       v.Varietal + " Lover",
			Description: fmt.Sprintf("Consume %d %s wines", varietalLoverThreshold, v.Varietal),
			Threshold:   varietalLoverThreshold,
			Achieved:    true,
		})
	}
	return out
}

func wineNoun(n int64) string {
	if n == 1 {
		return "wine"
	}
	return "wines"
}
