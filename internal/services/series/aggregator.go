package series

import (
	"math"
	"sort"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/util"
)

// MinPeriods is the shortest series that survives aggregation.
const MinPeriods = 8

type bucket struct {
	sum   float64
	count int
}

// Stats counts what Add did with each observation.
type Stats struct {
	Accepted      int
	MissingPeriod int
	BadPeriod     int
	BadPrice      int
}

// Aggregator accumulates per-key, per-period sums. It is not safe for concurrent use
// and is meant to live for a single run.
type Aggregator struct {
	buckets map[models.FilterKey]map[string]*bucket
	stats   Stats
}

func NewAggregator() *Aggregator {
	return &Aggregator{buckets: make(map[models.FilterKey]map[string]*bucket)}
}

// Add folds one observation into every key it belongs to. It reports whether the
// observation was usable.
func (a *Aggregator) Add(o models.Observation) bool {
	switch {
	case o.Period == "":
		a.stats.MissingPeriod++
		return false
	case !util.IsPeriod(o.Period):
		a.stats.BadPeriod++
		return false
	case o.Price <= 0 || math.IsNaN(o.Price) || math.IsInf(o.Price, 0):
		a.stats.BadPrice++
		return false
	}
	seen := make(map[models.FilterKey]struct{}, 8)
	for _, k := range Keys(o) {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		periods, ok := a.buckets[k]
		if !ok {
			periods = make(map[string]*bucket)
			a.buckets[k] = periods
		}
		b, ok := periods[o.Period]
		if !ok {
			b = &bucket{}
			periods[o.Period] = b
		}
		b.sum += o.Price
		b.count++
	}
	a.stats.Accepted++
	return true
}

func (a *Aggregator) Stats() Stats { return a.stats }

// Series returns the mean-per-period series of every key with at least minPeriods
// periods, ordered by serialized key.
func (a *Aggregator) Series(minPeriods int) []models.Series {
	out := make([]models.Series, 0, len(a.buckets))
	for k, periods := range a.buckets {
		if len(periods) < minPeriods {
			continue
		}
		ps := make([]string, 0, len(periods))
		for p := range periods {
			ps = append(ps, p)
		}
		sort.Strings(ps)
		vals := make([]float64, len(ps))
		for i, p := range ps {
			b := periods[p]
			vals[i] = b.sum / float64(b.count)
		}
		out = append(out, models.Series{Key: k, Periods: ps, Values: vals})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Aggregate is the one-shot form of Add + Series.
func Aggregate(obs []models.Observation, minPeriods int) ([]models.Series, Stats) {
	a := NewAggregator()
	for _, o := range obs {
		a.Add(o)
	}
	return a.Series(minPeriods), a.Stats()
}
