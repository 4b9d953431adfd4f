package series

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
)

func obs(period, region, cat, sub, prod string, price float64) models.Observation {
	return models.Observation{Period: period, Region: region, Category: cat, Subcategory: sub, Product: prod, Price: price}
}

func months(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%04d-%02d", 2020+i/12, i%12+1)
	}
	return out
}

func TestKeysHierarchy(t *testing.T) {
	keys := Keys(obs("2024-01", "Sul", "Grãos", "Arroz", "Arroz 5kg", 10))
	require.Len(t, keys, 8)

	set := make(map[models.FilterKey]bool)
	for _, k := range keys {
		set[k] = true
	}
	// every key's parent level is present as well
	for k := range set {
		if k.Product != "" {
			assert.True(t, set[models.FilterKey{Region: k.Region, Category: k.Category, Subcategory: k.Subcategory}])
		}
		if k.Subcategory != "" {
			assert.True(t, set[models.FilterKey{Region: k.Region, Category: k.Category}])
		}
		if k.Category != "" {
			assert.True(t, set[models.FilterKey{Region: k.Region}])
		}
		assert.False(t, k.Product != "" && k.Subcategory == "")
		assert.False(t, k.Subcategory != "" && k.Category == "")
	}
	assert.True(t, set[models.FilterKey{}])
	assert.True(t, set[models.FilterKey{Region: "Sul", Category: "Grãos", Subcategory: "Arroz", Product: "Arroz 5kg"}])
}

func TestKeysWithEmptyLevels(t *testing.T) {
	keys := Keys(obs("2024-01", "", "C", "S", "P", 10))
	assert.Equal(t, []models.FilterKey{
		{},
		{Category: "C"},
		{Category: "C", Subcategory: "S"},
		{Category: "C", Subcategory: "S", Product: "P"},
	}, keys)

	// an empty category ends the chain even when lower levels are set
	keys = Keys(obs("2024-01", "Sul", "", "S", "P", 10))
	assert.Equal(t, []models.FilterKey{{Region: "Sul"}, {}}, keys)

	keys = Keys(obs("2024-01", "Sul", "C", "", "P", 10))
	assert.Equal(t, []models.FilterKey{
		{Region: "Sul"},
		{Region: "Sul", Category: "C"},
		{},
		{Category: "C"},
	}, keys)
}

func TestAggregatorCountsObservationOncePerKey(t *testing.T) {
	var rows []models.Observation
	for _, p := range months(MinPeriods) {
		rows = append(rows,
			obs(p, "", "C", "S", "P", 10),
			obs(p, "R", "C", "S", "P", 40),
		)
	}
	out, stats := Aggregate(rows, MinPeriods)
	assert.Equal(t, 2*MinPeriods, stats.Accepted)

	byKey := make(map[models.FilterKey]models.Series)
	for _, s := range out {
		byKey[s.Key] = s
	}
	require.Len(t, byKey, 8)
	for _, k := range []models.FilterKey{{}, {Category: "C"}, {Category: "C", Subcategory: "S", Product: "P"}} {
		s, ok := byKey[k]
		require.True(t, ok, k.String())
		for _, v := range s.Values {
			assert.InDelta(t, 25.0, v, 1e-12, k.String())
		}
	}
	r := byKey[models.FilterKey{Region: "R", Category: "C", Subcategory: "S", Product: "P"}]
	assert.Equal(t, 40.0, r.Values[0])
}

func TestAggregatorMeansAndOrder(t *testing.T) {
	a := NewAggregator()
	a.Add(obs("2024-02", "Sul", "C", "S", "P", 4))
	a.Add(obs("2024-01", "Sul", "C", "S", "P", 2))
	a.Add(obs("2024-01", "Norte", "C", "S", "P", 6))

	out := a.Series(1)
	byKey := make(map[string]models.Series)
	for i, s := range out {
		if i > 0 {
			assert.Less(t, out[i-1].Key.String(), s.Key.String())
		}
		byKey[s.Key.String()] = s
	}

	all := byKey[models.FilterKey{}.String()]
	assert.Equal(t, []string{"2024-01", "2024-02"}, all.Periods)
	assert.Equal(t, []float64{4, 4}, all.Values)

	sul := byKey[models.FilterKey{Region: "Sul", Category: "C", Subcategory: "S", Product: "P"}.String()]
	assert.Equal(t, []float64{2, 4}, sul.Values)
}

func TestAggregatorMinimumPeriods(t *testing.T) {
	for _, n := range []int{7, 8} {
		var rows []models.Observation
		for _, p := range months(n) {
			rows = append(rows, obs(p, "Sul", "C", "S", "P", 1))
		}
		out, _ := Aggregate(rows, MinPeriods)
		if n < MinPeriods {
			assert.Empty(t, out, "n=%d", n)
		} else {
			assert.Len(t, out, 8, "n=%d", n)
		}
	}
}

func TestAggregatorSkipsBadRows(t *testing.T) {
	a := NewAggregator()
	assert.False(t, a.Add(obs("", "Sul", "C", "S", "P", 1)))
	assert.False(t, a.Add(obs("2024-13", "Sul", "C", "S", "P", 1)))
	assert.False(t, a.Add(obs("2024-01", "Sul", "C", "S", "P", 0)))
	assert.False(t, a.Add(obs("2024-01", "Sul", "C", "S", "P", math.NaN())))
	assert.True(t, a.Add(obs("2024-01", "Sul", "C", "S", "P", 1)))

	assert.Equal(t, Stats{Accepted: 1, MissingPeriod: 1, BadPeriod: 1, BadPrice: 2}, a.Stats())
}
