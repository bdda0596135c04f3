package aggregation

import (
	"testing"

	"bakeslip/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleSliceOrders() []model.Order {
	const product = `B441 4" Regular Tray 60`
	return []model.Order{
		{Route: "ATHLONE", Product: product, Trays: 15},
		{Route: "BALLINA DEPOT", Product: product, Trays: 13},
		{Route: "BUCKLEY GALWAY", Product: product, Trays: 14},
		{Route: "BUCKLEY LIMERICK", Product: product, Trays: 13},
		{Route: "BUCKLEY LIMERICK", Product: product, Trays: 2},
		{Route: "BUCKLEY PORTLAOISE", Product: product, Trays: 7},
		{Route: "Carlow", Product: product, Trays: 12},
		{Route: "DUBLIN BULK", Product: product, Trays: 8},
		{Route: "DUBLIN BULK", Product: product, Trays: 3},
		{Route: "FINNERTY", Product: product, Trays: 34},
		{Route: "KILBEGGAN", Product: product, Trays: 6},
		{Route: "LONGFORD", Product: product, Trays: 2},
		{Route: "NAVAN", Product: product, Trays: 5},
		{Route: "NAVAN", Product: product, Trays: 2},
		{Route: "Shercock", Product: product, Trays: 1},
	}
}

func TestAggregateOrdersMergesCaseAndWhitespaceVariants(t *testing.T) {
	got := AggregateOrders([]model.Order{
		{Route: "Athlone", Product: `B441 4" Tray`, Trays: 15},
		{Route: "athlone", Product: ` b441 4" tray `, Trays: 5},
	})

	want := []model.Order{{Route: "Athlone", Product: `B441 4" Tray`, Trays: 20}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("aggregated orders mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateOrdersEmptyInput(t *testing.T) {
	got := AggregateOrders(nil)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestAggregateOrdersKeepsFirstSeenStockFlag(t *testing.T) {
	got := AggregateOrders([]model.Order{
		{Route: "Navan", Product: "Regular", Trays: 3, InStock: true},
		{Route: "NAVAN", Product: "regular", Trays: 4, InStock: false},
	})
	require.Len(t, got, 1)
	require.Equal(t, "Navan", got[0].Route)
	require.True(t, got[0].InStock)
	require.Equal(t, 7, got[0].Trays)
}

func TestAggregateOrdersSampleList(t *testing.T) {
	input := sampleSliceOrders()
	got := AggregateOrders(input)

	require.Len(t, got, 12)
	require.Equal(t, model.OrderData{Orders: input}.TotalTrays(), model.OrderData{Orders: got}.TotalTrays())

	routes := make([]string, 0, len(got))
	for _, o := range got {
		routes = append(routes, o.Route)
	}
	require.Equal(t, []string{
		"ATHLONE", "BALLINA DEPOT", "BUCKLEY GALWAY", "BUCKLEY LIMERICK", "BUCKLEY PORTLAOISE",
		"Carlow", "DUBLIN BULK", "FINNERTY", "KILBEGGAN", "LONGFORD", "NAVAN", "Shercock",
	}, routes)

	byRoute := map[string]int{}
	for _, o := range got {
		byRoute[o.Route] = o.Trays
	}
	require.Equal(t, 15, byRoute["BUCKLEY LIMERICK"])
	require.Equal(t, 11, byRoute["DUBLIN BULK"])
	require.Equal(t, 7, byRoute["NAVAN"])
}

func TestAggregateOrdersIsOrderIndependentForSums(t *testing.T) {
	forward := []model.Order{
		{Route: "Longford", Product: "Regular", Trays: 2},
		{Route: "Kilbeggan", Product: "Regular", Trays: 6},
		{Route: "LONGFORD", Product: "REGULAR", Trays: 9},
		{Route: "Kilbeggan", Product: "Brown", Trays: 1},
	}
	reversed := make([]model.Order, len(forward))
	for i, o := range forward {
		reversed[len(forward)-1-i] = o
	}

	sums := func(orders []model.Order) map[string]int {
		m := map[string]int{}
		for _, o := range AggregateOrders(orders) {
			m[OrderKey(o)] = o.Trays
		}
		return m
	}
	require.Equal(t, sums(forward), sums(reversed))

	// 表記は最初に現れた注文のものが残る
	require.Equal(t, "LONGFORD", AggregateOrders(reversed)[2].Route)
	require.Equal(t, "Longford", AggregateOrders(forward)[2].Route)
}

func TestAggregateOrdersAtMostOneEntryPerKey(t *testing.T) {
	input := []model.Order{
		{Route: " Finnerty", Product: "Regular ", Trays: 1},
		{Route: "FINNERTY", Product: "regular", Trays: 1},
		{Route: "finnerty  ", Product: " REGULAR", Trays: 1},
		{Route: "Finnerty", Product: "Brown", Trays: 4},
	}
	got := AggregateOrders(input)

	seen := map[string]bool{}
	for _, o := range got {
		key := OrderKey(o)
		require.False(t, seen[key], "duplicate key %q", key)
		seen[key] = true
	}
	require.Len(t, got, 2)
}

func TestSortByRouteIsLocaleAware(t *testing.T) {
	orders := []model.Order{
		{Route: "shercock"},
		{Route: "Athlone"},
		{Route: "carlow"},
		{Route: "BALLINA"},
	}
	SortByRoute(orders)
	require.Equal(t, "Athlone", orders[0].Route)
	require.Equal(t, "BALLINA", orders[1].Route)
	require.Equal(t, "carlow", orders[2].Route)
	require.Equal(t, "shercock", orders[3].Route)
	require.Negative(t, CompareRoutes("athlone", "Ballina"))
}

func TestUniqueProducts(t *testing.T) {
	got := UniqueProducts([]model.Order{
		{Product: "Regular"}, {Product: "Brown"}, {Product: "Regular"},
	})
	require.Equal(t, []string{"Regular", "Brown"}, got)
	require.Empty(t, UniqueProducts(nil))
}
