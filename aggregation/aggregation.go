package aggregation

import (
	"bakeslip/model"
)

// AggregateOrders は (ルート, 製品) キーごとに注文をまとめ、ルート順に並べて返します。
// 最初に現れた注文が代表となり、表記と InStock はそのまま残ります。
// 後続の同一キーの注文はトレイ数だけが加算されます。
func AggregateOrders(orders []model.Order) []model.Order {
	index := make(map[string]int, len(orders))
	result := make([]model.Order, 0, len(orders))

	for _, o := range orders {
		key := OrderKey(o)
		if i, ok := index[key]; ok {
			result[i].Trays += o.Trays
			continue
		}
		index[key] = len(result)
		result = append(result, o)
	}

	SortByRoute(result)
	return result
}
