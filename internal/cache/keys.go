package cache

import "time"

// Key schema. Every key the storefront writes into the cache is built here so
// the namespacing stays in one place.

const (
	CartTTL       = 7 * 24 * time.Hour
	StockTTL      = time.Hour
	OrderSeqTTL   = 2 * time.Second
	DailyStatsTTL = 30 * 24 * time.Hour
	DedupTTL      = 24 * time.Hour
)

const (
	TotalSalesKey       = "statistics:sales:total"
	TotalSalesCountKey  = "statistics:sales:total:count"
	TotalSalesUpdateKey = "statistics:sales:total:update"
	ProductRankKey      = "statistics:product:sales:rank"
	StatsQueueKey       = "statistics:update:queue"
	OrderCountTotalKey  = "order:count:total"
)

func CartKey(userID string) string {
	return "cart:" + userID
}

func StockKey(productID string) string {
	return "stock:" + productID
}

func OrderSeqKey(timestamp string) string {
	return "order:seq:" + timestamp
}

func OrderStatusCountKey(status string) string {
	return "order:count:status:" + status
}

func OrderDailyCountKey(day string) string {
	return "order:count:daily:" + day
}

func OrderDailyStatusCountKey(day, status string) string {
	return "order:count:daily:" + day + ":" + status
}

func DailySalesKey(day string) string {
	return "statistics:sales:daily:" + day
}

func ProductSalesKey(productID string) string {
	return "statistics:product:sales:" + productID
}

func ProcessedOrdersKey(day string) string {
	return "statistics:processed:orders:" + day
}
