package model

import "github.com/shopspring/decimal"

// CutTotals is the aggregated breakdown of a time window, produced by the
// period aggregator. It is derived data: it can always be rebuilt from the
// transaction stream for the same window.
type CutTotals struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	RecordCount   int             `json:"record_count"`
	AverageTicket decimal.Decimal `json:"average_ticket"`

	PaymentBreakdown map[string]MethodTotal `json:"payment_breakdown"`
	ServiceBreakdown map[string]MethodTotal `json:"service_breakdown"`
	TopProducts      []ProductTotal         `json:"top_products"`
	HourlyBreakdown  []HourTotal            `json:"hourly_breakdown"`
}

// MethodTotal is a (count, amount) pair for one payment method or service type.
type MethodTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// ProductTotal ranks one product by revenue within the window.
type ProductTotal struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// HourTotal buckets records by the hour-of-day component of their timestamp.
type HourTotal struct {
	Hour    string          `json:"hour"` // "00".."23"
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}
