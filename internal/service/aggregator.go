package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cortepos/internal/model"
	"cortepos/internal/repository"
)

const topProductsLimit = 10

// Aggregator reduces a window of the transaction stream into cut totals.
// It is deterministic and side-effect-free: the same window over an
// unchanged record set produces identical totals, which is what makes the
// coordinator's duplicate detection decidable. Amounts accumulate in full
// precision and are rounded (half-up, 2 decimals) once, on output.
type Aggregator struct {
	source repository.TransactionSource
}

func NewAggregator(source repository.TransactionSource) *Aggregator {
	return &Aggregator{source: source}
}

func (a *Aggregator) Aggregate(ctx context.Context, windowStart, windowEnd time.Time) (*model.CutTotals, error) {
	if !windowStart.Before(windowEnd) {
		return nil, fmt.Errorf("%w: window start must precede window end", model.ErrValidation)
	}

	records, err := a.source.ListRecords(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	type productAcc struct {
		quantity   int
		revenue    decimal.Decimal
		firstIndex int
	}
	type bucketAcc struct {
		count  int
		amount decimal.Decimal
	}

	var income, cost decimal.Decimal
	saleCount := 0
	payments := map[string]*bucketAcc{}
	services := map[string]*bucketAcc{}
	products := map[string]*productAcc{}
	hours := map[int]*bucketAcc{}

	for i, rec := range records {
		if rec.Kind == model.RecordKindExpense {
			// Expense records raise cost only; they are not tickets.
			cost = cost.Add(rec.Total)
			continue
		}

		income = income.Add(rec.Total)
		cost = cost.Add(rec.Cost)
		saleCount++

		pm := payments[rec.PaymentMethod]
		if pm == nil {
			pm = &bucketAcc{}
			payments[rec.PaymentMethod] = pm
		}
		pm.count++
		pm.amount = pm.amount.Add(rec.Total)

		sv := services[rec.ServiceType]
		if sv == nil {
			sv = &bucketAcc{}
			services[rec.ServiceType] = sv
		}
		sv.count++
		sv.amount = sv.amount.Add(rec.Total)

		if rec.ProductName != "" {
			p := products[rec.ProductName]
			if p == nil {
				p = &productAcc{firstIndex: i}
				products[rec.ProductName] = p
			}
			p.quantity += rec.Quantity
			p.revenue = p.revenue.Add(rec.Revenue)
		}

		h := rec.OccurredAt.Hour()
		hb := hours[h]
		if hb == nil {
			hb = &bucketAcc{}
			hours[h] = hb
		}
		hb.count++
		hb.amount = hb.amount.Add(rec.Total)
	}

	totals := &model.CutTotals{
		TotalIncome:      income.Round(2),
		TotalCost:        cost.Round(2),
		TotalProfit:      income.Sub(cost).Round(2),
		RecordCount:      saleCount,
		AverageTicket:    decimal.Zero,
		PaymentBreakdown: make(map[string]model.MethodTotal, len(payments)),
		ServiceBreakdown: make(map[string]model.MethodTotal, len(services)),
	}
	if saleCount > 0 {
		totals.AverageTicket = income.Div(decimal.NewFromInt(int64(saleCount))).Round(2)
	}

	for method, acc := range payments {
		totals.PaymentBreakdown[method] = model.MethodTotal{Count: acc.count, Amount: acc.amount.Round(2)}
	}
	for svc, acc := range services {
		totals.ServiceBreakdown[svc] = model.MethodTotal{Count: acc.count, Amount: acc.amount.Round(2)}
	}

	type rankedProduct struct {
		name string
		acc  *productAcc
	}
	ranked := make([]rankedProduct, 0, len(products))
	for name, acc := range products {
		ranked = append(ranked, rankedProduct{name, acc})
	}
	sort.Slice(ranked, func(a, b int) bool {
		cmp := ranked[a].acc.revenue.Cmp(ranked[b].acc.revenue)
		if cmp != 0 {
			return cmp > 0
		}
		// Revenue tie: first occurrence in the stream wins.
		return ranked[a].acc.firstIndex < ranked[b].acc.firstIndex
	})
	if len(ranked) > topProductsLimit {
		ranked = ranked[:topProductsLimit]
	}
	totals.TopProducts = make([]model.ProductTotal, 0, len(ranked))
	for _, rp := range ranked {
		totals.TopProducts = append(totals.TopProducts, model.ProductTotal{
			ProductName: rp.name,
			Quantity:    rp.acc.quantity,
			Revenue:     rp.acc.revenue.Round(2),
		})
	}

	hourKeys := make([]int, 0, len(hours))
	for h := range hours {
		hourKeys = append(hourKeys, h)
	}
	sort.Ints(hourKeys)
	totals.HourlyBreakdown = make([]model.HourTotal, 0, len(hourKeys))
	for _, h := range hourKeys {
		totals.HourlyBreakdown = append(totals.HourlyBreakdown, model.HourTotal{
			Hour:    fmt.Sprintf("%02d", h),
			Count:   hours[h].count,
			Revenue: hours[h].amount.Round(2),
		})
	}

	return totals, nil
}
