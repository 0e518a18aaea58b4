// Package features derives the per-customer feature table the churn model is
// trained and scored on. Labels are computed over the full delivered history;
// behavioral aggregates only see orders up to the cutoff date, keeping a
// strict temporal split between label horizon and feature horizon.
package features

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/retailpulse/churnrisk/pkg/models"
)

// ChurnWindowDays is the churn window: a customer whose last purchase is more
// than this many days before the reference date is labeled churned. The
// cutoff date for feature aggregates is the reference date minus this window.
const ChurnWindowDays = 90

var rollingWindows = []int{30, 60, 90}

// baseColumns is the fixed part of the feature schema, in training order.
// One-hot payment indicator columns follow, sorted by name.
var baseColumns = []string{
	models.ColNumOrders,
	models.ColTotalSpent,
	models.ColAvgOrderValue,
	models.ColAvgReview,
	models.ColAvgDeliveryDays,
	models.ColAvgDelay,
	models.ColTotalItems,
	models.ColRecency,
	models.ColTenureDays,
	models.ColAvgDaysBetween,
	models.ColStdDaysBetween,
	models.ColOrdersLast30d,
	models.ColOrdersLast60d,
	models.ColOrdersLast90d,
	models.ColPctLate,
}

// Build derives one feature row per customer from the raw order ledger.
// Only delivered orders are considered. Customers with no activity on or
// before the cutoff date are excluded from the table.
func Build(orders []models.OrderItem) (*models.FeatureSet, error) {
	delivered := make([]models.OrderItem, 0, len(orders))
	for _, o := range orders {
		if o.Delivered() {
			delivered = append(delivered, o)
		}
	}
	if len(delivered) == 0 {
		return nil, &models.EmptyDatasetError{Reason: "no delivered orders in ledger"}
	}

	referenceDate := delivered[0].PurchaseDate
	for _, o := range delivered[1:] {
		if o.PurchaseDate.After(referenceDate) {
			referenceDate = o.PurchaseDate
		}
	}
	cutoffDate := referenceDate.AddDate(0, 0, -ChurnWindowDays)

	// Churn labels use the full delivered history, not the cutoff-limited one.
	lastPurchase := make(map[string]time.Time)
	for _, o := range delivered {
		if t, ok := lastPurchase[o.CustomerUniqueID]; !ok || o.PurchaseDate.After(t) {
			lastPurchase[o.CustomerUniqueID] = o.PurchaseDate
		}
	}

	// Feature aggregates only see pre-cutoff history.
	byCustomer := make(map[string][]models.OrderItem)
	for _, o := range delivered {
		if !o.PurchaseDate.After(cutoffDate) {
			byCustomer[o.CustomerUniqueID] = append(byCustomer[o.CustomerUniqueID], o)
		}
	}
	if len(byCustomer) == 0 {
		return nil, &models.EmptyDatasetError{Reason: "no orders on or before the cutoff date"}
	}

	customerIDs := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		customerIDs = append(customerIDs, id)
	}
	sort.Strings(customerIDs)

	payments := make([]string, len(customerIDs))
	rows := make([][]float64, len(customerIDs))
	paymentSet := make(map[string]struct{})
	for i, id := range customerIDs {
		values, preferred := aggregate(byCustomer[id], cutoffDate)
		rows[i] = values
		payments[i] = preferred
		paymentSet[preferred] = struct{}{}
	}

	paymentTypes := make([]string, 0, len(paymentSet))
	for p := range paymentSet {
		paymentTypes = append(paymentTypes, p)
	}
	sort.Strings(paymentTypes)

	columns := make([]string, 0, len(baseColumns)+len(paymentTypes))
	columns = append(columns, baseColumns...)
	for _, p := range paymentTypes {
		columns = append(columns, models.PaymentColumnPrefix+p)
	}

	fs := &models.FeatureSet{
		Columns:       columns,
		Customers:     make([]models.CustomerRow, len(customerIDs)),
		ReferenceDate: referenceDate,
		CutoffDate:    cutoffDate,
	}
	for i, id := range customerIDs {
		values := make([]float64, len(columns))
		copy(values, rows[i])
		for j, p := range paymentTypes {
			if payments[i] == p {
				values[len(baseColumns)+j] = 1
			}
		}
		sanitize(values)

		churn := 0
		if daysBetween(lastPurchase[id], referenceDate) > ChurnWindowDays {
			churn = 1
		}
		fs.Customers[i] = models.CustomerRow{CustomerID: id, Values: values, Churn: churn}
	}
	fs.Reindex()
	return fs, nil
}

// aggregate computes the base feature values for one customer's pre-cutoff
// items, in baseColumns order, plus the preferred payment type.
func aggregate(items []models.OrderItem, cutoff time.Time) ([]float64, string) {
	orderIDs := make(map[string]struct{})
	var totalSpent float64
	var itemTotals, reviews, deliveryDays, delays []float64
	paymentCounts := make(map[string]int)
	purchases := make([]float64, 0, len(items))
	delaysByOrder := make(map[string][]float64)

	first, last := items[0].PurchaseDate, items[0].PurchaseDate
	for _, o := range items {
		orderIDs[o.OrderID] = struct{}{}
		total := o.ItemTotal()
		totalSpent += total
		itemTotals = append(itemTotals, total)
		if o.ReviewScore > 0 {
			reviews = append(reviews, float64(o.ReviewScore))
		}
		if !o.DeliveredDate.IsZero() {
			deliveryDays = append(deliveryDays, float64(daysBetween(o.PurchaseDate, o.DeliveredDate)))
			if !o.EstimatedDelivery.IsZero() {
				d := float64(daysBetween(o.EstimatedDelivery, o.DeliveredDate))
				delays = append(delays, d)
				delaysByOrder[o.OrderID] = append(delaysByOrder[o.OrderID], d)
			}
		}
		paymentCounts[o.PaymentType]++
		purchases = append(purchases, float64(o.PurchaseDate.Unix()))
		if o.PurchaseDate.Before(first) {
			first = o.PurchaseDate
		}
		if o.PurchaseDate.After(last) {
			last = o.PurchaseDate
		}
	}

	// Inter-purchase gaps over item purchase timestamps in chronological
	// order; repeated timestamps within one order contribute zero gaps,
	// matching the row-level shift the aggregates are defined against.
	sort.Float64s(purchases)
	gaps := make([]float64, 0, len(purchases))
	for i := 1; i < len(purchases); i++ {
		gaps = append(gaps, math.Floor((purchases[i]-purchases[i-1])/86400))
	}
	var avgGap, stdGap float64
	if len(gaps) > 0 {
		avgGap = stat.Mean(gaps, nil)
	}
	if len(gaps) > 1 {
		stdGap = stat.StdDev(gaps, nil)
	}

	// Fraction of orders delivered late: an order is late when its mean
	// delay is positive. Orders without delivery estimates count as on time.
	late := 0
	for _, ds := range delaysByOrder {
		if len(ds) > 0 && stat.Mean(ds, nil) > 0 {
			late++
		}
	}
	pctLate := float64(late) / float64(len(orderIDs))

	rolling := make([]float64, len(rollingWindows))
	for w, days := range rollingWindows {
		start := cutoff.AddDate(0, 0, -days)
		recent := make(map[string]struct{})
		for _, o := range items {
			if !o.PurchaseDate.Before(start) {
				recent[o.OrderID] = struct{}{}
			}
		}
		rolling[w] = float64(len(recent))
	}

	preferred := preferredPayment(paymentCounts)

	values := []float64{
		float64(len(orderIDs)),
		totalSpent,
		meanOrZero(itemTotals),
		meanOrZero(reviews),
		meanOrZero(deliveryDays),
		meanOrZero(delays),
		float64(len(items)),
		float64(daysBetween(last, cutoff)),
		float64(daysBetween(first, cutoff) + 1),
		avgGap,
		stdGap,
		rolling[0],
		rolling[1],
		rolling[2],
		pctLate,
	}
	return values, preferred
}

// preferredPayment returns the most frequent payment type, breaking ties by
// first in sorted order so runs are deterministic.
func preferredPayment(counts map[string]int) string {
	if len(counts) == 0 {
		return "unknown"
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	best := types[0]
	for _, t := range types[1:] {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// sanitize replaces NaN and infinite values with zero, in place.
func sanitize(values []float64) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[i] = 0
		}
	}
}

// daysBetween returns whole days from a to b, floored toward negative
// infinity: a delivery a few hours ahead of its estimate is one day early,
// not zero days late.
func daysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}
