package models

import (
	"fmt"
	"time"
)

// Canonical feature column names. The one-hot payment indicator columns are
// generated at build time with the PaymentColumnPrefix.
const (
	ColNumOrders       = "num_orders"
	ColTotalSpent      = "total_spent"
	ColAvgOrderValue   = "avg_order_value"
	ColAvgReview       = "avg_review"
	ColAvgDeliveryDays = "avg_delivery_days"
	ColAvgDelay        = "avg_delay"
	ColTotalItems      = "total_items"
	ColRecency         = "recency"
	ColTenureDays      = "tenure_days"
	ColAvgDaysBetween  = "avg_days_between"
	ColStdDaysBetween  = "std_days_between"
	ColOrdersLast30d   = "orders_last_30d"
	ColOrdersLast60d   = "orders_last_60d"
	ColOrdersLast90d   = "orders_last_90d"
	ColPctLate         = "pct_late"

	PaymentColumnPrefix = "pay_"
)

// CustomerRow is one engineered feature row: the values are aligned to the
// owning FeatureSet's Columns, in order. Churn is the training label.
type CustomerRow struct {
	CustomerID string    `json:"customer_unique_id"`
	Values     []float64 `json:"values"`
	Churn      int       `json:"churn"`
}

// FeatureSet is the full featurized customer table produced by the feature
// builder. Columns is the exact ordered feature schema the model is fit
// against; it is persisted with the table and is the single source of column
// identity and order at inference time.
//
// A FeatureSet is rebuilt wholesale on every training run and never mutated
// afterwards.
type FeatureSet struct {
	Columns       []string      `json:"columns"`
	Customers     []CustomerRow `json:"customers"`
	ReferenceDate time.Time     `json:"reference_date"`
	CutoffDate    time.Time     `json:"cutoff_date"`

	index map[string]int
	cols  map[string]int
}

// Reindex rebuilds the internal lookup maps. Must be called after decoding a
// FeatureSet from storage; Build-produced sets come pre-indexed.
func (fs *FeatureSet) Reindex() {
	fs.index = make(map[string]int, len(fs.Customers))
	for i := range fs.Customers {
		fs.index[fs.Customers[i].CustomerID] = i
	}
	fs.cols = make(map[string]int, len(fs.Columns))
	for i, c := range fs.Columns {
		fs.cols[c] = i
	}
}

// Row returns the feature row for a customer id.
func (fs *FeatureSet) Row(customerID string) (*CustomerRow, error) {
	if fs.index == nil {
		fs.Reindex()
	}
	i, ok := fs.index[customerID]
	if !ok {
		return nil, &CustomerNotFoundError{CustomerID: customerID}
	}
	return &fs.Customers[i], nil
}

// Value returns a single named feature value from a row.
func (fs *FeatureSet) Value(row *CustomerRow, column string) (float64, error) {
	if fs.cols == nil {
		fs.Reindex()
	}
	i, ok := fs.cols[column]
	if !ok {
		return 0, fmt.Errorf("unknown feature column: %s", column)
	}
	return row.Values[i], nil
}

// Len returns the number of customer rows.
func (fs *FeatureSet) Len() int {
	return len(fs.Customers)
}
