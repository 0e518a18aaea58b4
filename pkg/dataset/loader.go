// Package dataset loads the raw order ledger from the data-loading
// collaborator. The core only depends on the column contract; where the
// table physically comes from is not its concern.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/retailpulse/churnrisk/pkg/models"
)

// Required ledger columns. Optional columns (seller_id, product_id,
// payment_value, review_score) are picked up when present.
var requiredColumns = []string{
	"order_id",
	"customer_unique_id",
	"order_status",
	"purchase_date",
	"price",
	"freight_value",
	"payment_type",
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// LoadOrders reads the order ledger CSV at path.
func LoadOrders(path string) ([]models.OrderItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders file: %w", err)
	}
	defer f.Close()

	orders, err := ReadOrders(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return orders, nil
}

// ReadOrders parses order line items from CSV data with a header row.
func ReadOrders(r io.Reader) ([]models.OrderItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column: %s", name)
		}
	}

	var orders []models.OrderItem
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record at line %d: %w", line+1, err)
		}
		line++

		item, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("bad record at line %d: %w", line, err)
		}
		orders = append(orders, item)
	}
	return orders, nil
}

func parseRecord(record []string, cols map[string]int) (models.OrderItem, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	purchase, err := parseTime(get("purchase_date"))
	if err != nil {
		return models.OrderItem{}, fmt.Errorf("invalid purchase_date: %w", err)
	}
	if purchase.IsZero() {
		return models.OrderItem{}, fmt.Errorf("purchase_date is required")
	}
	price, err := parseFloat(get("price"))
	if err != nil {
		return models.OrderItem{}, fmt.Errorf("invalid price: %w", err)
	}
	freight, err := parseFloat(get("freight_value"))
	if err != nil {
		return models.OrderItem{}, fmt.Errorf("invalid freight_value: %w", err)
	}

	// Optional fields: tolerate absence or blanks.
	delivered, _ := parseTime(get("order_delivered_customer_date"))
	estimated, _ := parseTime(get("order_estimated_delivery_date"))
	payment, _ := parseFloat(get("payment_value"))
	itemID, _ := strconv.Atoi(get("order_item_id"))
	review, _ := strconv.Atoi(get("review_score"))

	return models.OrderItem{
		OrderID:           get("order_id"),
		CustomerUniqueID:  get("customer_unique_id"),
		SellerID:          get("seller_id"),
		ProductID:         get("product_id"),
		OrderItemID:       itemID,
		Status:            models.OrderStatus(strings.ToLower(get("order_status"))),
		PurchaseDate:      purchase,
		DeliveredDate:     delivered,
		EstimatedDelivery: estimated,
		Price:             price,
		FreightValue:      freight,
		PaymentValue:      payment,
		PaymentType:       strings.ToLower(get("payment_type")),
		ReviewScore:       review,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
