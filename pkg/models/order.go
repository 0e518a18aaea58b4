package models

import "time"

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusDelivered   OrderStatus = "delivered"
	OrderStatusShipped     OrderStatus = "shipped"
	OrderStatusCanceled    OrderStatus = "canceled"
	OrderStatusUnavailable OrderStatus = "unavailable"
	OrderStatusProcessing  OrderStatus = "processing"
)

// OrderItem is one row of the raw order ledger: a single line item of an
// order with its customer, payment, delivery, and review attributes.
// The ledger is supplied by an external loader and treated as read-only.
type OrderItem struct {
	OrderID           string      `json:"order_id"`
	CustomerUniqueID  string      `json:"customer_unique_id"`
	SellerID          string      `json:"seller_id,omitempty"`
	ProductID         string      `json:"product_id,omitempty"`
	OrderItemID       int         `json:"order_item_id"`
	Status            OrderStatus `json:"order_status"`
	PurchaseDate      time.Time   `json:"purchase_date"`
	DeliveredDate     time.Time   `json:"order_delivered_customer_date,omitempty"`
	EstimatedDelivery time.Time   `json:"order_estimated_delivery_date,omitempty"`
	Price             float64     `json:"price"`
	FreightValue      float64     `json:"freight_value"`
	PaymentValue      float64     `json:"payment_value,omitempty"`
	PaymentType       string      `json:"payment_type"`
	ReviewScore       int         `json:"review_score,omitempty"` // 1-5, 0 when absent
}

// Delivered reports whether the item belongs to a delivered order.
func (o *OrderItem) Delivered() bool {
	return o.Status == OrderStatusDelivered
}

// ItemTotal is the monetary value of the line item including freight.
func (o *OrderItem) ItemTotal() float64 {
	return o.Price + o.FreightValue
}
