package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/churnrisk/pkg/models"
)

const ledgerHeader = "order_id,customer_unique_id,order_status,purchase_date,order_delivered_customer_date,order_estimated_delivery_date,price,freight_value,payment_type,payment_value,review_score"

func TestReadOrders(t *testing.T) {
	csv := ledgerHeader + "\n" +
		"o1,cust-a,delivered,2018-01-10 14:30:00,2018-01-18 09:00:00,2018-01-20 00:00:00,129.90,21.15,credit_card,151.05,5\n" +
		"o2,cust-b,canceled,2018-02-01,,,59.00,12.00,boleto,,\n"

	orders, err := ReadOrders(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "o1", first.OrderID)
	assert.Equal(t, "cust-a", first.CustomerUniqueID)
	assert.Equal(t, models.OrderStatusDelivered, first.Status)
	assert.Equal(t, time.Date(2018, 1, 10, 14, 30, 0, 0, time.UTC), first.PurchaseDate)
	assert.Equal(t, time.Date(2018, 1, 18, 9, 0, 0, 0, time.UTC), first.DeliveredDate)
	assert.InDelta(t, 129.90, first.Price, 1e-9)
	assert.InDelta(t, 21.15, first.FreightValue, 1e-9)
	assert.Equal(t, "credit_card", first.PaymentType)
	assert.Equal(t, 5, first.ReviewScore)

	second := orders[1]
	assert.Equal(t, models.OrderStatus("canceled"), second.Status)
	assert.True(t, second.DeliveredDate.IsZero())
	assert.Zero(t, second.ReviewScore)
}

func TestReadOrdersHeaderCaseInsensitive(t *testing.T) {
	csv := "Order_ID,Customer_Unique_ID,Order_Status,Purchase_Date,Price,Freight_Value,Payment_Type\n" +
		"o1,cust-a,delivered,2018-01-10,10.0,2.0,voucher\n"

	orders, err := ReadOrders(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "voucher", orders[0].PaymentType)
}

func TestReadOrdersMissingColumn(t *testing.T) {
	csv := "order_id,customer_unique_id,order_status,price,freight_value,payment_type\n"

	_, err := ReadOrders(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purchase_date")
}

func TestReadOrdersBadTimestamp(t *testing.T) {
	csv := ledgerHeader + "\n" +
		"o1,cust-a,delivered,10/01/2018,,,10.0,2.0,voucher,,\n"

	_, err := ReadOrders(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purchase_date")
}

func TestReadOrdersBadPrice(t *testing.T) {
	csv := ledgerHeader + "\n" +
		"o1,cust-a,delivered,2018-01-10,,,abc,2.0,voucher,,\n"

	_, err := ReadOrders(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestReadOrdersNormalizesStatusAndPayment(t *testing.T) {
	csv := ledgerHeader + "\n" +
		"o1,cust-a,DELIVERED,2018-01-10,,,10.0,2.0,Credit_Card,,\n"

	orders, err := ReadOrders(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusDelivered, orders[0].Status)
	assert.Equal(t, "credit_card", orders[0].PaymentType)
}
