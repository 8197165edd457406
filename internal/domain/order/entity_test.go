package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderTotals(t *testing.T) {
	o := Order{
		Items: []OrderItem{
			{Price: decimal.RequireFromString("12.50"), Quantity: 2},
			{Price: decimal.RequireFromString("0.35"), Quantity: 100},
		},
	}

	assert.Equal(t, "60.00", o.TotalCost().StringFixed(2))
	assert.Equal(t, 102, o.TotalItems())
}

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusCreated, StatusPaid, true},
		{StatusCreated, StatusOnWay, true},
		{StatusCreated, StatusDelivered, true},
		{StatusCreated, StatusCanceled, true},
		{StatusPaid, StatusOnWay, true},
		{StatusPaid, StatusDelivered, true},
		{StatusPaid, StatusCanceled, true},
		{StatusPaid, StatusCreated, false},
		{StatusOnWay, StatusDelivered, true},
		{StatusOnWay, StatusCanceled, true},
		{StatusOnWay, StatusPaid, false},
		{StatusDelivered, StatusCanceled, true},
		{StatusDelivered, StatusPaid, false},
		{StatusCanceled, StatusCreated, false},
		{StatusCanceled, StatusPaid, false},
		{StatusCanceled, StatusDelivered, false},
		// Same-status is not a transition
		{StatusCreated, StatusCreated, false},
		// Unknown target
		{StatusCreated, Status("refunded"), false},
	}

	for _, tc := range cases {
		o := Order{Status: tc.from}
		assert.Equalf(t, tc.allowed, o.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodCard))
	assert.True(t, ValidPaymentMethod(PaymentMethodCash))
	assert.True(t, ValidPaymentMethod(PaymentMethodBank))
	assert.False(t, ValidPaymentMethod("bitcoin"))
	assert.False(t, ValidPaymentMethod(""))
}
