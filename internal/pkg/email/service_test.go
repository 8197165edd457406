package email

import (
	"testing"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/catalog"
	"github.com/fixstar/storefront-backend/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDispatcher() *Dispatcher {
	cfg := &config.Config{}
	cfg.Store.Name = "Fixstar"
	cfg.Store.Currency = "UAH"
	return NewDispatcher(nil, cfg, nil)
}

func testOrder() *order.Order {
	return &order.Order{
		OrderNumber:      "3.150826",
		FirstName:        "Olena",
		LastName:         "Kovalenko",
		PhoneNumber:      "+380501234567",
		RequiresDelivery: true,
		DeliveryAddress:  "12 Soborna St, Dnipro",
		PaymentMethod:    order.PaymentMethodCard,
		Status:           order.StatusCreated,
		Items: []order.OrderItem{
			{
				ProductID: 42,
				Price:     decimal.RequireFromString("25.00"),
				Quantity:  5,
				Product: catalog.Product{
					Name: "Hex bolt M8",
					Code: "DIN933-M8",
				},
			},
		},
	}
}

func TestRenderOrderEmailListsProducts(t *testing.T) {
	d := testDispatcher()

	body, err := d.renderOrderEmail(testOrder(), nil, true)
	require.NoError(t, err)

	// Every line renders its product name and code, never blank cells
	assert.Contains(t, body, "Hex bolt M8")
	assert.Contains(t, body, "DIN933-M8")
	assert.NotContains(t, body, "<td></td>")
	assert.Contains(t, body, "25.00")
	assert.Contains(t, body, "125.00")
	assert.Contains(t, body, "Olena Kovalenko")
	assert.Contains(t, body, "12 Soborna St, Dnipro")
	assert.Contains(t, body, "UAH")
}

func TestRenderOrderEmailCustomerVariant(t *testing.T) {
	d := testDispatcher()

	body, err := d.renderOrderEmail(testOrder(), nil, false)
	require.NoError(t, err)

	assert.Contains(t, body, "Thank you for your order!")
	assert.Contains(t, body, "Hex bolt M8")
	// Contact details stay on the admin variant only
	assert.NotContains(t, body, "+380501234567")
}

func TestRenderStatusEmail(t *testing.T) {
	d := testDispatcher()

	o := testOrder()
	o.Status = order.StatusCanceled

	body, err := d.renderStatusEmail(o, &order.EmailNotificationSettings{Signature: "Fixstar team"})
	require.NoError(t, err)
	assert.Contains(t, body, "canceled")
	assert.Contains(t, body, "returned to stock")
	assert.Contains(t, body, "Fixstar team")
}
