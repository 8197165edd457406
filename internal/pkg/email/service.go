// internal/pkg/email/service.go
package email

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/order"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dispatcher sends order notifications over SMTP. Delivery parameters come
// from the active notification settings row in the database, falling back
// to the environment configuration when none exists. All sends are
// best-effort: failures are logged, never returned to the caller, so a
// broken mail server can't break order placement.
type Dispatcher struct {
	db     *gorm.DB
	config *config.Config
	log    *logrus.Logger
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.New()
	}
	return &Dispatcher{
		db:     db,
		config: cfg,
		log:    log,
	}
}

// OrderCreated sends the new-order notification to one recipient. Admin
// recipients get the internal summary with contact details; customers get
// the confirmation variant.
func (d *Dispatcher) OrderCreated(ctx context.Context, o *order.Order, recipient string, admin bool) {
	settings, err := order.ActiveSettings(d.db)
	if err != nil {
		d.log.WithError(err).Warn("failed to load email settings")
	}

	subject := fmt.Sprintf("New order #%s", o.OrderNumber)
	if settings != nil {
		subject = settings.RenderSubject(o.OrderNumber)
	}
	if !admin {
		subject = fmt.Sprintf("Your order #%s at %s", o.OrderNumber, d.config.Store.Name)
	}

	body, err := d.renderOrderEmail(o, settings, admin)
	if err != nil {
		d.log.WithError(err).WithField("order_number", o.OrderNumber).
			Error("failed to render order email")
		return
	}

	d.deliver(ctx, settings, &Message{
		To:          []string{recipient},
		Subject:     subject,
		HTMLContent: body,
		Type:        "order_created",
	}, o.OrderNumber)
}

// OrderStatusChanged notifies the order's owner about a status transition
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, o *order.Order, recipient string) {
	settings, err := order.ActiveSettings(d.db)
	if err != nil {
		d.log.WithError(err).Warn("failed to load email settings")
	}

	body, err := d.renderStatusEmail(o, settings)
	if err != nil {
		d.log.WithError(err).WithField("order_number", o.OrderNumber).
			Error("failed to render status email")
		return
	}

	d.deliver(ctx, settings, &Message{
		To:          []string{recipient},
		Subject:     fmt.Sprintf("Order #%s: %s", o.OrderNumber, statusLabel(o.Status)),
		HTMLContent: body,
		Type:        "order_status_changed",
	}, o.OrderNumber)
}

// deliver resolves the SMTP configuration and sends, logging the outcome
func (d *Dispatcher) deliver(ctx context.Context, settings *order.EmailNotificationSettings, msg *Message, orderNumber string) {
	smtpCfg := d.resolveSMTP(settings)

	entry := d.log.WithFields(logrus.Fields{
		"order_number": orderNumber,
		"type":         msg.Type,
		"to":           strings.Join(msg.To, ", "),
	})

	if err := d.sendSMTPEmail(ctx, smtpCfg, msg); err != nil {
		entry.WithError(err).Error("failed to send notification email")
		return
	}
	entry.Info("notification email sent")
}

// resolveSMTP prefers the database settings row, falling back to the
// environment configuration field by field
func (d *Dispatcher) resolveSMTP(settings *order.EmailNotificationSettings) *smtpConfig {
	cfg := &smtpConfig{
		Host:        d.config.Email.SMTPHost,
		Port:        d.config.Email.SMTPPort,
		Username:    d.config.Email.SMTPUser,
		Password:    d.config.Email.SMTPPass,
		UseTLS:      d.config.Email.UseTLS,
		SenderEmail: d.config.Email.SenderEmail,
		SenderName:  d.config.Email.SenderName,
	}
	if settings == nil {
		return cfg
	}

	if settings.SMTPServer != "" {
		cfg.Host = settings.SMTPServer
		cfg.UseTLS = settings.UseTLS
	}
	if settings.SMTPPort != 0 {
		cfg.Port = settings.SMTPPort
	}
	if settings.SMTPUsername != "" {
		cfg.Username = settings.SMTPUsername
		cfg.Password = settings.SMTPPassword
	}
	if settings.SenderEmail != "" {
		cfg.SenderEmail = settings.SenderEmail
	}
	return cfg
}

var orderEmailTmpl = template.Must(template.New("order").Parse(`<html>
<body>
<h2>{{if .Admin}}New order #{{.Order.OrderNumber}}{{else}}Thank you for your order!{{end}}</h2>
{{if .Admin}}
<p><strong>Customer:</strong> {{.Order.CustomerName}}<br>
<strong>Phone:</strong> {{.Order.PhoneNumber}}<br>
<strong>Payment:</strong> {{.Order.PaymentMethod}}<br>
{{if .Order.RequiresDelivery}}<strong>Delivery address:</strong> {{.Order.DeliveryAddress}}{{else}}<strong>Pickup</strong>{{end}}</p>
{{else}}
<p>Your order <strong>#{{.Order.OrderNumber}}</strong> has been received and is being processed.</p>
{{end}}
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Product</th><th>Code</th><th>Price</th><th>Qty</th><th>Cost</th></tr>
{{range .Order.Items}}
<tr><td>{{.Product.Name}}</td><td>{{.Product.Code}}</td><td>{{.Price.StringFixed 2}}</td><td>{{.Quantity}}</td><td>{{.Cost.StringFixed 2}}</td></tr>
{{end}}
</table>
<p><strong>Total: {{.Total}} {{.Currency}}</strong></p>
{{if .Signature}}<p>{{.Signature}}</p>{{end}}
</body>
</html>`))

var statusEmailTmpl = template.Must(template.New("status").Parse(`<html>
<body>
<h2>Order #{{.Order.OrderNumber}}</h2>
<p>Your order status is now: <strong>{{.StatusLabel}}</strong>.</p>
{{if .Canceled}}<p>Any reserved items have been returned to stock. Contact us if this was a mistake.</p>{{end}}
{{if .Signature}}<p>{{.Signature}}</p>{{end}}
</body>
</html>`))

type orderEmailData struct {
	Order     *order.Order
	Admin     bool
	Total     string
	Currency  string
	Signature string
}

type statusEmailData struct {
	Order       *order.Order
	StatusLabel string
	Canceled    bool
	Signature   string
}

func (d *Dispatcher) renderOrderEmail(o *order.Order, settings *order.EmailNotificationSettings, admin bool) (string, error) {
	data := orderEmailData{
		Order:    o,
		Admin:    admin,
		Total:    o.TotalCost().Round(2).StringFixed(2),
		Currency: d.config.Store.Currency,
	}
	if settings != nil {
		data.Signature = settings.Signature
	}

	var sb strings.Builder
	if err := orderEmailTmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (d *Dispatcher) renderStatusEmail(o *order.Order, settings *order.EmailNotificationSettings) (string, error) {
	data := statusEmailData{
		Order:       o,
		StatusLabel: statusLabel(o.Status),
		Canceled:    o.Status == order.StatusCanceled,
	}
	if settings != nil {
		data.Signature = settings.Signature
	}

	var sb strings.Builder
	if err := statusEmailTmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func statusLabel(s order.Status) string {
	switch s {
	case order.StatusCreated:
		return "created"
	case order.StatusPaid:
		return "paid"
	case order.StatusOnWay:
		return "on the way"
	case order.StatusDelivered:
		return "delivered"
	case order.StatusCanceled:
		return "canceled"
	}
	return string(s)
}
