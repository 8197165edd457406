// internal/domain/order/notification_settings.go
package order

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// EmailNotificationSettings holds a named SMTP configuration plus the admin
// recipient list for order notifications. Multiple rows may be active at
// once; every active row's recipients get admin notifications. The first
// active row doubles as "the" default SMTP configuration when a message
// must be sent without an explicit settings choice.
type EmailNotificationSettings struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null;size:100;default:'Default'" json:"name"`
	IsActive bool   `gorm:"default:true;index" json:"is_active"`

	// Recipients holds newline-delimited email addresses
	Recipients string `gorm:"type:text" json:"recipients"`

	// SMTP server settings
	SMTPServer   string `gorm:"size:100;default:'smtp.gmail.com'" json:"smtp_server"`
	SMTPPort     int    `gorm:"default:587" json:"smtp_port"`
	UseTLS       bool   `gorm:"default:true" json:"use_tls"`
	SenderEmail  string `gorm:"size:255;default:'noreply@example.com'" json:"sender_email"`
	SMTPUsername string `gorm:"size:100" json:"smtp_username"`
	SMTPPassword string `gorm:"size:100" json:"-"`

	// Message content settings. SubjectTemplate supports the
	// {order_number} placeholder.
	SubjectTemplate string `gorm:"size:200;default:'New order #{order_number}'" json:"subject_template"`
	Signature       string `gorm:"type:text" json:"signature"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (EmailNotificationSettings) TableName() string {
	return "email_notification_settings"
}

// RecipientList splits the newline-delimited recipients field into
// trimmed, non-empty addresses
func (s *EmailNotificationSettings) RecipientList() []string {
	if s.Recipients == "" {
		return nil
	}

	var emails []string
	for _, line := range strings.Split(s.Recipients, "\n") {
		if addr := strings.TrimSpace(line); addr != "" {
			emails = append(emails, addr)
		}
	}
	return emails
}

// RenderSubject fills the subject template for an order
func (s *EmailNotificationSettings) RenderSubject(orderNumber string) string {
	if s.SubjectTemplate == "" {
		return "New order #" + orderNumber
	}
	return strings.ReplaceAll(s.SubjectTemplate, "{order_number}", orderNumber)
}

// ActiveSettings returns the first active settings row, or nil when none
// is configured
func ActiveSettings(db *gorm.DB) (*EmailNotificationSettings, error) {
	var settings EmailNotificationSettings
	err := db.Where("is_active = ?", true).Order("id ASC").First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &settings, nil
}

// ActiveRecipients collects recipient addresses across all active settings
// rows
func ActiveRecipients(db *gorm.DB) ([]string, error) {
	var all []EmailNotificationSettings
	if err := db.Where("is_active = ?", true).Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}

	var emails []string
	for i := range all {
		emails = append(emails, all[i].RecipientList()...)
	}
	return emails, nil
}
