// internal/pkg/email/types.go
package email

// Message represents an outgoing email
type Message struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTMLContent string   `json:"html_content"`
	Type        string   `json:"type"`
}

// smtpConfig is the delivery configuration resolved for a single send,
// either from the active notification settings row or from the
// environment fallback.
type smtpConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	UseTLS      bool
	SenderEmail string
	SenderName  string
}
