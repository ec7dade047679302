package services

import (
	"bytes"
	"fmt"
	"log"
	"net/smtp"
	"sync"
	"text/template"

	"github.com/designden/designden-api/config"
	"github.com/jordan-wright/email"
)

// MailSender delivers outbound mail. Failures are treated as non-fatal
// by callers: the primary state change is never rolled back because an
// email did not go out.
type MailSender interface {
	Send(to, subject, htmlBody string) error
}

var mailSenderInstance MailSender

// InitMailSender initializes the SMTP mail sender. When SMTP_HOST is not
// configured the sender stays nil and mail sending becomes a logged
// no-op.
func InitMailSender(cfg *config.Config) MailSender {
	if cfg.SMTPHost == "" {
		log.Println("SMTP_HOST not set, outbound mail disabled")
		mailSenderInstance = nil
		return nil
	}

	mailSenderInstance = &SMTPMailSender{
		from: cfg.MailFrom,
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth: smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost),
	}
	return mailSenderInstance
}

// GetMailSender returns the initialized mail sender instance (may be nil)
func GetMailSender() MailSender {
	return mailSenderInstance
}

// SetMailSender sets the mail sender instance (primarily for testing)
func SetMailSender(sender MailSender) {
	mailSenderInstance = sender
}

// SMTPMailSender sends mail over SMTP
type SMTPMailSender struct {
	from string
	addr string
	auth smtp.Auth
}

// Send delivers one HTML email
func (s *SMTPMailSender) Send(to, subject, htmlBody string) error {
	e := email.NewEmail()
	e.From = s.from
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(htmlBody)
	return e.Send(s.addr, s.auth)
}

// DeliveryOTPData fills the delivery OTP email template
type DeliveryOTPData struct {
	CustomerName string
	OrderNumber  string
	Code         string
}

// VerificationCodeData fills the login verification email template
type VerificationCodeData struct {
	UserName      string
	Code          string
	ExpiryMinutes int
}

// SendDeliveryOTP emails the customer the code the delivery person must
// collect at handoff. Best-effort: errors are logged by the caller.
func SendDeliveryOTP(to string, data DeliveryOTPData) error {
	sender := GetMailSender()
	if sender == nil {
		return nil
	}
	body, err := renderTemplate(deliveryOTPTemplate, data)
	if err != nil {
		return err
	}
	return sender.Send(to, fmt.Sprintf("Your DesignDen delivery code for order %s", data.OrderNumber), body)
}

// SendVerificationCode emails a login verification code
func SendVerificationCode(to string, data VerificationCodeData) error {
	sender := GetMailSender()
	if sender == nil {
		return nil
	}
	body, err := renderTemplate(verificationCodeTemplate, data)
	if err != nil {
		return err
	}
	return sender.Send(to, "Your DesignDen verification code", body)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

const deliveryOTPTemplate = `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Your delivery is on its way</h2>
    <p>Hi {{.CustomerName}},</p>
    <p>Order <strong>{{.OrderNumber}}</strong> will be handed over once you
    share this code with the delivery person:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>Do not share this code before receiving your order.</p>
  </div>
</body>
</html>
`

const verificationCodeTemplate = `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Verification code</h2>
    <p>Hi {{.UserName}},</p>
    <p>Your verification code is:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code expires in {{.ExpiryMinutes}} minutes.</p>
  </div>
</body>
</html>
`

// MockMailSender records sent mail for test assertions
type MockMailSender struct {
	mu   sync.Mutex
	sent []SentMail
}

// SentMail is one recorded delivery
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// NewMockMailSender creates a new mock mail sender
func NewMockMailSender() *MockMailSender {
	return &MockMailSender{}
}

// SetAsMockForTesting sets this mock as the global mail sender instance
func (m *MockMailSender) SetAsMockForTesting() {
	SetMailSender(m)
}

// Send records the mail
func (m *MockMailSender) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// Sent returns a copy of the recorded mail
func (m *MockMailSender) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}
