package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/example/mealbox/internal/config"
	"github.com/example/mealbox/internal/models"
)

// Notifier delivers customer-facing emails.
type Notifier interface {
	// SendCode delivers a one-time code. An error means the code did not reach the customer.
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
	// SendOrderConfirmation is best-effort; callers log failures and carry on.
	SendOrderConfirmation(ctx context.Context, email string, order *models.Order) error
}

// NewNotifier selects the SMTP notifier in production and the mock everywhere else.
func NewNotifier(cfg *config.Config, logger *zerolog.Logger) Notifier {
	if cfg.IsProduction() {
		return NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	log := logger.With().Str("component", "mock_notifier").Logger()
	return NewMockNotifier(&log)
}

// SMTPNotifier sends email through an SMTP relay.
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPNotifier creates an SMTPNotifier.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (n *SMTPNotifier) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	body := fmt.Sprintf("Your Mealbox sign-in code is %s.\nIt expires in %d minutes. If you did not request it, ignore this email.", code, minutes)
	return n.send(ctx, email, "Your Mealbox sign-in code", body)
}

func (n *SMTPNotifier) SendOrderConfirmation(ctx context.Context, email string, order *models.Order) error {
	body := fmt.Sprintf("Thanks for your order %s.\n%d x %s\nTotal: %s\nStatus: %s",
		order.OrderNumber,
		order.Quantity,
		order.ItemName,
		FormatPrice(order.TotalAmount, order.Currency),
		order.Status,
	)
	return n.send(ctx, email, "Mealbox order "+order.OrderNumber, body)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return n.dialer.DialAndSend(msg)
}

// MockNotifier logs messages instead of sending them and remembers the last code per
// email. Setting Fail makes every SendCode call fail.
type MockNotifier struct {
	mu     sync.Mutex
	codes  map[string]string
	orders map[string][]string
	logger *zerolog.Logger

	Fail      bool
	FailOrder bool
}

// NewMockNotifier creates a MockNotifier.
func NewMockNotifier(logger *zerolog.Logger) *MockNotifier {
	return &MockNotifier{
		codes:  make(map[string]string),
		orders: make(map[string][]string),
		logger: logger,
	}
}

func (n *MockNotifier) SendCode(_ context.Context, email, code string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Fail {
		return fmt.Errorf("mock delivery to %s failed", email)
	}

	n.codes[email] = code
	n.logger.Info().
		Str("email", email).
		Str("code", code).
		Time("expires_at", expiresAt).
		Msg("one-time code issued")
	return nil
}

func (n *MockNotifier) SendOrderConfirmation(_ context.Context, email string, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.FailOrder {
		return fmt.Errorf("mock order confirmation to %s failed", email)
	}

	n.orders[email] = append(n.orders[email], order.OrderNumber)
	n.logger.Info().
		Str("email", email).
		Str("order_number", order.OrderNumber).
		Msg("order confirmation sent")
	return nil
}

// LastCode returns the most recent code sent to email.
func (n *MockNotifier) LastCode(email string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	code, ok := n.codes[email]
	return code, ok
}

// Confirmations returns the order numbers confirmed to email.
func (n *MockNotifier) Confirmations(email string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.orders[email]...)
}
