package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TelegramService posts operator alerts to a Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
	logger      *zerolog.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, logger *zerolog.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     "https://api.telegram.org",
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.logger.Debug().Msg("telegram bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.logger.Debug().Msg("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// OrderNotification contains order data for operator alerts.
type OrderNotification struct {
	OrderNumber  string
	ItemName     string
	Quantity     int
	TotalAmount  float64
	Currency     string
	CustomerName string
	Email        string
	City         string
	Status       string
	Paid         bool
}

// FormatPrice formats price with currency and thousand separators.
func FormatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}

	cents := int64(amount*100 + 0.5)
	str := fmt.Sprintf("%d", cents/100)

	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return fmt.Sprintf("%s.%02d %s", result.String(), cents%100, currency)
}

// NotifyNewOrder sends notification about a new order to the admin chat.
// User-supplied values are escaped for Telegram's HTML parse mode.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	payment := "awaiting payment"
	if order.Paid {
		payment = "paid"
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>Order:</b> %s
<b>Customer:</b> %s (%s)
<b>Plan:</b> %d x %s
<b>City:</b> %s
<b>Total:</b> %s
<b>Payment:</b> %s
<b>Status:</b> %s`,
		html.EscapeString(order.OrderNumber),
		html.EscapeString(order.CustomerName),
		html.EscapeString(order.Email),
		order.Quantity,
		html.EscapeString(order.ItemName),
		html.EscapeString(order.City),
		html.EscapeString(FormatPrice(order.TotalAmount, order.Currency)),
		payment,
		html.EscapeString(order.Status),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// NotifyOrderCancelled tells operators an order will not be fulfilled.
func (s *TelegramService) NotifyOrderCancelled(ctx context.Context, orderNumber string) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendToAdmin(ctx, fmt.Sprintf("<b>❌ ORDER CANCELLED</b>\n<b>Order:</b> %s", html.EscapeString(orderNumber)))
}
