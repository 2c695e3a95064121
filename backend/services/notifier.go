package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers generated text to a user. Delivery is best effort:
// callers log failures and never retry.
type Notifier interface {
	Deliver(ctx context.Context, telegramID int64, text string) error
}

// TelegramNotifier sends messages through the Telegram Bot API.
type TelegramNotifier struct {
	Token   string
	BaseURL string
	Client  *http.Client
}

func NewTelegramNotifier(token string) *TelegramNotifier {
	return &TelegramNotifier{
		Token:   token,
		BaseURL: "https://api.telegram.org",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (tn *TelegramNotifier) Deliver(ctx context.Context, telegramID int64, text string) error {
	body, err := json.Marshal(map[string]interface{}{
		"chat_id": telegramID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", tn.BaseURL, tn.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}
