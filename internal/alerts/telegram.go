package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"options-calendar-bot/internal/config"
	"options-calendar-bot/internal/strategy"

	"go.uber.org/zap"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	// Bot API limit for sendMessage text.
	maxMessageRunes = 4096
	sendTimeout     = 10 * time.Second
)

var ErrTelegramNotConfigured = errors.New("telegram token and chat_id are required")

// Telegram sends adjustment alerts for the active calendar spread to one chat.
type Telegram struct {
	enabled bool
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegram(cfg config.TelegramConfig, log *zap.Logger) *Telegram {
	return newTelegram(cfg, log, telegramBaseURL, nil)
}

func newTelegram(cfg config.TelegramConfig, log *zap.Logger, baseURL string, client *http.Client) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{
		enabled: cfg.Enabled,
		token:   strings.TrimSpace(cfg.Token),
		chatID:  strings.TrimSpace(cfg.ChatID),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     log,
	}
}

func (t *Telegram) Enabled() bool {
	return t != nil && t.enabled
}

// NotifyAdjustments alerts on the adjustments of one monitoring pass. Calm
// reports send nothing.
func (t *Telegram) NotifyAdjustments(ctx context.Context, cfg strategy.Config, report strategy.Report) error {
	msg := FormatAdjustments(cfg, report)
	if msg == "" {
		return nil
	}
	if err := t.Send(ctx, msg); err != nil {
		return err
	}
	if t.Enabled() {
		t.log.Info("adjustment alert sent",
			zap.String("weekly_expiry", cfg.WeeklyExpiry),
			zap.Int("adjustments", len(report.Adjustments)),
		)
	}
	return nil
}

// FormatAdjustments renders the adjustments of a report as a chat message.
// It returns "" when there is nothing to report.
func FormatAdjustments(cfg strategy.Config, report strategy.Report) string {
	if len(report.Adjustments) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Calendar spread %s/%s: %d adjustment(s)\n", cfg.WeeklyExpiry, cfg.MonthlyExpiry, len(report.Adjustments))
	for _, adj := range report.Adjustments {
		fmt.Fprintf(&b, "- %s %s: %s -> %s\n", adj.Type, adj.Position, adj.Reason, adj.Action)
	}
	if report.UsedFallback {
		b.WriteString("(mock data fell back to the default scenario)\n")
	}
	fmt.Fprintf(&b, "at %s", report.Timestamp.UTC().Format(time.RFC3339))
	return truncate(b.String(), maxMessageRunes)
}

// Send posts text to the configured chat. A disabled notifier is a no-op.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}
	if t.token == "" || t.chatID == "" {
		return ErrTelegramNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("telegram message is empty")
	}
	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram send failed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var result botResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.OK {
		return nil
	}
	desc := strings.TrimSpace(result.Description)
	if desc == "" {
		desc = "unknown telegram error"
	}
	return fmt.Errorf("telegram send failed: %s", desc)
}

func (t *Telegram) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
