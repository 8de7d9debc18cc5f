package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/restockwatch/internal/logfields"
	"git.home.luguber.info/inful/restockwatch/internal/retry"
)

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	client         *http.Client
	apiURL         string
	token          string
	chatID         string
	disablePreview bool
	policy         retry.Policy
	wait           func(context.Context, time.Duration) error
}

// NewTelegram creates a Bot API client from configuration.
func NewTelegram(cfg config.TelegramConfig) *Telegram {
	return &Telegram{
		client:         &http.Client{Timeout: cfg.Timeout},
		apiURL:         strings.TrimRight(cfg.APIURL, "/"),
		token:          cfg.BotToken,
		chatID:         cfg.ChatID,
		disablePreview: cfg.DisablePreview,
		policy:         retry.FromConfig(cfg.Retry),
		wait:           retry.Wait,
	}
}

// WithClient swaps the underlying HTTP client.
func (t *Telegram) WithClient(c *http.Client) *Telegram {
	t.client = c
	return t
}

type botResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters"`
}

// Send posts text to the configured chat. A non-2xx status or an
// "ok": false reply is an error. Transport failures, 429 and 5xx replies
// are retried according to the configured policy; a 429 honours the
// server's retry_after up to the policy cap.
func (t *Telegram) Send(ctx context.Context, text string) error {
	for attempt := 0; ; attempt++ {
		retryAfter, err := t.send(ctx, text)
		if err == nil || attempt >= t.policy.MaxRetries || !retryable(err) || ctx.Err() != nil {
			return err
		}
		delay := t.policy.Delay(attempt + 1)
		if retryAfter > 0 {
			delay = t.policy.Clamp(retryAfter)
		}
		slog.WarnContext(ctx, "Telegram send failed, retrying",
			slog.Int("attempt", attempt+1), logfields.DurationMS(float64(delay.Milliseconds())), logfields.Error(err))
		if werr := t.wait(ctx, delay); werr != nil {
			return err
		}
	}
}

func retryable(err error) bool {
	ce, ok := errors.AsClassified(err)
	return ok && ce.IsTransient()
}

func (t *Telegram) send(ctx context.Context, text string) (time.Duration, error) {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", strconv.FormatBool(t.disablePreview))

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryNotify, "build telegram request").Fatal().Build()
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL error embeds the token; strip it before surfacing.
		return 0, errors.NotifyError("telegram request failed").NextRun().
			WithContext("error", redact(err.Error(), t.token)).Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed botResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !parsed.OK {
		msg := fmt.Sprintf("telegram send failed: status %d", resp.StatusCode)
		if parsed.Description != "" {
			msg += ": " + parsed.Description
		}
		b := errors.NotifyError(msg).WithContext("status", resp.StatusCode)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			b = b.RateLimit()
		case resp.StatusCode >= 500:
			b = b.NextRun()
		}
		return time.Duration(parsed.Parameters.RetryAfter) * time.Second, b.Build()
	}
	return 0, nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<redacted>")
}
