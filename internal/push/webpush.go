package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/nudgelab/reminder-engine/internal/domain"
)

const (
	defaultPushTTL     = 24 * 60 * 60 // seconds
	maxErrorBodyLength = 512
)

// WebPushSink delivers payloads over the Web Push protocol with VAPID
// authentication.
type WebPushSink struct {
	subscriber      string
	vapidPublicKey  string
	vapidPrivateKey string
	ttl             int
	httpClient      webpush.HTTPClient
}

func NewWebPushSink(subscriber, vapidPublicKey, vapidPrivateKey string) (*WebPushSink, error) {
	return NewWebPushSinkWithClient(subscriber, vapidPublicKey, vapidPrivateKey, &http.Client{Timeout: 10 * time.Second})
}

func NewWebPushSinkWithClient(subscriber, vapidPublicKey, vapidPrivateKey string, client webpush.HTTPClient) (*WebPushSink, error) {
	if strings.TrimSpace(subscriber) == "" {
		return nil, fmt.Errorf("vapid subscriber is required")
	}
	if strings.TrimSpace(vapidPublicKey) == "" || strings.TrimSpace(vapidPrivateKey) == "" {
		return nil, fmt.Errorf("vapid key pair is required")
	}
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}

	return &WebPushSink{
		subscriber:      strings.TrimSpace(subscriber),
		vapidPublicKey:  strings.TrimSpace(vapidPublicKey),
		vapidPrivateKey: strings.TrimSpace(vapidPrivateKey),
		ttl:             defaultPushTTL,
		httpClient:      client,
	}, nil
}

func (s *WebPushSink) Send(ctx context.Context, sub domain.Subscription, payload Payload) error {
	if s == nil || s.httpClient == nil {
		return fmt.Errorf("push sink is not initialized")
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, target, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
		TTL:             s.ttl,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return &SinkError{
			Message:   "push request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	statusCode := resp.StatusCode
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	responseBody := readLimitedBody(resp.Body)
	return &SinkError{
		StatusCode: statusCode,
		Message:    sinkErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
		Gone:       statusCode == http.StatusNotFound || statusCode == http.StatusGone,
	}
}

func readLimitedBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyLength))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func sinkErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("push service returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
