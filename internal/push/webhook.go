package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nudgelab/reminder-engine/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookRequest struct {
	Endpoint string  `json:"endpoint"`
	Payload  Payload `json:"payload"`
}

// WebhookSink posts payloads to a webhook.site-compatible endpoint
// instead of a real push service. Used in development and tests.
type WebhookSink struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookSink(endpoint string) (*WebhookSink, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookSinkWithClient(endpoint, client)
}

func NewWebhookSinkWithClient(endpoint string, client *resty.Client) (*WebhookSink, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}

	return &WebhookSink{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (s *WebhookSink) Send(ctx context.Context, sub domain.Subscription, payload Payload) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("push sink is not initialized")
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookRequest{
			Endpoint: sub.Endpoint,
			Payload:  payload,
		}).
		Post(s.endpoint)
	if err != nil {
		return &SinkError{
			Message:   "webhook request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &SinkError{
			Message:   "webhook returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &SinkError{
		StatusCode: statusCode,
		Message:    sinkErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
