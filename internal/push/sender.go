// Package push delivers notifications to registered devices through an
// HTTP push gateway.
package push

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Notification types carried in Data["type"].
const (
	TypeRequestReceived = "request_received"
	TypeRequestAccepted = "request_accepted"
	TypeMessage         = "message"
)

// Notification is what the device shows. Data drives the click handler
// (which window to focus or open).
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Result reports per-token outcome of a send.
type Result struct {
	Sent          int      `json:"sent"`
	InvalidTokens []string `json:"invalid_tokens"`
}

// Sender sends one notification to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, n Notification) (Result, error)
}

// NoopSender accepts everything and sends nothing.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, tokens []string, _ Notification) (Result, error) {
	return Result{Sent: len(tokens)}, nil
}

// GatewaySender posts FCM-style JSON to a push gateway.
type GatewaySender struct {
	client *resty.Client
}

type gatewayRequest struct {
	Tokens       []string     `json:"tokens"`
	Notification Notification `json:"notification"`
}

// NewGatewaySender builds a client for baseURL. apiKey, when set, is sent
// as a bearer token.
func NewGatewaySender(baseURL, apiKey string) *GatewaySender {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("User-Agent", "hongdating-push/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &GatewaySender{client: client}
}

func (s *GatewaySender) Send(ctx context.Context, tokens []string, n Notification) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, nil
	}
	var out Result
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(gatewayRequest{Tokens: tokens, Notification: n}).
		SetResult(&out).
		Post("/send")
	if err != nil {
		return Result{}, fmt.Errorf("push gateway: %w", err)
	}
	if resp.IsError() {
		return Result{}, fmt.Errorf("push gateway: status %d", resp.StatusCode())
	}
	return out, nil
}
