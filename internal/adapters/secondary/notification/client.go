package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// TokenSource mints service tokens for outbound calls.
type TokenSource interface {
	ServiceToken() (string, error)
}

// Client is the secondary adapter talking to the notification service.
// It implements the ports.Notifier interface.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

var _ ports.Notifier = (*Client)(nil)

// NewClient creates a new notification service client.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger.With("component", "notification_client"),
	}
}

type notifyRequest struct {
	Tenant       string            `json:"tenant"`
	TicketID     string            `json:"ticketId"`
	TemplateCode string            `json:"templateCode"`
	Recipients   []string          `json:"recipients"`
	Payload      map[string]string `json:"payload,omitempty"`
}

// Notify asks the notification service to render and deliver an escalation
// notice to the given recipients.
func (c *Client) Notify(ctx context.Context, params ports.NotificationParams) error {
	if len(params.Recipients) == 0 {
		return nil
	}

	body, err := json.Marshal(notifyRequest{
		Tenant:       params.Tenant,
		TicketID:     params.TicketID,
		TemplateCode: params.TemplateCode,
		Recipients:   params.Recipients,
		Payload:      params.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/notifications"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.ServiceToken()
	if err != nil {
		return fmt.Errorf("mint service token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError(err, "notification-service")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return apperrors.NewUpstreamError(fmt.Errorf("unexpected status %d", resp.StatusCode), "notification-service")
	}

	c.logger.Info("notification dispatched",
		"template", params.TemplateCode,
		"ticket_id", params.TicketID,
		"recipients", len(params.Recipients),
	)
	return nil
}

// GroupClient resolves GROUP recipients through the directory service.
// It implements the ports.GroupDirectory interface.
type GroupClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

var _ ports.GroupDirectory = (*GroupClient)(nil)

// NewGroupClient creates a new group directory client.
func NewGroupClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *GroupClient {
	return &GroupClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger.With("component", "group_client"),
	}
}

// ResolveGroup expands a group id into its member addresses.
func (c *GroupClient) ResolveGroup(ctx context.Context, tenant, groupID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/groups/%s/members?tenant=%s",
		c.baseURL, url.PathEscape(groupID), url.QueryEscape(tenant))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	token, err := c.tokens.ServiceToken()
	if err != nil {
		return nil, fmt.Errorf("mint service token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError(err, "group-service")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, apperrors.NewUpstreamError(fmt.Errorf("unexpected status %d", resp.StatusCode), "group-service")
	}

	var envelope struct {
		Data struct {
			Members []string `json:"members"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.NewUpstreamError(fmt.Errorf("decode response: %w", err), "group-service")
	}
	return envelope.Data.Members, nil
}
