package ticketing

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

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

const serviceName = "ticket-service"

// TokenSource mints service tokens for outbound calls.
type TokenSource interface {
	ServiceToken() (string, error)
}

// Client is the secondary adapter talking to the ticket-owning service.
// It implements the ports.TicketGateway interface.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

var _ ports.TicketGateway = (*Client)(nil)

// NewClient creates a new ticket service client.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger.With("component", "ticket_client"),
	}
}

// GetTicket fetches the evaluation snapshot of a ticket, including its field
// map, status log and previously stored SLA state.
func (c *Client) GetTicket(ctx context.Context, ticketID string) (*domain.TicketSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tickets/%s/sla-snapshot", c.baseURL, url.PathEscape(ticketID))

	var envelope struct {
		Data domain.TicketSnapshot `json:"data"`
	}
	status, err := c.do(ctx, http.MethodGet, endpoint, nil, &envelope)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apperrors.ErrTicketNotFound
	}
	if status >= 300 {
		return nil, apperrors.NewUpstreamError(fmt.Errorf("unexpected status %d", status), serviceName)
	}
	return &envelope.Data, nil
}

// UpdateFields applies escalation field updates to a ticket.
func (c *Client) UpdateFields(ctx context.Context, ticketID string, updates []domain.FieldUpdate) error {
	endpoint := fmt.Sprintf("%s/api/v1/tickets/%s/fields", c.baseURL, url.PathEscape(ticketID))

	body := struct {
		Updates []domain.FieldUpdate `json:"updates"`
	}{Updates: updates}

	status, err := c.do(ctx, http.MethodPatch, endpoint, body, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return apperrors.ErrTicketNotFound
	}
	if status >= 300 {
		return apperrors.NewUpstreamError(fmt.Errorf("unexpected status %d", status), serviceName)
	}
	return nil
}

// SaveSla stores the evaluated SLA state on the ticket.
func (c *Client) SaveSla(ctx context.Context, ticketID string, state *domain.SlaState) error {
	endpoint := fmt.Sprintf("%s/api/v1/tickets/%s/sla", c.baseURL, url.PathEscape(ticketID))

	status, err := c.do(ctx, http.MethodPut, endpoint, state, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return apperrors.ErrTicketNotFound
	}
	if status >= 300 {
		return apperrors.NewUpstreamError(fmt.Errorf("unexpected status %d", status), serviceName)
	}
	return nil
}

// do performs an authenticated JSON request and decodes the response into out
// when the call succeeds. It returns the status code so callers can map the
// statuses they care about.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.ServiceToken()
	if err != nil {
		return 0, fmt.Errorf("mint service token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperrors.NewUpstreamError(err, serviceName)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, apperrors.NewUpstreamError(fmt.Errorf("decode response: %w", err), serviceName)
		}
		return resp.StatusCode, nil
	}

	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
