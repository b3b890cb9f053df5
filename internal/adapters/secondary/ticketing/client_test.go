package ticketing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
)

type staticTokens struct{}

func (staticTokens) ServiceToken() (string, error) { return "svc-token", nil }

func newTestClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(baseURL, 2*time.Second, staticTokens{}, logger)
}

func TestClient_GetTicket(t *testing.T) {
	policyID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/tickets/T-42/sla-snapshot", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))

		snapshot := domain.TicketSnapshot{
			ID:        "T-42",
			Tenant:    "acme",
			Module:    domain.ModuleIncident,
			Status:    "OPEN",
			Fields:    map[string]string{"priority": "critical"},
			CreatedAt: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
			Sla:       &domain.SlaState{PolicyID: policyID},
		}
		json.NewEncoder(w).Encode(map[string]any{"data": snapshot})
	}))
	defer srv.Close()

	ticket, err := newTestClient(srv.URL).GetTicket(context.Background(), "T-42")
	require.NoError(t, err)
	assert.Equal(t, "T-42", ticket.ID)
	assert.Equal(t, "acme", ticket.Tenant)
	assert.Equal(t, "critical", ticket.Fields["priority"])
	require.NotNil(t, ticket.Sla)
	assert.Equal(t, policyID, ticket.Sla.PolicyID)
}

func TestClient_GetTicketMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetTicket(context.Background(), "gone")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestClient_UpdateFields(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/tickets/T-42/fields", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).UpdateFields(context.Background(), "T-42",
		[]domain.FieldUpdate{{Field: "priority", Value: "critical"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"updates":[{"field":"priority","value":"critical"}]}`, string(gotBody))
}

func TestClient_SaveSla(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/tickets/T-42/sla", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	state := &domain.SlaState{
		PolicyID: uuid.New(),
		Response: &domain.DimensionState{
			Levels: []domain.LevelState{{Deadline: time.Now().UTC(), Overdue: true}},
		},
	}
	err := newTestClient(srv.URL).SaveSla(context.Background(), "T-42", state)
	require.NoError(t, err)
}

func TestClient_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).SaveSla(context.Background(), "T-42", &domain.SlaState{})
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}
