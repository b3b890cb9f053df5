package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSlaRouter(svc *mocks.MockSlaService) chi.Router {
	logger := discardLogger()
	handler := NewSlaHandler(svc, NewErrorHandler(logger), logger)
	r := chi.NewRouter()
	r.Route("/sla", handler.RegisterRoutes)
	return r
}

func calculateBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"ticket": map[string]any{
			"id":        "T-42",
			"tenant":    "acme",
			"module":    "INCIDENT",
			"status":    "OPEN",
			"fields":    map[string]string{"priority": "critical"},
			"createdAt": time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	return body
}

func TestSlaCalculate(t *testing.T) {
	svc := mocks.NewMockSlaService()
	state := &domain.SlaState{
		PolicyID: uuid.New(),
		Response: &domain.DimensionState{
			Levels: []domain.LevelState{{Deadline: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)}},
		},
	}
	svc.On("Calculate", mock.Anything, mock.MatchedBy(func(s *domain.TicketSnapshot) bool {
		return s.ID == "T-42" && s.Tenant == "acme"
	})).Return(state, nil)

	router := newSlaRouter(svc)
	req := httptest.NewRequest(stdhttp.MethodPost, "/sla/calculate", bytes.NewReader(calculateBody(t)))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var response CalculateResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.True(t, response.Matched)
	require.NotNil(t, response.Sla)
	assert.Equal(t, state.PolicyID, response.Sla.PolicyID)
	svc.AssertExpectations(t)
}

func TestSlaCalculate_NoMatchingPolicy(t *testing.T) {
	svc := mocks.NewMockSlaService()
	svc.On("Calculate", mock.Anything, mock.Anything).Return(nil, nil)

	router := newSlaRouter(svc)
	req := httptest.NewRequest(stdhttp.MethodPost, "/sla/calculate", bytes.NewReader(calculateBody(t)))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var response CalculateResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.False(t, response.Matched)
	assert.Nil(t, response.Sla)
}

func TestSlaCalculate_MissingFields(t *testing.T) {
	svc := mocks.NewMockSlaService()
	router := newSlaRouter(svc)

	req := httptest.NewRequest(stdhttp.MethodPost, "/sla/calculate",
		bytes.NewReader([]byte(`{"ticket":{"module":"INCIDENT"}}`)))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	svc.AssertNotCalled(t, "Calculate", mock.Anything, mock.Anything)
}

func TestSlaCheck(t *testing.T) {
	svc := mocks.NewMockSlaService()
	svc.On("Recheck", mock.Anything, "T-42", "response:1").Return(&domain.SlaState{}, nil)

	router := newSlaRouter(svc)
	req := httptest.NewRequest(stdhttp.MethodPost, "/sla/check",
		bytes.NewReader([]byte(`{"ticketId":"T-42","where":"response:1"}`)))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	svc.AssertExpectations(t)
}

func TestSlaCheck_UpstreamFailure(t *testing.T) {
	svc := mocks.NewMockSlaService()
	svc.On("Recheck", mock.Anything, "T-42", "").
		Return(nil, apperrors.NewUpstreamError(assert.AnError, "ticket-service"))

	router := newSlaRouter(svc)
	req := httptest.NewRequest(stdhttp.MethodPost, "/sla/check",
		bytes.NewReader([]byte(`{"ticketId":"T-42"}`)))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusBadGateway, recorder.Code)
}
