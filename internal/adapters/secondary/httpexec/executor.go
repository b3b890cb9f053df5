package httpexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lorrc/sla-engine/internal/core/domain"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// Executor fires stored HTTP_REQ job payloads. It implements the
// ports.JobExecutor interface.
type Executor struct {
	http   *http.Client
	logger *slog.Logger
}

var _ ports.JobExecutor = (*Executor)(nil)

// NewExecutor creates a new HTTP job executor.
func NewExecutor(timeout time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		http:   &http.Client{Timeout: timeout},
		logger: logger.With("component", "http_executor"),
	}
}

// Execute performs the stored request. Any 2xx response counts as success;
// everything else is an error so the scheduler can log the failed fire.
func (e *Executor) Execute(ctx context.Context, spec domain.HTTPRequestSpec) error {
	method := spec.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if len(spec.Params) > 0 {
		q := req.URL.Query()
		for _, p := range spec.Params {
			q.Set(p.Name, p.Value)
		}
		req.URL.RawQuery = q.Encode()
	}
	for _, h := range spec.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s %s: %w", method, spec.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("execute %s %s: unexpected status %d", method, spec.URL, resp.StatusCode)
	}

	e.logger.Debug("job callback delivered", "url", spec.URL, "status", resp.StatusCode)
	return nil
}
