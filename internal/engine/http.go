package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// ModuleHeader names the module on HTTP engine requests.
const ModuleHeader = "X-Myelin-Module"

const maxErrorBody = 512

// HTTP posts requests as JSON to an engine service. Calls are not retried.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP targets url with a per-call timeout. A zero timeout means 30s.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{url: url, client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Call(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set(ModuleHeader, string(req.Module))

	resp, err := h.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%s returned %s: %s", h.url, resp.Status, bytes.TrimSpace(msg))
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", h.url, err)
	}
	return &out, nil
}
