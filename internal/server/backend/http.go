package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
)

// HTTPBackend speaks JSON to the RAG/OCR service:
//
//	POST {base}/api/jobs        body Job     -> {"id": "..."}
//	GET  {base}/api/jobs/{id}                -> Result
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPBackend{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type submitResponse struct {
	ID string `json:"id"`
}

func (b *HTTPBackend) Submit(ctx context.Context, job Job) (string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/jobs", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out submitResponse
	if err := b.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: empty job id", common.ErrorBackendUnavailable)
	}
	return out.ID, nil
}

func (b *HTTPBackend) Poll(ctx context.Context, jobID string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return Result{}, err
	}

	var out Result
	if err := b.do(req, &out); err != nil {
		return Result{}, err
	}
	switch out.Status {
	case StatusPending, StatusCompleted, StatusFailed:
		return out, nil
	default:
		return Result{}, fmt.Errorf("%w: unknown job status %q", common.ErrorBackendUnavailable, out.Status)
	}
}

func (b *HTTPBackend) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return common.ErrorNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %d %s", common.ErrorBackendUnavailable,
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", common.ErrorBackendUnavailable, err)
	}
	return nil
}
