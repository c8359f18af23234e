package verifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"precheck/internal/config"
	"precheck/internal/model"
)

// HTTPClient calls a remote verification service over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a Client for the service at cfg.URL. Outgoing
// requests are traced via otelhttp.
func NewHTTPClient(cfg config.VerifierConfig) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("verifier url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type verifyRequest struct {
	DocumentType string `json:"document_type"`
	Content      string `json:"content"` // base64
}

type verifyResponse struct {
	IsAuthentic     bool      `json:"is_authentic"`
	ConfidenceScore float64   `json:"confidence_score"`
	Issues          []string  `json:"issues"`
	VerifiedBy      string    `json:"verified_by"`
	Timestamp       time.Time `json:"timestamp"`
}

// Verify posts the plaintext to the service and maps its response. Any
// transport error or non-200 status is returned as-is for the caller's
// retry policy to classify.
func (c *HTTPClient) Verify(ctx context.Context, plaintext []byte, docType model.DocumentType) (*model.VerificationResult, error) {
	body, err := json.Marshal(verifyRequest{
		DocumentType: string(docType),
		Content:      base64.StdEncoding.EncodeToString(plaintext),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification service call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for diagnostics without trusting it.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("verification service returned %d: %s", resp.StatusCode, snippet)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	ts := out.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &model.VerificationResult{
		IsAuthentic:     out.IsAuthentic,
		ConfidenceScore: out.ConfidenceScore,
		Issues:          out.Issues,
		VerifiedBy:      out.VerifiedBy,
		Timestamp:       ts,
	}, nil
}
