package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type HTTPExtractor struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPExtractor(endpoint, apiKey string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPExtractor{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	TenantConfig string `json:"tenant_config,omitempty"`
}

type extractResponse struct {
	Fields     json.RawMessage `json:"fields"`
	Confidence float64         `json:"confidence"`
	Error      string          `json:"error,omitempty"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(extractRequest{
		Filename:     req.Filename,
		Content:      base64.StdEncoding.EncodeToString(req.Data),
		TenantConfig: req.TenantConfig,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned %d", resp.StatusCode)
	}
	var payload extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("extractor error: %s", payload.Error)
	}
	return &Result{
		FieldsJSON: string(payload.Fields),
		Confidence: payload.Confidence,
	}, nil
}
