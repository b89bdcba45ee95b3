package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// apiClient calls the FlexBase JSON API
type apiClient struct {
	rc *resty.Client
}

// apiError is the error envelope returned by the server
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *apiError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, fe := range e.Errors {
			parts = append(parts, fe.Field+": "+fe.Message)
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	if e.Code != "" {
		return fmt.Sprintf("API error %s: %s", e.Code, msg)
	}
	return fmt.Sprintf("API error: status %d: %s", e.Status, msg)
}

func newAPIClient(baseURL, token string) *apiClient {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "FlexBase-CLI/0.1.0").
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &apiClient{rc: rc}
}

// do sends a request and decodes a 2xx body into out. It returns the raw
// body for --output json. Other statuses become *apiError.
func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, payload, out any) ([]byte, error) {
	req := c.rc.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		apiErr := &apiError{}
		_ = json.Unmarshal(body, apiErr)
		apiErr.Status = resp.StatusCode()
		return nil, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return body, nil
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *apiClient) post(ctx context.Context, path string, payload, out any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}
