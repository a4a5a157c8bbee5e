package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON sends body to url and decodes a 200 response into out.
// errDetail extracts a message from an error body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any, errDetail func([]byte) string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return unavailable(true, "execute request: %v", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return unavailable(true, "read response: %v", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		detail := string(respBody)
		if errDetail != nil {
			if d := errDetail(respBody); d != "" {
				detail = d
			}
		}
		return statusError(httpResp.StatusCode, detail)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return malformed("unmarshal response: %v", err)
	}
	return nil
}

// probe reports whether a GET to url answers 200
func probe(ctx context.Context, client *http.Client, url string, headers map[string]string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
