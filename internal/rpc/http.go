package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type httpConn struct {
	url     string
	headers http.Header
	client  *http.Client
}

func newHTTPConn(url string, timeout time.Duration, headers http.Header) *httpConn {
	return &httpConn{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpConn) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		// Nodes report some failures as non-200 with a JSON-RPC body.
		var resp Response
		if json.Unmarshal(respBody, &resp) == nil && resp.Error != nil {
			return &resp, nil
		}
		return nil, fmt.Errorf("HTTP %d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return &resp, nil
}

func (c *httpConn) close() error {
	c.client.CloseIdleConnections()
	return nil
}
