package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const contentType = "application/json"

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.UserAgent)
	return req
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, headers map[string]string, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req, target)
}

func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	return c.do(req, target)
}

func (c *Client) do(req *http.Request, target any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("make request", zap.String("url", redact(req.URL.String())))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if target == nil {
		return nil
	}
	return json.Unmarshal(data, target)
}

func redact(url string) string {
	idx := strings.Index(url, "key=")
	if idx == -1 {
		return url
	}
	end := strings.IndexByte(url[idx:], '&')
	if end == -1 {
		return url[:idx] + "key=REDACTED"
	}
	return url[:idx] + "key=REDACTED" + url[idx+end:]
}
