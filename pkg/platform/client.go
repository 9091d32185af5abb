package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StatusError is returned for non-2xx responses that were not retried away.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type HTTPClient struct {
	Client  *http.Client
	Retries int
	Timeout time.Duration
	Backoff time.Duration
	Logger  zerolog.Logger
}

func NewHTTPClient(retries int, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Client: &http.Client{
			Timeout: timeout,
		},
		Retries: retries,
		Timeout: timeout,
		Backoff: 200 * time.Millisecond,
		Logger:  log.Logger,
	}
}

// GetJSON issues a GET and decodes a 2xx body into out. Transport errors
// and 5xx responses are retried with exponential backoff. Returned errors
// never carry the request query, which may hold API keys.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	var lastErr error

	for i := 0; i <= c.Retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return redact(err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.Client.Do(req)
		if err == nil {
			lastErr = decodeResponse(resp, out)
			if lastErr == nil {
				return nil
			}
			if se, ok := lastErr.(*StatusError); ok && se.StatusCode < 500 {
				return lastErr
			}
		} else {
			lastErr = redact(err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i < c.Retries {
			c.Logger.Warn().Err(lastErr).Int("attempt", i+1).Msg("HTTP request failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<i) * c.Backoff):
			}
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", c.Retries, lastErr)
}

// redact strips the query string from the URL recorded in a *url.Error.
func redact(err error) error {
	ue, ok := err.(*url.Error)
	if !ok {
		return err
	}
	clean := ue.URL
	if u, perr := url.Parse(ue.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		clean = u.String()
	} else if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	return &url.Error{Op: ue.Op, URL: clean, Err: ue.Err}
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
