// Package api is the REST client for the application backend. Every response
// is wrapped in an envelope of the form {data, messages?, errors?}.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const DefaultTimeout = 15 * time.Second

// Client talks to the backend. It holds no session state: calls that need a
// bearer token take it as an argument.
type Client struct {
	http *resty.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithRetryCount lets resty retry failed transport attempts. The default is no retries.
func WithRetryCount(n int) ClientOption {
	return func(c *Client) {
		c.http.SetRetryCount(n)
	}
}

func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call executes a request and decodes the envelope's data into out (which may be nil).
func (c *Client) call(ctx context.Context, method, path, bearer string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if bearer != "" {
		req.SetAuthToken(bearer)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		log.Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return fmt.Errorf("%w: %s %s: %v", errors.ErrNetwork, method, path, err)
	}

	raw := resp.Body()
	if rejection := rejectionFrom(resp.StatusCode(), raw); rejection != nil {
		log.Warn().Str("method", method).Str("path", path).Int("status", rejection.Status).
			Strs("messages", rejection.Messages).Msg("backend rejected request")
		return rejection
	}
	if out == nil {
		return nil
	}

	data := gjson.GetBytes(raw, "data")
	if !data.Exists() {
		return fmt.Errorf("%w: %s %s: response has no data", errors.ErrBackendRejected, method, path)
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return errors.Wrapf(errors.ErrBackendRejected, "decode %s %s response: %v", method, path, err)
	}
	return nil
}
