package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AdminAPI is the slice of the provider admin surface the orchestrators need.
type AdminAPI interface {
	DeleteUser(ctx context.Context, subject string) error
	UpdatePassword(ctx context.Context, subject, newPassword string) error
}

// ClientConfig configures the provider admin client.
type ClientConfig struct {
	BaseURL      string
	ServiceToken string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client calls the identity provider's admin API.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

// NewClient validates the config and returns an admin client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("identity client requires baseURL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:      baseURL,
		serviceToken: strings.TrimSpace(cfg.ServiceToken),
		httpClient:   httpClient,
	}, nil
}

// DeleteUser removes the account at the provider. A subject the provider no
// longer knows counts as deleted.
func (c *Client) DeleteUser(ctx context.Context, subject string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return errors.New("subject is required")
	}
	resp, err := c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(subject), nil)
	if err != nil {
		return fmt.Errorf("identity delete user: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("identity delete user: status %d", resp.StatusCode)
	}
	return nil
}

// UpdatePassword sets a new password for the subject at the provider.
func (c *Client) UpdatePassword(ctx context.Context, subject, newPassword string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return errors.New("subject is required")
	}
	if newPassword == "" {
		return errors.New("password is required")
	}
	body := map[string]string{"password": newPassword}
	resp, err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(subject)+"/password", body)
	if err != nil {
		return fmt.Errorf("identity update password: %w", err)
	}
	defer drain(resp)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("identity update password: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}
	return c.httpClient.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
