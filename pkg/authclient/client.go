// Package authclient talks to the auth service over HTTP and verifies the
// access tokens it issues. Session cookies are kept in the client's jar.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/Skotchmaster/auth_service/pkg/tokens"
)

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type idResponse struct {
	ID uint `json:"id"`
}

type Tenant struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// User is the profile returned by /auth/self.
type User struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TenantID  *uint     `json:"tenantId,omitempty"`
	Tenant    *Tenant   `json:"tenant,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ErrorItem struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// APIError carries the service's error list for a non-2xx answer.
type APIError struct {
	Status int
	Errors []ErrorItem
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, it := range e.Errors {
		msgs = append(msgs, it.Msg)
	}
	return fmt.Sprintf("auth service: status %d: %s", e.Status, strings.Join(msgs, "; "))
}

func NewClient(authServiceURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(authServiceURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse auth url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// KeySet returns a verifier bound to the service's published keys.
func (c *Client) KeySet(opts ...tokens.KeySetOption) *tokens.KeySet {
	return tokens.NewKeySet(c.baseURL.JoinPath(".well-known", "jwks.json").String(), opts...)
}

// AccessToken is the access token currently held in the cookie jar.
func (c *Client) AccessToken() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == "accessToken" {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (uint, error) {
	var out idResponse
	err := c.do(ctx, http.MethodPost, "auth/register", req, &out)
	return out.ID, err
}

func (c *Client) Login(ctx context.Context, email, password string) (uint, error) {
	var out idResponse
	err := c.do(ctx, http.MethodPost, "auth/login", loginRequest{Email: email, Password: password}, &out)
	return out.ID, err
}

func (c *Client) Refresh(ctx context.Context) (uint, error) {
	var out idResponse
	err := c.do(ctx, http.MethodGet, "auth/refresh", nil, &out)
	return out.ID, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "auth/logout", nil, nil)
}

func (c *Client) Self(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "auth/self", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Errors []ErrorItem `json:"errors"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Errors = payload.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
