// Package iamclient is a small HTTP client for services that call the IAM API.
package iamclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("iam: unauthorized")
	ErrRevoked      = errors.New("iam: token revoked")
	ErrForbidden    = errors.New("iam: forbidden")
	ErrNotFound     = errors.New("iam: not found")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type User struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type AuthenticatedUser struct {
	User
	Token string `json:"token"`
}

// StatusError carries an unexpected response status and the server message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("iam: status %d: %s", e.Code, e.Message)
}

// GetUser fetches a user by id. token must belong to an admin.
func (c *Client) GetUser(ctx context.Context, token string, id uint) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+strconv.FormatUint(uint64(id), 10), token, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Me returns the owner of token.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", token, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyToken exchanges a live token for a fresh one, failing with
// ErrUnauthorized or ErrRevoked when token is no longer accepted.
func (c *Client) VerifyToken(ctx context.Context, token string) (*AuthenticatedUser, error) {
	var res AuthenticatedUser
	if err := c.do(ctx, http.MethodPost, "/api/v1/authentication/verify-token", token, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/authentication/logout", token, nil)
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &eb)
		return statusErr(resp.StatusCode, eb.Message)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusErr(code int, msg string) error {
	se := &StatusError{Code: code, Message: msg}
	switch code {
	case http.StatusUnauthorized:
		if msg == "token revoked" {
			return errors.Join(ErrRevoked, se)
		}
		return errors.Join(ErrUnauthorized, se)
	case http.StatusForbidden:
		return errors.Join(ErrForbidden, se)
	case http.StatusNotFound:
		return errors.Join(ErrNotFound, se)
	default:
		return se
	}
}
