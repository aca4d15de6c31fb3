// Package httpstore implements the store contract over the worklog HTTP API
// and provides the session client used to sign in to it.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Client talks to the API and keeps the session cookie between calls.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its cookie jar is kept
// when set, otherwise a fresh one is installed.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Signup registers a new account. It does not sign in.
func (c *Client) Signup(ctx context.Context, req dto.SignupRequest) (*dto.UserDTO, error) {
	var user dto.UserDTO
	if err := c.do(ctx, "signup", "", http.MethodPost, "/api/auth/signup", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login signs in and stores the session cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.UserDTO, error) {
	var user dto.UserDTO
	err := c.do(ctx, "login", "", http.MethodPost, "/api/auth/login", nil, dto.LoginRequest{
		Email:    email,
		Password: password,
	}, &user)
	if err != nil {
		if store.KindOf(err) == store.KindUnauthenticated {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	return &user, nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", "", http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// Me returns the signed in user.
func (c *Client) Me(ctx context.Context) (*dto.UserDTO, error) {
	var user dto.UserDTO
	if err := c.do(ctx, "me", "", http.MethodGet, "/api/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the profile of the signed in user.
func (c *Client) UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest) (*dto.UserDTO, error) {
	var user dto.UserDTO
	if err := c.do(ctx, "update profile", "", http.MethodPatch, "/api/auth/me", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SessionFor derives the client session of a signed in user.
func SessionFor(user *dto.UserDTO) models.Session {
	return models.Session{UserID: user.ID, Training: user.Training()}
}

// do sends one request. in is encoded as JSON when non-nil; out is decoded
// from a successful response when non-nil. Failures are store errors.
func (c *Client) do(ctx context.Context, op, collection, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return store.NewError(store.KindInvalidArgument, op, collection, "",
				fmt.Errorf("%w: %v", store.ErrInvalidArgument, err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return store.NewError(store.KindUnknown, op, collection, "", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return store.NewError(store.KindUnavailable, op, collection, "", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request served")

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp, op, collection)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return store.NewError(store.KindUnknown, op, collection, "", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// apiError mirrors the error body written by the API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func responseError(resp *http.Response, op, collection string) error {
	var body apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
	}
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}

	kind := KindForStatus(resp.StatusCode)
	cause := fmt.Errorf("%d %s", resp.StatusCode, body.Message)
	if sentinel := store.Sentinel(kind); sentinel != nil {
		cause = fmt.Errorf("%w: %d %s", sentinel, resp.StatusCode, body.Message)
	}
	return store.NewError(kind, op, collection, "", cause)
}

// KindForStatus maps an HTTP status onto the store error taxonomy.
func KindForStatus(status int) store.Kind {
	switch {
	case status == http.StatusBadRequest:
		return store.KindInvalidArgument
	case status == http.StatusUnauthorized:
		return store.KindUnauthenticated
	case status == http.StatusForbidden:
		return store.KindPermissionDenied
	case status == http.StatusNotFound:
		return store.KindNotFound
	case status == http.StatusConflict, status == http.StatusPreconditionFailed:
		return store.KindConflict
	case status >= http.StatusInternalServerError:
		return store.KindUnavailable
	default:
		return store.KindUnknown
	}
}
