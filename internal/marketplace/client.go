package marketplace

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

	"golang.org/x/oauth2"
)

var ErrUnauthenticated = errors.New("marketplace: no authenticated user")

// StatusError is a non-2xx answer from the marketplace API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("marketplace %s %s failed: status=%d %s", e.Method, e.Path, e.Code, e.Body)
}

// Credentials identify the caller on whose behalf the assistant acts.
type Credentials struct {
	Token  string
	UserID string
}

type credentialsKey struct{}

func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, c)
}

func CredentialsFrom(ctx context.Context) Credentials {
	c, _ := ctx.Value(credentialsKey{}).(Credentials)
	return c
}

// Client calls the marketplace REST API. baseAPI already includes the /api
// prefix.
type Client struct {
	httpClient *http.Client
	baseAPI    string
}

func NewClient(baseAPI string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{httpClient: httpClient, baseAPI: strings.TrimRight(baseAPI, "/")}
}

// ---- Helpers ----

// httpFor returns a client that adds the caller's bearer token, if any.
func (c *Client) httpFor(ctx context.Context) *http.Client {
	cred := CredentialsFrom(ctx)
	if cred.Token == "" {
		return c.httpClient
	}
	base := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"}))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseAPI+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpFor(ctx).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// ---- Notifications ----

func (c *Client) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	var out []Notification
	if err := c.do(ctx, http.MethodGet, "/notifications/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	return c.do(ctx, http.MethodPut, "/notifications/user/"+url.PathEscape(userID)+"/read-all", struct{}{}, nil)
}

// ---- Invoices ----

func (c *Client) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var out []Invoice
	if err := c.do(ctx, http.MethodGet, "/payment-invoices/user", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Contact ----

func (c *Client) SendContact(ctx context.Context, msg ContactMessage) error {
	return c.do(ctx, http.MethodPost, "/agent-contact/send", msg, nil)
}

// ---- Reviews ----

func (c *Client) CreateReview(ctx context.Context, in ReviewInput) error {
	return c.do(ctx, http.MethodPost, "/reviews", in, nil)
}

// ---- Identity ----

// CurrentUser resolves the caller from the credentials on ctx. It returns
// nil, nil for anonymous callers.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	cred := CredentialsFrom(ctx)
	if cred.UserID == "" {
		return nil, nil
	}
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(cred.UserID), nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		u.ID = cred.UserID
	}
	return &u, nil
}
