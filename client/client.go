// Package client talks to the form builder backend.
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/dynaform/log"
)

// TokenSource returns the stored bearer token, or "" when logged out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient. No deadline is set by
// default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	method string
	path   string
	body   any
	// auth makes the token mandatory. Without it, a token is sent when
	// there is one.
	auth bool
	// header is applied last, it may override Authorization.
	header http.Header
	out    any
}

func (c *Client) do(ctx context.Context, cl call) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &AuthError{Err: errors.Wrap(err, "read token")}
	}
	if cl.auth && token == "" {
		return &AuthError{Err: ErrNotLoggedIn}
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return errors.Wrapf(err, "encode %s %s", cl.method, cl.path)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", cl.method, cl.path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range cl.header {
		req.Header[key] = values
	}

	log.Debugf("client: %s %s", cl.method, cl.path)
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Method: cl.method, Path: cl.path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		return &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &NetworkError{
			Method: cl.method,
			Path:   cl.path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
		}
	}

	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	err = json.NewDecoder(resp.Body).Decode(cl.out)
	if err != nil {
		return &NetworkError{Method: cl.method, Path: cl.path, Status: resp.StatusCode, Err: errors.Wrap(err, "decode reply")}
	}
	return nil
}
