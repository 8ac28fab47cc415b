package client

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/mbolis/dynaform/model"
)

// Token is the reply of the login and refresh endpoints.
type Token struct {
	AccessToken  string            `json:"access_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	RefreshToken string            `json:"refresh_token"`
	Properties   map[string]string `json:"properties"`
}

func (t Token) Expiration(issued time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return issued.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Name is the display name the backend attached to the token.
func (t Token) Name() string {
	return t.Properties["name"]
}

func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	var tok Token
	basic := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/login",
		header: http.Header{"Authorization": {"Basic " + basic}},
		out:    &tok,
	})
	return tok, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	var tok Token
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/refresh",
		header: http.Header{"Authorization": {"Refresh " + refreshToken}},
		out:    &tok,
	})
	return tok, err
}

func (c *Client) Signup(ctx context.Context, u model.User) (int, error) {
	var reply struct {
		ID int `json:"id"`
	}
	err := c.do(ctx, call{method: http.MethodPost, path: "/signup", body: u, out: &reply})
	return reply.ID, err
}
