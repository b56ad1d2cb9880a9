// Package slackapi is the gateway's outbound collaborator: a long-lived,
// connection-pooling client of [Slack's Web API], which is constructed
// once and shared (read-only) by all concurrent event handlers.
//
// [Slack's Web API]: https://docs.slack.dev/apis/web-api
package slackapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

const (
	timeout = 3 * time.Second
	maxSize = 64 * 1024 // 64 KiB.
)

// Client holds the shared HTTP connection pool. It is not modified after [New].
type Client struct {
	httpClient *http.Client
	apiURL     string
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithAPIURL overrides Slack's API base URL ("https://slack.com/api/").
func WithAPIURL(u string) Option {
	return func(client *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		client.apiURL = u
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   timeout,
		},
		apiURL: slack.APIURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExchangeCode exchanges a temporary OAuth authorization code for an access
// token. Based on https://docs.slack.dev/reference/methods/oauth.v2.access.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*slack.OAuthV2Response, error) {
	form := url.Values{}
	form.Set("code", code)
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	// Construct and send the request.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := c.apiURL + "oauth.v2.access"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to construct HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	// Read and parse the response.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if len(body) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, string(body))
		}
		return nil, errors.New(msg)
	}

	decoded := &slack.OAuthV2Response{}
	if err := json.Unmarshal(body, decoded); err != nil {
		return nil, fmt.Errorf("failed to parse JSON in HTTP response body: %w", err)
	}
	if !decoded.Ok {
		return nil, fmt.Errorf("Slack API error: %s", decoded.Error)
	}

	return decoded, nil
}

// Session binds a token to the client's shared connection pool.
// Sessions are cheap, and are meant to be created per event.
func (c *Client) Session(token string) *Session {
	return &Session{
		api: slack.New(token, slack.OptionHTTPClient(c.httpClient), slack.OptionAPIURL(c.apiURL)),
	}
}

// Session issues authenticated Slack API calls with a bot token.
type Session struct {
	api *slack.Client
}

// Test checks the session's token.
// Based on https://docs.slack.dev/reference/methods/auth.test.
func (s *Session) Test(ctx context.Context) (*slack.AuthTestResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.api.AuthTestContext(ctx)
}

// PostMessage sends a message to a channel, and returns its timestamp.
// Based on https://docs.slack.dev/reference/methods/chat.postMessage.
func (s *Session) PostMessage(ctx context.Context, channelID string, m *Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, ts, err := s.api.PostMessageContext(ctx, channelID, m.MsgOptions()...)
	return ts, err
}
