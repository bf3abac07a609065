package backend

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
)

// ErrBackend marks failures reported by or reaching the verification backend.
var ErrBackend = errors.New("verification backend")

const maxResponseBytes = 1 << 20

type VerifyData struct {
	Token       string `json:"token"`
	DiscordID   string `json:"discordId"`
	Avatar      string `json:"avatar"`
	DisplayName string `json:"displayName"`
	DiscordTag  string `json:"discordTag"`
}

type Info struct {
	Discord   DiscordStats `json:"discord"`
	YouTube   YouTubeStats `json:"youtube"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type DiscordStats struct {
	ServerName    string `json:"serverName"`
	MemberCount   int    `json:"memberCount"`
	OnlineCount   int    `json:"onlineCount"`
	VerifiedCount int    `json:"verifiedCount"`
}

type YouTubeStats struct {
	ChannelName string `json:"channelName"`
	ChannelURL  string `json:"channelUrl"`
	Subscribers int64  `json:"subscribers"`
	Videos      int64  `json:"videos"`
}

// Client talks to the verification backend over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", baseURL)
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// FetchVerifyData resolves a verification link token into the Discord user
// it was issued for.
func (c *Client) FetchVerifyData(ctx context.Context, token string) (*VerifyData, error) {
	var data VerifyData
	if err := c.getJSON(ctx, c.endpoint("/verify", url.Values{"token": {token}}), &data); err != nil {
		return nil, err
	}
	if data.Token == "" {
		data.Token = token
	}
	return &data, nil
}

// OAuth2StartURL is where the browser goes to link a YouTube account.
func (c *Client) OAuth2StartURL(token string) string {
	return c.endpoint("/oauth2/start", url.Values{"token": {token}})
}

func (c *Client) FetchInfo(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.getJSON(ctx, c.endpoint("/info", nil), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// StreamURL is the websocket endpoint pushing info updates.
func (c *Client) StreamURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/info/stream"
	return u.String()
}

type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrBackend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrBackend, err)
	}
	return nil
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

func (e *StatusError) Is(target error) bool {
	return target == ErrBackend
}

func errorMessage(status int, body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		var s string
		if json.Unmarshal(eb.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(eb.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	return fmt.Sprintf("backend returned %d %s", status, http.StatusText(status))
}
