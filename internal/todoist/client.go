package todoist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Todoist v7 sync endpoint. Reads and writes both go
// through this single URL.
const DefaultBaseURL = "https://todoist.com/API/v7/sync"

// ClientOptions configures a Client. Zero values fall back to sane defaults.
type ClientOptions struct {
	// BaseURL overrides the sync endpoint, mainly for tests.
	BaseURL string
	// Token is the account's OAuth token. Required.
	Token string
	// ClientID identifies the registered Todoist app.
	ClientID string
	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client
	// UserAgent is sent when non-empty.
	UserAgent string
}

// Client is the thin HTTP transport to the sync endpoint. It performs single
// attempts only; retry policy lives in the Dispatcher.
type Client struct {
	baseURL    string
	token      string
	clientID   string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a sync endpoint client.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		clientID:   opts.ClientID,
		httpClient: httpClient,
		userAgent:  strings.TrimSpace(opts.UserAgent),
	}
}

// Execute submits one batch of commands and returns the server's
// temp_id_mapping. Transport-level failures (unreachable endpoint, 429,
// 5xx) wrap ErrTransport so the Dispatcher knows they are retryable; other
// HTTP errors are terminal.
func (c *Client) Execute(ctx context.Context, commands []Command) (TempIDMapping, error) {
	encoded, err := json.Marshal(commands)
	if err != nil {
		return nil, fmt.Errorf("failed to encode commands: %w", err)
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("commands", string(encoded))

	body, err := c.post(ctx, form)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		TempIDMapping map[string]json.Number `json:"temp_id_mapping"`
	}
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode sync response: %w", err)
	}

	mapping := make(TempIDMapping, len(parsed.TempIDMapping))
	for tempID, realID := range parsed.TempIDMapping {
		mapping[tempID] = realID.String()
	}
	return mapping, nil
}

// Read fetches the requested resource lists ("labels", "projects", "items",
// "notes", "user") as one snapshot, using the wildcard sync token.
func (c *Client) Read(ctx context.Context, resourceTypes []string) (*Snapshot, error) {
	encoded, err := json.Marshal(resourceTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource types: %w", err)
	}

	query := url.Values{}
	query.Set("token", c.token)
	query.Set("sync_token", "*")
	query.Set("resource_types", string(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// FetchPremium reads the account's premium flag. Failures degrade to false:
// the caller loses premium-only features for the run but the sync proceeds.
func (c *Client) FetchPremium(ctx context.Context) (bool, error) {
	snapshot, err := c.Read(ctx, []string{"user"})
	if err != nil {
		return false, err
	}
	return snapshot.User.IsPremium, nil
}

func (c *Client) post(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setHeaders(req)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return body, nil
	}

	message := strings.TrimSpace(string(body))
	if len(message) > 200 {
		message = message[:200]
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status=%d message=%s", ErrTransport, resp.StatusCode, message)
	}
	return nil, fmt.Errorf("sync request rejected: status=%d message=%s", resp.StatusCode, message)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Access-Token", c.token)
	if c.clientID != "" {
		req.Header.Set("X-Client-ID", c.clientID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}
