package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/eventlook/internal/api"
	"github.com/charliek/eventlook/internal/constants"
	"github.com/charliek/eventlook/internal/domain"
	"github.com/charliek/eventlook/internal/filter"
)

// Client is an HTTP client for the eventlook API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	// The token file only exists when the server runs with auth
	token, _ := loadToken()

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: constants.DefaultClientTimeout,
		},
	}
}

// GetStatus gets server status
func (c *Client) GetStatus() (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetChannels lists the channels of the server's log root
func (c *Client) GetChannels() (*api.ChannelListResponse, error) {
	var resp api.ChannelListResponse
	if err := c.get("/api/v1/channels", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateSource asks the server whether a source can be read
func (c *Client) ValidateSource(source domain.LogSource) (*api.ValidateResponse, error) {
	query := url.Values{}
	query.Set("source", source.Path)
	query.Set("type", source.PathType.String())

	var resp api.ValidateResponse
	if err := c.get("/api/v1/sources/validate?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetEvents runs a filtered read on the server
func (c *Client) GetEvents(params domain.ReadParams, limit int) (*api.EventsResponse, error) {
	query := eventsQuery(params)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp api.EventsResponse
	if err := c.get("/api/v1/events?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown stops the server
func (c *Client) Shutdown() error {
	var resp api.SuccessResponse
	return c.post("/api/v1/shutdown", &resp)
}

// StreamEvents follows a channel and calls the callback for each matching
// event until ctx is done or the server closes the stream. The first
// replay buffered events are sent before new ones.
func (c *Client) StreamEvents(ctx context.Context, channel string, criteria filter.Criteria, replay int, callback func(api.EventResponse)) error {
	query := criteriaQuery(criteria)
	query.Set("channel", channel)
	if replay > 0 {
		query.Set("replay", strconv.Itoa(replay))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/events/stream?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.addAuthHeader(req)

	// Streams stay open; only the context ends them
	resp, err := (&http.Client{Transport: c.httpClient.Transport}).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var e api.EventResponse
			if err := json.Unmarshal([]byte(data), &e); err == nil {
				callback(e)
			}
		}
	}
}

// eventsQuery encodes a read for the events endpoints
func eventsQuery(params domain.ReadParams) url.Values {
	query := criteriaQuery(filter.CriteriaFromParams(params))
	query.Set("source", params.Source.Path)
	query.Set("type", params.Source.PathType.String())
	if !params.From.IsZero() {
		query.Set("from", params.From.UTC().Format(time.RFC3339))
	}
	if !params.To.IsZero() {
		query.Set("to", params.To.UTC().Format(time.RFC3339))
	}
	query.Set("newest", strconv.FormatBool(params.NewestFirst))
	return query
}

func criteriaQuery(c filter.Criteria) url.Values {
	query := url.Values{}
	if c.Message != "" {
		query.Set("q", c.Message)
	}
	if len(c.Levels) > 0 {
		names := make([]string, len(c.Levels))
		for i, level := range c.Levels {
			names[i] = level.String()
		}
		query.Set("level", strings.Join(names, ","))
	}
	if c.Provider != "" {
		query.Set("provider", c.Provider)
	}
	if c.IDs != "" {
		query.Set("id", c.IDs)
	}
	return query
}

func (c *Client) get(path string, v interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) post(path string, v interface{}) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v interface{}) error {
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// responseError converts an API error response
func responseError(resp *http.Response) error {
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Code != "" {
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Error)
	}
	return errors.New("request failed with status " + strconv.Itoa(resp.StatusCode))
}

// addAuthHeader adds the Authorization header if a token is available
func (c *Client) addAuthHeader(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
