package facebook

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

// DefaultGraphBaseURL is the Graph API root used when none is configured.
const DefaultGraphBaseURL = "https://graph.facebook.com/v16.0"

// GraphClient is the slice of the Facebook Graph API this agent needs.
type GraphClient interface {
	// PublishPost creates a post on the page's feed and returns the
	// platform-assigned post id.
	PublishPost(ctx context.Context, token, pageID, message, imageRef string) (string, error)
	// PostAnalytics fetches engagement metrics for a published post.
	PostAnalytics(ctx context.Context, token, postID string, metrics []string) (map[string]int64, error)
}

// HTTPGraphClient talks to the real Graph API. The base URL is configurable
// so tests can point it at a local server.
type HTTPGraphClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPGraphClient creates a Graph API client. An empty baseURL selects
// DefaultGraphBaseURL.
func NewHTTPGraphClient(baseURL string) *HTTPGraphClient {
	if baseURL == "" {
		baseURL = DefaultGraphBaseURL
	}
	return &HTTPGraphClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPGraphClient) PublishPost(ctx context.Context, token, pageID, message, imageRef string) (string, error) {
	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", token)
	if imageRef != "" {
		form.Set("link", imageRef)
	}

	endpoint := fmt.Sprintf("%s/%s/feed", c.baseURL, pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("graph api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("graph api returned %d: %s", resp.StatusCode, readGraphError(resp.Body))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("graph api returned no post id")
	}
	return out.ID, nil
}

func (c *HTTPGraphClient) PostAnalytics(ctx context.Context, token, postID string, metrics []string) (map[string]int64, error) {
	q := url.Values{}
	q.Set("metric", strings.Join(metrics, ","))
	q.Set("access_token", token)

	endpoint := fmt.Sprintf("%s/%s/insights?%s", c.baseURL, postID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph api returned %d: %s", resp.StatusCode, readGraphError(resp.Body))
	}

	var out struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := make(map[string]int64, len(out.Data))
	for _, d := range out.Data {
		if len(d.Values) > 0 {
			result[d.Name] = d.Values[0].Value
		}
	}
	return result, nil
}

// readGraphError extracts the message from a Graph API error envelope.
func readGraphError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(raw)
}

// MockGraphClient simulates the Graph API for local development. It accepts
// any token except the placeholder and returns canned analytics.
type MockGraphClient struct{}

var mockAnalytics = map[string]int64{
	"likes":       10,
	"comments":    2,
	"shares":      1,
	"reach":       150,
	"impressions": 200,
}

func (MockGraphClient) PublishPost(_ context.Context, token, _, message, imageRef string) (string, error) {
	if token == "" || token == "PLACEHOLDER_TOKEN" {
		return "", fmt.Errorf("Invalid access token")
	}
	if message == "" && imageRef == "" {
		return "", fmt.Errorf("post must have text or an image")
	}
	return fmt.Sprintf("fb_mock_%d", time.Now().Unix()), nil
}

func (MockGraphClient) PostAnalytics(_ context.Context, token, postID string, metrics []string) (map[string]int64, error) {
	if token == "" || token == "PLACEHOLDER_TOKEN" {
		return nil, fmt.Errorf("Invalid access token")
	}
	if postID == "" {
		return nil, fmt.Errorf("post id required")
	}
	out := make(map[string]int64, len(metrics))
	for _, m := range metrics {
		if v, ok := mockAnalytics[m]; ok {
			out[m] = v
		}
	}
	return out, nil
}
