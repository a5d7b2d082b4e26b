// Package instagram implements the HTTP content source. It speaks the web
// profile and GraphQL media endpoints and surfaces every failure as a
// structured errors.Error so the orchestrator can classify it.
package instagram

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/ratelimit"
	"igcrawler/pkg/source"
)

// Options configures the client.
type Options struct {
	SessionID string
	CSRFToken string
	UserAgent string
	Timeout   time.Duration
	// Limiter paces every outbound request. Nil means unlimited.
	Limiter ratelimit.Limiter
}

// Client is an Instagram web API client. It implements source.Source and
// source.Downloader.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a client with browser-like headers and the session
// cookies from opts.
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	}

	headers := map[string]string{
		"User-Agent":       opts.UserAgent,
		"Accept":           "*/*",
		"Accept-Language":  "en-US,en;q=0.9",
		"X-IG-App-ID":      "936619743392459",
		"X-Requested-With": "XMLHttpRequest",
	}
	if opts.CSRFToken != "" {
		headers["X-CSRFToken"] = opts.CSRFToken
	}
	cookie := ""
	if opts.SessionID != "" {
		cookie = "sessionid=" + opts.SessionID
	}
	if opts.CSRFToken != "" {
		if cookie != "" {
			cookie += "; "
		}
		cookie += "csrftoken=" + opts.CSRFToken
	}
	if cookie != "" {
		headers["Cookie"] = cookie
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		headers:    headers,
		baseURL:    BaseURL,
		limiter:    opts.Limiter,
		logger:     log,
	}
}

// SetHeader sets a custom header for the client.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// doRequest waits for the rate limiter, then performs the request with the
// configured headers. Transport failures come back as structured errors.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		kind := errors.KindConnectionError
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			kind = errors.KindTimeout
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.New(kind, fmt.Sprintf("request failed: %v", err), 0)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New(errors.KindUnknown, fmt.Sprintf("failed to create request: %v", err), 0)
	}
	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.KindConnectionError, fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.New(errors.KindInvalidResponse, fmt.Sprintf("failed to parse JSON: %v", err), resp.StatusCode)
	}

	return nil
}

// checkResponseStatus maps HTTP statuses onto the failure kinds.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return errors.New(errors.KindBadRequest, "the service rejected the request", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(errors.KindUnauthorized, "authentication required", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.KindNotFound, "resource not found", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(errors.KindRateLimit, "rate limit exceeded", resp.StatusCode)
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(errors.KindServiceUnavailable, "server error", resp.StatusCode)
	default:
		return errors.New(errors.KindUnknown, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), resp.StatusCode)
	}
}

// fetchProfile fetches a user's profile data.
func (c *Client) fetchProfile(ctx context.Context, username string) (*User, error) {
	url := GetProfileURL(username)

	var response Response
	if err := c.GetJSON(ctx, url, &response); err != nil {
		// The profile endpoint answers 404 for missing accounts.
		var apiErr *errors.Error
		if stderrors.As(err, &apiErr) && apiErr.Kind == errors.KindNotFound {
			return nil, errors.New(errors.KindProfileNotFound,
				fmt.Sprintf("profile %q does not exist", username), apiErr.Code)
		}
		return nil, err
	}

	if response.RequiresToLogin {
		return nil, errors.New(errors.KindUnauthorized,
			"the service requires authentication to view this profile", http.StatusUnauthorized)
	}
	if response.Data.User == nil || response.Data.User.ID == "" {
		return nil, errors.New(errors.KindProfileNotFound,
			fmt.Sprintf("profile %q does not exist", username), http.StatusOK)
	}
	if response.Data.User.IsPrivate {
		return nil, errors.New(errors.KindPrivateProfile,
			fmt.Sprintf("profile %q is private", username), http.StatusForbidden)
	}

	return response.Data.User, nil
}

// fetchMediaPage fetches one page of a user's media for a category.
func (c *Client) fetchMediaPage(ctx context.Context, userID string, category source.Category, after string) (*MediaConnection, error) {
	url := GetMediaURL(userID, category, after)

	var response Response
	if err := c.GetJSON(ctx, url, &response); err != nil {
		return nil, err
	}
	if response.Data.User == nil {
		return nil, errors.New(errors.KindInvalidResponse, "media response is missing the user payload", http.StatusOK)
	}
	return response.Data.User.MediaFor(category), nil
}

// DownloadVideo fetches the raw bytes of a media file.
func (c *Client) DownloadVideo(ctx context.Context, videoURL string) ([]byte, error) {
	resp, err := c.Get(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.KindConnectionError, fmt.Sprintf("failed to download media: %v", err), 0)
	}

	c.logger.DebugWithFields("downloaded media", map[string]interface{}{
		"url":  videoURL,
		"size": len(data),
	})

	return data, nil
}
