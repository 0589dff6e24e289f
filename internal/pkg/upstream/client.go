package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// maxErrorBody caps how much of an error response is kept as the message.
const maxErrorBody = 4 << 10

// DefaultMaxReportSize caps a downloaded report when Options leaves it unset.
const DefaultMaxReportSize int64 = 50 << 20

// APIError is a non-2xx upstream response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

var (
	ErrBaseURLRequired = errors.New("upstream base URL is required")
	ErrReportTooLarge  = errors.New("report exceeds the maximum size")
)

type Options struct {
	BaseURL string

	// Token is a static bearer token. When ClientID is set, tokens are
	// obtained with the client-credentials grant from TokenURL instead.
	Token        string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	// HTTPClient supplies the base transport and timeout.
	HTTPClient *http.Client

	// MaxReportSize is the largest report body Download accepts, in bytes.
	MaxReportSize int64
}

// Client talks to the remote attendance API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	maxReport int64
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, ErrBaseURLRequired
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var ts oauth2.TokenSource
	switch {
	case opts.ClientID != "":
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts = cc.TokenSource(ctx)
	case opts.Token != "":
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
	}

	if ts != nil {
		rt := httpClient.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: rt},
			Timeout:   httpClient.Timeout,
		}
	}

	maxReport := opts.MaxReportSize
	if maxReport <= 0 {
		maxReport = DefaultMaxReportSize
	}

	return &Client{baseURL: base, http: httpClient, maxReport: maxReport}, nil
}

// List fetches one page of a paginated resource.
func (c *Client) List(ctx context.Context, resource string, params url.Values) (attendance.PageResult, error) {
	var result attendance.PageResult
	if err := c.getJSON(ctx, resource, params, &result); err != nil {
		return attendance.PageResult{}, err
	}
	return result, nil
}

// Metrics fetches the aggregate snapshot of a metrics endpoint.
func (c *Client) Metrics(ctx context.Context, endpoint string) (metrics.Snapshot, error) {
	var snapshot metrics.Snapshot
	if err := c.getJSON(ctx, endpoint, nil, &snapshot); err != nil {
		return metrics.Snapshot{}, err
	}
	return snapshot, nil
}

// MetricsSource binds an endpoint to a metrics.Source.
func (c *Client) MetricsSource(endpoint string) metrics.Source {
	return metrics.SourceFunc(func(ctx context.Context) (metrics.Snapshot, error) {
		return c.Metrics(ctx, endpoint)
	})
}

// Download fetches a binary report.
func (c *Client) Download(ctx context.Context, endpoint string, params url.Values) (export.Blob, error) {
	resp, err := c.do(ctx, endpoint, params)
	if err != nil {
		return export.Blob{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReport+1))
	if err != nil {
		return export.Blob{}, fmt.Errorf("failed to read report body: %w", err)
	}
	if int64(len(body)) > c.maxReport {
		return export.Blob{}, fmt.Errorf("%w: more than %d bytes", ErrReportTooLarge, c.maxReport)
	}
	return export.Blob{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// GetJSON decodes an arbitrary JSON resource into v.
func (c *Client) GetJSON(ctx context.Context, resource string, params url.Values, v any) error {
	return c.getJSON(ctx, resource, params, v)
}

func (c *Client) getJSON(ctx context.Context, resource string, params url.Values, v any) error {
	resp, err := c.do(ctx, resource, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", resource, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, resource string, params url.Values) (*http.Response, error) {
	u := c.endpoint(resource, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, "+export.ContentTypeXLSX)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return resp, nil
}

// endpoint joins resource onto the base URL, keeping its trailing slash.
func (c *Client) endpoint(resource string, params url.Values) string {
	u := c.baseURL.JoinPath(resource)
	if strings.HasSuffix(resource, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = params.Encode()
	return u.String()
}

// errorMessage extracts {"detail"|"message"|"error": ...} from a JSON error
// body, falling back to the raw text.
func errorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}
