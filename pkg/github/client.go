// Package github is a small GitHub REST client covering workflow dispatch,
// run lookup and pull request metadata.
package github

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

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL     = "https://api.github.com"
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBodyBytes  = 4096
	apiVersion         = "2022-11-28"
)

var (
	// ErrRunNotFound is returned when no run matching a dispatch appears
	// within the polling budget.
	ErrRunNotFound = errors.New("no matching workflow run found")

	// ErrAmbiguousRun is returned when more than one in-progress run could
	// belong to a dispatch.
	ErrAmbiguousRun = errors.New("more than one matching workflow run found")
)

// RequestError is a non-2xx response from the GitHub API.
type RequestError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: github api returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Owner   string
	Repo    string
	Token   string

	// Run id resolution.
	InitialDelay time.Duration
	PollInterval time.Duration
	PollAttempts int
	ClockSkew    time.Duration

	HTTPClient *http.Client
}

// Client talks to one repository.
type Client struct {
	log  logrus.FieldLogger
	opts Options
	http *http.Client
}

// NewClient creates a Client.
func NewClient(log logrus.FieldLogger, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}

	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 1
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Client{
		log: log.WithFields(logrus.Fields{
			"component": "github",
			"repo":      opts.Owner + "/" + opts.Repo,
		}),
		opts: opts,
		http: httpClient,
	}
}

func (c *Client) repoURL(format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.opts.BaseURL,
		url.PathEscape(c.opts.Owner), url.PathEscape(c.opts.Repo)) +
		fmt.Sprintf(format, args...)
}

// do sends a request and decodes a JSON response into out when out is not
// nil. Non-2xx responses become a *RequestError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &RequestError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}

	return nil
}
