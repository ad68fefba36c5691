// Package linear is a minimal client for the Linear GraphQL API covering
// what release coordination needs.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultURL        = "https://api.linear.app/graphql"
	defaultTimeout    = 30 * time.Second
	maxErrorBodyBytes = 4096
)

// ErrMutationFailed is returned when a mutation reports success=false.
var ErrMutationFailed = errors.New("linear mutation was not successful")

// RequestError is a non-2xx response or a GraphQL error payload.
type RequestError struct {
	Op         string
	StatusCode int
	Messages   []string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: linear api returned status %d: %s",
		e.Op, e.StatusCode, strings.Join(e.Messages, "; "))
}

// Options configures a Client.
type Options struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// Client talks to the Linear API with one team's key.
type Client struct {
	log    logrus.FieldLogger
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a Client.
func NewClient(log logrus.FieldLogger, opts Options) *Client {
	if opts.URL == "" {
		opts.URL = defaultURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		log:    log.WithField("component", "linear"),
		url:    opts.URL,
		apiKey: opts.APIKey,
		http:   httpClient,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do runs one GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

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
			Messages:   []string{strings.TrimSpace(string(raw))},
		}
	}

	var gql graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gql); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}

	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}

		return &RequestError{Op: op, StatusCode: resp.StatusCode, Messages: msgs}
	}

	c.log.WithField("op", op).Debug("Linear request completed")

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("%s: decoding data: %w", op, err)
	}

	return nil
}
