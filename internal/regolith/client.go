package regolith

import (
	"bytes"
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

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/five82/prospector/internal/cache"
)

// SessionFetcher defines the two polling queries.
// This interface is implemented by *Client and can be used for testing.
type SessionFetcher interface {
	FetchSession(ctx context.Context, sessionID string) (cache.Fragment, error)
	FetchUpdates(ctx context.Context, sessionID string, lastCheck int64) ([]Delta, error)
}

// Ensure Client implements SessionFetcher at compile time.
var _ SessionFetcher = (*Client)(nil)

// ErrSessionNotFound is returned when the API answers with a null session.
var ErrSessionNotFound = errors.New("session not found")

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// Client talks to the session GraphQL API.
type Client struct {
	endpoint  *url.URL
	http      *http.Client
	token     string
	userAgent string
}

const (
	defaultAPIURL    = "http://127.0.0.1:4000/graphql"
	defaultUserAgent = "prospector/0.1"
	requestTimeout   = 10 * time.Second
	maxPages         = 50
)

var codec = sonic.Config{UseInt64: true}.Froze()

// NewClient builds a Client for the GraphQL endpoint apiURL. An empty token
// sends unauthenticated requests.
func NewClient(apiURL, token string) (*Client, error) {
	endpoint, err := parseEndpoint(apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		token:     strings.TrimSpace(token),
		userAgent: defaultUserAgent,
	}, nil
}

// Endpoint returns the resolved GraphQL URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

type collectionPage struct {
	Items     []any   `json:"items"`
	NextToken *string `json:"nextToken"`
}

// FetchSession retrieves the full session aggregate, following nextToken on
// each paginated collection.
func (c *Client) FetchSession(ctx context.Context, sessionID string) (cache.Fragment, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload struct {
		Session cache.Fragment `json:"session"`
	}
	vars := map[string]any{"sessionId": sessionID}
	if err := c.do(ctx, "getSession", sessionQuery, vars, &payload); err != nil {
		return nil, err
	}
	if payload.Session == nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, ErrSessionNotFound)
	}
	for field, op := range pageQueries {
		if err := c.followPages(ctx, sessionID, payload.Session, field, op); err != nil {
			return nil, err
		}
	}
	return payload.Session, nil
}

func (c *Client) followPages(ctx context.Context, sessionID string, session cache.Fragment, field string, op operation) error {
	coll, ok := cache.AsFragment(session[field])
	if !ok {
		return nil
	}
	items := session.Items(field)
	token := coll.String("nextToken")
	for page := 0; token != "" && page < maxPages; page++ {
		var payload struct {
			Session map[string]collectionPage `json:"session"`
		}
		vars := map[string]any{"sessionId": sessionID, "nextToken": token}
		if err := c.do(ctx, op.name, op.query, vars, &payload); err != nil {
			return err
		}
		next, ok := payload.Session[field]
		if !ok {
			break
		}
		items = append(items, next.Items...)
		token = ""
		if next.NextToken != nil {
			token = *next.NextToken
		}
	}
	session.SetItems(field, items)
	coll, _ = cache.AsFragment(session[field])
	coll["nextToken"] = nil
	return nil
}

// FetchUpdates retrieves delta records newer than lastCheck (epoch ms). A zero
// lastCheck asks for the server's default window.
func (c *Client) FetchUpdates(ctx context.Context, sessionID string, lastCheck int64) ([]Delta, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	vars := map[string]any{"sessionId": sessionID}
	if lastCheck > 0 {
		vars["lastCheck"] = strconv.FormatInt(lastCheck, 10)
	}
	var payload struct {
		SessionUpdates []Delta `json:"sessionUpdates"`
	}
	if err := c.do(ctx, "getSessionUpdates", sessionUpdatesQuery, vars, &payload); err != nil {
		return nil, err
	}
	return payload.SessionUpdates, nil
}

type graphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, operation, query string, vars map[string]any, dest any) error {
	body, err := codec.Marshal(graphQLRequest{
		OperationName: operation,
		Query:         query,
		Variables:     vars,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", operation, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var envelope graphQLResponse
	if err := codec.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{Operation: operation}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if dest == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := codec.Unmarshal(envelope.Data, dest); err != nil {
		return fmt.Errorf("decode %s data: %w", operation, err)
	}
	return nil
}

func parseEndpoint(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	if u.Path == "" {
		u.Path = "/graphql"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
