package regolith

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/prospector/internal/cache"
)

type recordedRequest struct {
	Operation string
	Variables map[string]any
	Header    http.Header
}

func newGraphQLServer(t *testing.T, handle func(op string, vars map[string]any) string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			OperationName string         `json:"operationName"`
			Variables     map[string]any `json:"variables"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, recordedRequest{Operation: req.OperationName, Variables: req.Variables, Header: r.Header.Clone()})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handle(req.OperationName, req.Variables))
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseEndpoint_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseEndpoint("")
	if err != nil {
		t.Fatalf("parseEndpoint returned error: %v", err)
	}
	if u.String() != defaultAPIURL {
		t.Fatalf("endpoint = %q, want %q", u.String(), defaultAPIURL)
	}

	u, err = parseEndpoint("api.example.com:8443?x=1#frag")
	if err != nil {
		t.Fatalf("parseEndpoint returned error: %v", err)
	}
	if u.String() != "http://api.example.com:8443/graphql" {
		t.Fatalf("endpoint = %q, want normalized graphql path", u.String())
	}

	if _, err := parseEndpoint("http://"); err == nil {
		t.Fatal("parseEndpoint accepted a URL without host")
	}
}

func TestClient_FetchUpdatesSendsWatermarkAndAuth(t *testing.T) {
	t.Parallel()

	server, seen := newGraphQLServer(t, func(op string, vars map[string]any) string {
		return `{"data":{"sessionUpdates":[
			{"eventDate":1700000000123,"sessionId":"sess1","eventName":"CREATE",
			 "data":{"__typename":"SessionUser","sessionId":"sess1","userId":"u1","sessionUserState":"ON_SITE","updatedAt":1700000000100}}
		]}}`
	})

	c, err := NewClient(server.URL, " tok ")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	deltas, err := c.FetchUpdates(testContext(t), "sess1", 1700000000000)
	if err != nil {
		t.Fatalf("FetchUpdates returned error: %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("deltas = %d, want 1", len(deltas))
	}
	d := deltas[0]
	if d.EventDate != 1700000000123 || d.EventName != EventCreate || d.SessionID != "sess1" {
		t.Fatalf("delta = %#v, want decoded header fields", d)
	}
	if got, ok := d.Data.Int64("updatedAt"); !ok || got != 1700000000100 {
		t.Fatalf("updatedAt = %d, want exact int64", got)
	}
	if d.Data.Typename() != TypeSessionUser {
		t.Fatalf("typename = %q, want SessionUser", d.Data.Typename())
	}

	req := (*seen)[0]
	if req.Operation != "getSessionUpdates" {
		t.Fatalf("operation = %q, want getSessionUpdates", req.Operation)
	}
	if req.Variables["lastCheck"] != "1700000000000" {
		t.Fatalf("lastCheck = %#v, want epoch-ms string", req.Variables["lastCheck"])
	}
	if req.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("Authorization = %q, want Bearer tok", req.Header.Get("Authorization"))
	}
	if req.Header.Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header missing")
	}
}

func TestClient_FetchUpdatesOmitsZeroWatermark(t *testing.T) {
	t.Parallel()

	server, seen := newGraphQLServer(t, func(string, map[string]any) string {
		return `{"data":{"sessionUpdates":[]}}`
	})
	c, err := NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.FetchUpdates(testContext(t), "sess1", 0); err != nil {
		t.Fatalf("FetchUpdates returned error: %v", err)
	}
	req := (*seen)[0]
	if _, ok := req.Variables["lastCheck"]; ok {
		t.Fatalf("lastCheck sent for zero watermark: %#v", req.Variables)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("Authorization sent without a token")
	}
}

func TestClient_FetchSessionFollowsPages(t *testing.T) {
	t.Parallel()

	server, seen := newGraphQLServer(t, func(op string, vars map[string]any) string {
		switch op {
		case "getSession":
			return `{"data":{"session":{
				"__typename":"Session","sessionId":"sess1","name":"Yela belt",
				"activeMembers":{"items":[{"__typename":"SessionUser","sessionId":"sess1","userId":"u1"}],"nextToken":null},
				"workOrders":{"items":[{"__typename":"ShipMiningOrder","sessionId":"sess1","orderId":"o1"}],"nextToken":"p2"},
				"scouting":{"items":[],"nextToken":null}
			}}}`
		case "getSessionWorkOrders":
			if vars["nextToken"] == "p2" {
				return `{"data":{"session":{"workOrders":{"items":[{"__typename":"SalvageOrder","sessionId":"sess1","orderId":"o2"}],"nextToken":"p3"}}}}`
			}
			return `{"data":{"session":{"workOrders":{"items":[{"__typename":"OtherOrder","sessionId":"sess1","orderId":"o3"}],"nextToken":null}}}}`
		default:
			return `{"errors":[{"message":"unexpected operation"}]}`
		}
	})

	c, err := NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	session, err := c.FetchSession(testContext(t), "sess1")
	if err != nil {
		t.Fatalf("FetchSession returned error: %v", err)
	}
	orders := session.Items("workOrders")
	if len(orders) != 3 {
		t.Fatalf("workOrders = %d items, want 3 after paging", len(orders))
	}
	last, _ := cache.AsFragment(orders[2])
	if last.String("orderId") != "o3" {
		t.Fatalf("last order = %q, want o3", last.String("orderId"))
	}
	coll, _ := cache.AsFragment(session["workOrders"])
	if coll["nextToken"] != nil {
		t.Fatalf("nextToken = %#v, want cleared", coll["nextToken"])
	}
	if len(*seen) != 3 {
		t.Fatalf("requests = %d, want 3", len(*seen))
	}
}

func TestClient_FetchSessionNotFound(t *testing.T) {
	t.Parallel()

	server, _ := newGraphQLServer(t, func(string, map[string]any) string {
		return `{"data":{"session":null}}`
	})
	c, _ := NewClient(server.URL, "")
	_, err := c.FetchSession(testContext(t), "gone")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("FetchSession error = %v, want ErrSessionNotFound", err)
	}
}

func TestClient_GraphQLAndHTTPErrors(t *testing.T) {
	t.Parallel()

	server, _ := newGraphQLServer(t, func(string, map[string]any) string {
		return `{"data":null,"errors":[{"message":"Unauthorized"},{"message":"try again"}]}`
	})
	c, _ := NewClient(server.URL, "")
	_, err := c.FetchUpdates(testContext(t), "sess1", 1)
	var gqlErr *GraphQLError
	if !errors.As(err, &gqlErr) {
		t.Fatalf("error = %v, want *GraphQLError", err)
	}
	if !strings.Contains(gqlErr.Error(), "Unauthorized; try again") {
		t.Fatalf("error = %q, want joined messages", gqlErr.Error())
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(failing.Close)
	c, _ = NewClient(failing.URL, "")
	_, err = c.FetchSession(testContext(t), "sess1")
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("error = %v, want status 502", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if _, err := c.FetchSession(context.Background(), "s"); err == nil {
		t.Fatal("FetchSession on nil client returned nil error")
	}
	if _, err := c.FetchUpdates(context.Background(), "s", 0); err == nil {
		t.Fatal("FetchUpdates on nil client returned nil error")
	}
}
