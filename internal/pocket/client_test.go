package pocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kazuph/mcp-pocket/internal/errortypes"
	"github.com/kazuph/mcp-pocket/internal/telemetry"
)

var testCreds = Credentials{ConsumerKey: "ck-test", AccessToken: "at-test"}

func newTestClient(srv *mockPocket, opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	return NewClient(testCreds, opts...)
}

func TestClampCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{1, 1},
		{7, 7},
		{20, 20},
		{21, 20},
		{500, 20},
		{0, 1},
		{-3, 1},
	}

	for _, tt := range tests {
		if got := ClampCount(tt.in); got != tt.want {
			t.Errorf("ClampCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFetchArticlesRequest(t *testing.T) {
	tests := []struct {
		name      string
		mode      Mode
		count     int
		wantCount float64
		wantState string
	}{
		{"unread default", ModeUnread, DefaultCount, 20, "unread"},
		{"unread small", ModeUnread, 5, 5, "unread"},
		{"unread clamped", ModeUnread, 50, 20, "unread"},
		{"all mode has no state filter", ModeAll, 3, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := MockServer(t, MockResponseConfig{
				StatusCode:   http.StatusOK,
				ResponseBody: `{"status":1,"list":[]}`,
			})
			client := newTestClient(srv, WithMode(tt.mode))

			if _, err := client.FetchArticles(context.Background(), tt.count); err != nil {
				t.Fatalf("FetchArticles returned error: %v", err)
			}

			reqs := srv.Requests()
			if len(reqs) != 1 {
				t.Fatalf("Expected 1 upstream request, got %d", len(reqs))
			}
			req := reqs[0]

			if req.Method != http.MethodPost || req.Path != "/get" {
				t.Errorf("Expected POST /get, got %s %s", req.Method, req.Path)
			}
			if ct := req.Headers.Get("Content-Type"); ct != "application/json; charset=UTF-8" {
				t.Errorf("Unexpected Content-Type %q", ct)
			}
			if xa := req.Headers.Get("X-Accept"); xa != "application/json" {
				t.Errorf("Unexpected X-Accept %q", xa)
			}

			body := req.Body
			if body["consumer_key"] != "ck-test" || body["access_token"] != "at-test" {
				t.Errorf("Credentials missing from body: %v", body)
			}
			if body["count"] != tt.wantCount {
				t.Errorf("Expected count %v, got %v", tt.wantCount, body["count"])
			}
			if body["sort"] != "newest" || body["detailType"] != "complete" {
				t.Errorf("Unexpected sort/detailType: %v", body)
			}
			state, hasState := body["state"]
			if tt.wantState == "" && hasState {
				t.Errorf("Expected no state filter, got %v", state)
			}
			if tt.wantState != "" && state != tt.wantState {
				t.Errorf("Expected state %q, got %v", tt.wantState, state)
			}
		})
	}
}

func TestFetchArticlesNormalization(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{
		StatusCode: http.StatusOK,
		ResponseBody: `{"status":1,"list":{
			"42":{"item_id":"42","resolved_title":"A","given_title":"ignored","resolved_url":"http://x","excerpt":"B"},
			"43":{"item_id":"43","resolved_title":"","given_title":"Given","excerpt":"C"},
			"44":{"item_id":"44"}
		}}`,
	})
	client := newTestClient(srv)

	articles, err := client.FetchArticles(context.Background(), DefaultCount)
	if err != nil {
		t.Fatalf("FetchArticles returned error: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("Expected 3 articles, got %d", len(articles))
	}

	byID := make(map[string]Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}

	want := map[string]Article{
		"42": {ID: "42", Title: "A", URL: "http://x", Excerpt: "B"},
		"43": {ID: "43", Title: "Given", URL: "", Excerpt: "C"},
		"44": {ID: "44", Title: "", URL: "", Excerpt: ""},
	}
	for id, w := range want {
		if got, ok := byID[id]; !ok || got != w {
			t.Errorf("Article %s = %+v, want %+v", id, got, w)
		}
	}
}

func TestFetchArticlesOmitsIDsInAllMode(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{
		StatusCode:   http.StatusOK,
		ResponseBody: `{"list":{"42":{"item_id":"42","resolved_title":"A"}}}`,
	})
	client := newTestClient(srv, WithMode(ModeAll))

	articles, err := client.FetchArticles(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchArticles returned error: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != "" || articles[0].Title != "A" {
		t.Errorf("Unexpected articles: %+v", articles)
	}
}

func TestFetchArticlesKeepsDocumentOrder(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{
		StatusCode: http.StatusOK,
		ResponseBody: `{"list":{
			"1":{"item_id":"1","sort_id":2},
			"2":{"item_id":"2","sort_id":0},
			"3":{"item_id":"3","sort_id":1}
		}}`,
	})
	client := newTestClient(srv)

	articles, err := client.FetchArticles(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchArticles returned error: %v", err)
	}

	var ids []string
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, ",") != "1,2,3" {
		t.Errorf("Expected document order 1,2,3, got %v", ids)
	}
}

func TestFetchArticlesEmptyAndNullList(t *testing.T) {
	for _, body := range []string{`{"list":[]}`, `{"list":null}`, `{"list":{}}`, `{}`} {
		srv := MockServer(t, MockResponseConfig{StatusCode: http.StatusOK, ResponseBody: body})
		articles, err := newTestClient(srv).FetchArticles(context.Background(), 5)
		if err != nil {
			t.Errorf("body %s: unexpected error %v", body, err)
			continue
		}
		if len(articles) != 0 {
			t.Errorf("body %s: expected no articles, got %d", body, len(articles))
		}
	}
}

func TestFetchArticlesMalformedBody(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{StatusCode: http.StatusOK, ResponseBody: `{"list":"nope"}`})

	_, err := newTestClient(srv).FetchArticles(context.Background(), 5)
	if err == nil {
		t.Fatal("Expected error for malformed body")
	}
	if errortypes.TypeOf(err) != errortypes.ErrorTypeExternal {
		t.Errorf("Expected external error, got %q (%v)", errortypes.TypeOf(err), err)
	}
}

func TestUpstreamStatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		headers    map[string]string
		call       func(*Client) error
		wantPrefix string
		wantText   string
	}{
		{
			name:   "fetch unauthorized",
			status: http.StatusUnauthorized,
			call: func(c *Client) error {
				_, err := c.FetchArticles(context.Background(), 5)
				return err
			},
			wantPrefix: "Pocket API request failed: ",
			wantText:   "Unauthorized",
		},
		{
			name:    "fetch with x-error detail",
			status:  http.StatusForbidden,
			headers: map[string]string{"X-Error": "Invalid consumer key."},
			call: func(c *Client) error {
				_, err := c.FetchArticles(context.Background(), 5)
				return err
			},
			wantPrefix: "Pocket API request failed: ",
			wantText:   "Forbidden (Invalid consumer key.)",
		},
		{
			name:   "archive server error",
			status: http.StatusServiceUnavailable,
			call: func(c *Client) error {
				return c.MarkAsRead(context.Background(), "42")
			},
			wantPrefix: "Failed to mark article as read: ",
			wantText:   "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := MockServer(t, MockResponseConfig{StatusCode: tt.status, Headers: tt.headers})
			err := tt.call(newTestClient(srv))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, ErrRequestFailed) {
				t.Errorf("Expected errors.Is(err, ErrRequestFailed), got %v", err)
			}
			if !errortypes.IsAPIError(err) {
				t.Errorf("Expected API error type, got %q", errortypes.TypeOf(err))
			}
			if want := tt.wantPrefix + tt.wantText; err.Error() != want {
				t.Errorf("Expected message %q, got %q", want, err.Error())
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
				t.Errorf("Expected StatusError with code %d, got %v", tt.status, err)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{StatusCode: http.StatusOK})
	client := newTestClient(srv)
	srv.Close()

	_, err := client.FetchArticles(context.Background(), 5)
	if err == nil {
		t.Fatal("Expected error from closed server")
	}
	if !errortypes.IsNetworkError(err) {
		t.Errorf("Expected network error, got %q (%v)", errortypes.TypeOf(err), err)
	}
	if errors.Is(err, ErrRequestFailed) {
		t.Error("Transport failures must not match ErrRequestFailed")
	}
}

func TestMarkAsRead(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{
		StatusCode:   http.StatusOK,
		ResponseBody: `{"status":1,"action_results":[true]}`,
	})
	client := newTestClient(srv)

	if err := client.MarkAsRead(context.Background(), "42"); err != nil {
		t.Fatalf("MarkAsRead returned error: %v", err)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected exactly 1 upstream request, got %d", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || reqs[0].Path != "/send" {
		t.Errorf("Expected POST /send, got %s %s", reqs[0].Method, reqs[0].Path)
	}

	body := reqs[0].Body
	if body["consumer_key"] != "ck-test" || body["access_token"] != "at-test" {
		t.Errorf("Credentials missing from body: %v", body)
	}
	actions, ok := body["actions"].([]interface{})
	if !ok || len(actions) != 1 {
		t.Fatalf("Expected a single action, got %v", body["actions"])
	}
	act, _ := actions[0].(map[string]interface{})
	if act["action"] != "archive" || act["item_id"] != "42" {
		t.Errorf("Expected archive action for 42, got %v", act)
	}
}

func TestMarkAsReadUnsupportedInAllMode(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{StatusCode: http.StatusOK})
	client := newTestClient(srv, WithMode(ModeAll))

	err := client.MarkAsRead(context.Background(), "42")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Expected ErrUnsupported, got %v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("Expected no upstream request, got %d", n)
	}
}

func TestClientRecordsMetrics(t *testing.T) {
	srv := MockServer(t, MockResponseConfig{StatusCode: http.StatusOK, ResponseBody: `{"list":[]}`})
	metrics := telemetry.NewMetricsCollector()
	client := newTestClient(srv, WithMetrics(metrics))

	client.FetchArticles(context.Background(), 1)
	client.MarkAsRead(context.Background(), "1")

	if metrics.GetCounter(telemetry.MetricRequestsGet) != 1 {
		t.Errorf("Expected 1 get request recorded")
	}
	if metrics.GetCounter(telemetry.MetricRequestsSend) != 1 {
		t.Errorf("Expected 1 send request recorded")
	}
	if metrics.GetCounter(telemetry.MetricRequestsSuccess) != 2 {
		t.Errorf("Expected 2 successes, got %d", metrics.GetCounter(telemetry.MetricRequestsSuccess))
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeUnread, false},
		{"unread", ModeUnread, false},
		{" ALL ", ModeAll, false},
		{"archive", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
