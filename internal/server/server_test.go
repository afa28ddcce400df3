package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/config"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/feed"
	"github.com/matzehuels/masonry/pkg/session"
	"github.com/matzehuels/masonry/pkg/virtual"
)

func uniformFeed(n int) *feed.Feed {
	f := &feed.Feed{Name: "uniform"}
	for i := range n {
		f.Items = append(f.Items, feed.Item{Key: fmt.Sprintf("k%d", i), Estimate: 100, Size: 100})
	}
	return f
}

func newTestServer(t *testing.T, c cache.Cache) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	srv := httptest.NewServer(New(config.Default(), c, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, status int, code errors.Code) {
	t.Helper()
	if resp.StatusCode != status {
		t.Errorf("status = %d, want %d", resp.StatusCode, status)
	}
	body := decodeBody[errorBody](t, resp)
	if body.Error.Code != code {
		t.Errorf("code = %s, want %s (%s)", body.Error.Code, code, body.Error.Message)
	}
}

func createSession(t *testing.T, srv *httptest.Server, req createRequest) session.View {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/v1/sessions", req)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	return decodeBody[session.View](t, resp)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp := do(t, http.MethodGet, srv.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeBody[healthResponse](t, resp); got.Status != "ok" || got.Build.Version == "" {
		t.Errorf("health = %+v", got)
	}

	createSession(t, srv, createRequest{Feed: uniformFeed(20), Width: 400, Height: 200, Lanes: 1})
	got := decodeBody[healthResponse](t, do(t, http.MethodGet, srv.URL+"/healthz", nil))
	if got.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", got.Sessions)
	}
	if got.Stats.Layouts == 0 || got.Stats.Requests < 2 {
		t.Errorf("stats = %+v, want layouts and requests counted", got.Stats)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createSession(t, srv, createRequest{Feed: uniformFeed(20), Width: 400, Height: 200, Lanes: 1})
	if view.TotalSize != 2000 {
		t.Errorf("total = %v, want 2000", view.TotalSize)
	}
	base := srv.URL + "/v1/sessions/" + view.ID

	resp := do(t, http.MethodGet, base, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	steps := []struct {
		name   string
		action actionRequest
		offset float64
	}{
		{"scroll to key", actionRequest{Type: ActionScrollToKey, Key: "k5"}, 500},
		{"scroll by", actionRequest{Type: ActionScrollBy, Delta: 100}, 600},
		{"scroll to index", actionRequest{Type: ActionScrollToIndex, Index: 2}, 200},
		{"scroll to", actionRequest{Type: ActionScrollTo, Offset: 300}, 300},
		{"gesture", actionRequest{Type: ActionScroll, Offset: 450}, 450},
		{"advance", actionRequest{Type: ActionAdvance, Duration: "200ms"}, 450},
		{"back to top", actionRequest{Type: ActionScrollTo}, 0},
	}
	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, base+"/actions", tt.action)
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("status = %d: %s", resp.StatusCode, body)
			}
			if got := decodeBody[session.View](t, resp); got.Offset != tt.offset {
				t.Errorf("offset = %v, want %v", got.Offset, tt.offset)
			}
		})
	}

	resp = do(t, http.MethodPost, base+"/actions", actionRequest{Type: ActionSetSize, Key: "k0", Size: 150})
	if got := decodeBody[session.View](t, resp); got.TotalSize != 2050 {
		t.Errorf("total after set-size = %v, want 2050", got.TotalSize)
	}

	resp = do(t, http.MethodGet, base+"/items?offset=420", nil)
	if item := decodeBody[virtual.Item](t, resp); item.Key != "k3" {
		t.Errorf("item at 420 = %+v, want k3", item)
	}

	resp = do(t, http.MethodGet, base+"/items", nil)
	if items := decodeBody[[]virtual.Item](t, resp); len(items) != 20 {
		t.Errorf("items = %d, want 20", len(items))
	}

	resp = do(t, http.MethodDelete, base, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	expectError(t, do(t, http.MethodGet, base, nil), http.StatusNotFound, errors.ErrCodeSessionNotFound)
}

func TestSessionErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createSession(t, srv, createRequest{Feed: uniformFeed(5), Width: 400, Height: 200, Lanes: 1})
	actions := srv.URL + "/v1/sessions/" + view.ID + "/actions"

	tests := []struct {
		name   string
		action actionRequest
		status int
		code   errors.Code
	}{
		{"unknown action", actionRequest{Type: "jump"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"index out of range", actionRequest{Type: ActionScrollToIndex, Index: 9}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"missing key", actionRequest{Type: ActionScrollToKey, Key: "nope"}, http.StatusNotFound, errors.ErrCodeNotFound},
		{"bad align", actionRequest{Type: ActionScrollToKey, Key: "k1", Align: "middle"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad duration", actionRequest{Type: ActionAdvance, Duration: "soon"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad resize", actionRequest{Type: ActionResize, Width: 0, Height: 100}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, do(t, http.MethodPost, actions, tt.action), tt.status, tt.code)
		})
	}

	t.Run("unknown session", func(t *testing.T) {
		expectError(t, do(t, http.MethodGet, srv.URL+"/v1/sessions/"+"6f1c1a34-0c1e-4b8e-9a55-1d7d5f1e2a10", nil),
			http.StatusNotFound, errors.ErrCodeSessionNotFound)
	})
	t.Run("duplicate keys", func(t *testing.T) {
		f := uniformFeed(2)
		f.Items[1].Key = "k0"
		expectError(t, do(t, http.MethodPost, srv.URL+"/v1/sessions", createRequest{Feed: f, Width: 400, Height: 200}),
			http.StatusBadRequest, errors.ErrCodeInvalidFeed)
	})
	t.Run("missing feed", func(t *testing.T) {
		expectError(t, do(t, http.MethodPost, srv.URL+"/v1/sessions", createRequest{Width: 400, Height: 200}),
			http.StatusBadRequest, errors.ErrCodeInvalidFeed)
	})
	t.Run("unknown field", func(t *testing.T) {
		expectError(t, do(t, http.MethodPost, srv.URL+"/v1/sessions", map[string]any{"colour": "red"}),
			http.StatusBadRequest, errors.ErrCodeInvalidInput)
	})
}

func TestSessionBreakpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createSession(t, srv, createRequest{Feed: uniformFeed(30), Width: 500, Height: 400})
	if view.Breakpoint != "mobile" || view.Lanes != 1 {
		t.Errorf("breakpoint = %s/%d, want mobile/1", view.Breakpoint, view.Lanes)
	}

	resp := do(t, http.MethodPost, srv.URL+"/v1/sessions/"+view.ID+"/actions",
		actionRequest{Type: ActionResize, Width: 1100, Height: 400})
	got := decodeBody[session.View](t, resp)
	if got.Breakpoint != "desktop" || got.Lanes != 3 {
		t.Errorf("breakpoint = %s/%d, want desktop/3", got.Breakpoint, got.Lanes)
	}
}

func TestSessionResume(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, c)
	const id = "0b5e7c2e-3d4f-4a51-8c1a-2f9e6d7b8a90"

	createSession(t, srv, createRequest{ID: id, Feed: uniformFeed(20), Width: 400, Height: 200, Lanes: 1})
	do(t, http.MethodPost, srv.URL+"/v1/sessions/"+id+"/actions", actionRequest{Type: ActionScrollTo, Offset: 400})
	if resp := do(t, http.MethodDelete, srv.URL+"/v1/sessions/"+id, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	view := createSession(t, srv, createRequest{ID: id, Feed: uniformFeed(20), Width: 400, Height: 200, Lanes: 1})
	if view.Offset != 400 {
		t.Errorf("resumed offset = %v, want 400", view.Offset)
	}
}

func TestLayout(t *testing.T) {
	srv := newTestServer(t, nil)
	req := layoutRequest{Feed: uniformFeed(20)}
	req.Options.Width = 400
	req.Options.Height = 200
	req.Options.Lanes = 1

	resp := do(t, http.MethodPost, srv.URL+"/v1/layout", req)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	got := decodeBody[layoutResponse](t, resp)
	if got.Layout.View.TotalSize != 2000 || got.FeedHash == "" {
		t.Errorf("layout = total %v hash %q", got.Layout.View.TotalSize, got.FeedHash)
	}

	resp = do(t, http.MethodPost, srv.URL+"/v1/layout?format=svg", req)
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "<svg") {
		t.Errorf("body = %.40q", body)
	}

	req.Options.Lanes = 99
	expectError(t, do(t, http.MethodPost, srv.URL+"/v1/layout", req), http.StatusBadRequest, errors.ErrCodeInvalidInput)
}
