package sink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ctmesh/wardrive/internal/domain"
)

type capturedRequest struct {
	method string
	path   string
	query  string
	body   []byte
}

func newTestClient(t *testing.T, status int, response string) (*Client, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(server.URL, logger), captured
}

func TestPutRepeater(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, "ok")

	rec := domain.RepeaterUpdate{ID: "ab", Name: "Test Repeater", Lat: 41.61, Lon: -72.77, Path: []string{}}
	if err := client.PutRepeater(context.Background(), rec); err != nil {
		t.Fatalf("put repeater: %v", err)
	}

	if captured.method != http.MethodPost || captured.path != "/put-repeater" {
		t.Fatalf("request %s %s, want POST /put-repeater", captured.method, captured.path)
	}

	var sent map[string]any
	if err := json.Unmarshal(captured.body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["id"] != "ab" || sent["name"] != "Test Repeater" {
		t.Fatalf("sent body %s, want id ab name Test Repeater", captured.body)
	}
	if path, ok := sent["path"].([]any); !ok || len(path) != 0 {
		t.Fatalf("sent path %v, want empty array", sent["path"])
	}
}

func TestPutSample(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, "ok")

	rec := domain.SampleObservation{Lat: 41.6, Lon: -72.7, Path: []string{"f2"}, Observed: true}
	if err := client.PutSample(context.Background(), rec); err != nil {
		t.Fatalf("put sample: %v", err)
	}

	if captured.path != "/put-sample" {
		t.Fatalf("path %s, want /put-sample", captured.path)
	}

	var sent map[string]any
	if err := json.Unmarshal(captured.body, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["observed"] != true {
		t.Fatalf("sent body %s, want observed true", captured.body)
	}
}

func TestPutRepeaterErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.StatusInternalServerError, "boom")

	err := client.PutRepeater(context.Background(), domain.RepeaterUpdate{ID: "ab", Path: []string{}})
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
}

func TestConsolidate(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{"merged": 3}`)

	body, err := client.Consolidate(context.Background())
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}

	if captured.method != http.MethodGet || captured.path != "/consolidate" {
		t.Fatalf("request %s %s, want GET /consolidate", captured.method, captured.path)
	}
	if body != `{"merged": 3}` {
		t.Fatalf("response body %q", body)
	}
}

func TestCleanUpRepeaters(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, "{}")

	if _, err := client.CleanUpRepeaters(context.Background()); err != nil {
		t.Fatalf("clean up: %v", err)
	}

	if captured.path != "/clean-up" || captured.query != "op=repeaters" {
		t.Fatalf("request %s?%s, want /clean-up?op=repeaters", captured.path, captured.query)
	}
}

func TestGetErrorStatusIncludesBody(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadGateway, "upstream down")

	if _, err := client.Consolidate(context.Background()); err == nil {
		t.Fatal("expected error for 502 response, got nil")
	}
}
