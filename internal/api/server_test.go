package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/narvanalabs/builder-dashboard/internal/backend"
	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
	"github.com/narvanalabs/builder-dashboard/internal/store/memory"
	"github.com/narvanalabs/builder-dashboard/pkg/config"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	if err := st.Builders().Seed(context.Background(), store.DemoBuilders); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	log := logger.Discard()
	cfg := config.LoadWithDefaults()
	cfg.Dashboard.Timezone = "UTC"

	srv, err := NewServer(cfg, st, backend.NewRegistry(st.Executions(), log.Logger), log)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func postJSON(t *testing.T, url, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode, out
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp.StatusCode
}

func errorOf(t *testing.T, body map[string]json.RawMessage) string {
	t.Helper()
	var msg string
	if err := json.Unmarshal(body["error"], &msg); err != nil {
		t.Fatalf("response has no error field: %v", body)
	}
	return msg
}

func firstBuilderID(t *testing.T, st *memory.Store) string {
	t.Helper()
	builders, err := st.Builders().List(context.Background())
	if err != nil || len(builders) == 0 {
		t.Fatalf("no builders: %v", err)
	}
	return builders[0].ID
}

func TestListBuildersReturnsSeeds(t *testing.T) {
	ts, _ := newTestServer(t)

	var resp struct {
		Builders []models.Builder `json:"builders"`
	}
	if code := getJSON(t, ts.URL+"/api/builders", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(resp.Builders) != 2 || resp.Builders[0].Name != "Summarizer" {
		t.Errorf("unexpected builders %+v", resp.Builders)
	}
}

func TestCreateBuilder(t *testing.T) {
	ts, _ := newTestServer(t)

	code, body := postJSON(t, ts.URL+"/api/builders", `{"name":"gcc-arm","description":"cross","metadata":{"arch":"arm64"}}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var b models.Builder
	if err := json.Unmarshal(body["builder"], &b); err != nil {
		t.Fatalf("decoding builder: %v", err)
	}
	if b.ID == "" || b.Name != "gcc-arm" || b.Metadata["arch"] != "arm64" {
		t.Errorf("unexpected builder %+v", b)
	}

	var activity struct {
		Activity []models.ActivityItem `json:"activity"`
	}
	getJSON(t, ts.URL+"/api/activity", &activity)
	last := activity.Activity[len(activity.Activity)-1]
	if last.Type != models.ActivityBuilderRegistered || last.BuilderID != b.ID {
		t.Errorf("unexpected activity %+v", last)
	}
}

func TestCreateBuilderDefaultName(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := postJSON(t, ts.URL+"/api/builders", `{}`)
	var b models.Builder
	json.Unmarshal(body["builder"], &b)
	if b.Name != models.DefaultBuilderName {
		t.Errorf("expected %q, got %q", models.DefaultBuilderName, b.Name)
	}
}

func TestCreateBuilderRejectsNonObject(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, body := range []string{`[1,2]`, `not json`, ``} {
		code, resp := postJSON(t, ts.URL+"/api/builders", body)
		if code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", body, code)
		}
		errorOf(t, resp)
	}
}

func TestExecuteLifecycle(t *testing.T) {
	ts, st := newTestServer(t)
	builderID := firstBuilderID(t, st)

	code, body := postJSON(t, ts.URL+"/api/execute", fmt.Sprintf(`{"builder_id":%q,"backend":"agentkit","payload":{"doc":"x"}}`, builderID))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	var exec models.Execution
	if err := json.Unmarshal(body["execution"], &exec); err != nil {
		t.Fatalf("decoding execution: %v", err)
	}
	if exec.Status != models.ExecutionStatusRunning {
		t.Errorf("expected running, got %s", exec.Status)
	}
	if len(exec.Logs) != 1 || exec.Logs[0] != "Execution started" {
		t.Errorf("unexpected logs %v", exec.Logs)
	}
	if exec.Metadata["backend"] != "agentkit" || exec.Metadata["accepted"] != true {
		t.Errorf("unexpected metadata %v", exec.Metadata)
	}

	var status struct {
		Execution models.Execution `json:"execution"`
	}
	if code := getJSON(t, ts.URL+"/api/status/"+exec.ID, &status); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if status.Execution.ID != exec.ID {
		t.Errorf("unexpected status %+v", status.Execution)
	}

	var list struct {
		Executions []models.Execution `json:"executions"`
	}
	getJSON(t, ts.URL+"/api/executions", &list)
	if len(list.Executions) != 1 {
		t.Errorf("expected 1 execution, got %d", len(list.Executions))
	}

	var activity struct {
		Activity []models.ActivityItem `json:"activity"`
	}
	getJSON(t, ts.URL+"/api/activity", &activity)
	n := len(activity.Activity)
	if n < 2 || activity.Activity[n-2].Type != models.ActivityExecutionCreated || activity.Activity[n-1].Message != "Execution started" {
		t.Errorf("unexpected activity tail %+v", activity.Activity)
	}
}

func TestExecuteDefaultsToCodex(t *testing.T) {
	ts, st := newTestServer(t)

	_, body := postJSON(t, ts.URL+"/api/execute", fmt.Sprintf(`{"builder_id":%q}`, firstBuilderID(t, st)))
	var exec models.Execution
	json.Unmarshal(body["execution"], &exec)
	if exec.Metadata["backend"] != backend.DefaultName {
		t.Errorf("expected codex backend, got %v", exec.Metadata["backend"])
	}
}

func TestExecuteErrors(t *testing.T) {
	ts, st := newTestServer(t)
	builderID := firstBuilderID(t, st)

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"missing builder", `{"backend":"codex"}`, http.StatusBadRequest, "builder_id is required"},
		{"unknown backend", fmt.Sprintf(`{"builder_id":%q,"backend":"nope"}`, builderID), http.StatusNotFound, "Unknown backend: nope"},
		{"unknown builder", `{"builder_id":"ghost"}`, http.StatusNotFound, "Unknown builder: ghost"},
		{"array payload", fmt.Sprintf(`{"builder_id":%q,"payload":[1]}`, builderID), http.StatusBadRequest, "payload must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := postJSON(t, ts.URL+"/api/execute", tt.body)
			if code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, code)
			}
			if msg := errorOf(t, body); msg != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, msg)
			}
		})
	}
}

func TestStatusUnknownExecution(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]string
	if code := getJSON(t, ts.URL+"/api/status/missing", &body); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if body["error"] != "Execution not found" || body["code"] != "not_found" {
		t.Errorf("unexpected body %v", body)
	}
}

// TestPropertyActivityCapped verifies that the activity endpoint returns at most
// the 50 most recent items.
func TestPropertyActivityCapped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("activity never exceeds the limit", prop.ForAll(
		func(n int) bool {
			ts, _ := newTestServer(t)
			for i := 0; i < n; i++ {
				resp, err := http.Post(ts.URL+"/api/builders", "application/json", bytes.NewBufferString(fmt.Sprintf(`{"name":"b%d"}`, i)))
				if err != nil {
					return false
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			var activity struct {
				Activity []models.ActivityItem `json:"activity"`
			}
			getJSON(t, ts.URL+"/api/activity", &activity)

			want := n
			if want > store.DefaultActivityLimit {
				want = store.DefaultActivityLimit
			}
			if len(activity.Activity) != want {
				return false
			}
			return n == 0 || activity.Activity[want-1].Name == fmt.Sprintf("b%d", n-1)
		},
		gen.IntRange(0, 70),
	))

	properties.TestingRun(t)
}

func TestPages(t *testing.T) {
	ts, st := newTestServer(t)
	builderID := firstBuilderID(t, st)

	for _, path := range []string{"/", "/builders", "/activity"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `id="activity-feed"`) {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}

	_, body := postJSON(t, ts.URL+"/api/execute", fmt.Sprintf(`{"builder_id":%q}`, builderID))
	var exec models.Execution
	json.Unmarshal(body["execution"], &exec)

	resp, err := http.Get(ts.URL + "/status/" + exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(page), `data-execution-id="`+exec.ID+`"`) || !strings.Contains(string(page), "Summarizer") {
		t.Errorf("status page does not describe the execution")
	}
}

func TestPagesRenderActivityFeed(t *testing.T) {
	ts, _ := newTestServer(t)
	postJSON(t, ts.URL+"/api/builders", `{"name":"gcc-arm"}`)

	for _, path := range []string{"/", "/builders", "/activity"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(body), "</strong> Builder registered: gcc-arm</p>") {
			t.Errorf("%s: activity feed does not show the registration", path)
		}
	}
}

func TestStatusPageRedirectsUnknown(t *testing.T) {
	ts, _ := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(ts.URL + "/status/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Errorf("expected redirect to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Status     string                    `json:"status"`
		Components map[string]map[string]any `json:"components"`
	}
	if code := getJSON(t, ts.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body.Status != "healthy" || body.Components["store"] == nil || body.Components["backends"] == nil {
		t.Errorf("unexpected health %+v", body)
	}
}
