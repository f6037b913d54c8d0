package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/narvanalabs/builder-dashboard/internal/models"
)

// TestWriteErrorPassthrough verifies that a rejected write surfaces the backend's
// error field verbatim, whatever the status code.
func TestWriteErrorPassthrough(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("backend error messages are passed through unchanged", prop.ForAll(
		func(message string, status int) bool {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]string{"error": message})
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.Execute(context.Background(), ExecuteRequest{BuilderID: "b1", Backend: "codex"})

			want := message
			if want == "" {
				want = MsgExecuteFailed
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				return false
			}
			return apiErr.StatusCode == status && err.Error() == want
		},
		gen.AlphaString(),
		gen.IntRange(400, 599),
	))

	properties.TestingRun(t)
}

func TestExecuteSendsEmptyPayloadObject(t *testing.T) {
	var got map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/execute" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"execution":{"id":"e1","status":"running"}}`)
	}))
	defer server.Close()

	exec, err := NewClient(server.URL).Execute(context.Background(), ExecuteRequest{BuilderID: "b1", Backend: "codex"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if exec.ID != "e1" || exec.Status != models.ExecutionStatusRunning {
		t.Errorf("unexpected execution %+v", exec)
	}
	if string(got["payload"]) != "{}" {
		t.Errorf("expected payload {}, got %s", got["payload"])
	}
}

func TestRegisterBuilderFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).RegisterBuilder(context.Background(), RegisterBuilderRequest{Name: "x"})
	if err == nil || err.Error() != MsgRegisterFailed {
		t.Errorf("expected %q, got %v", MsgRegisterFailed, err)
	}
}

func TestWriteUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "<html>oops</html>")
	}))
	defer server.Close()

	_, err := NewClient(server.URL).RegisterBuilder(context.Background(), RegisterBuilderRequest{Name: "x"})
	var apiErr *APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Errorf("expected a decode error, got %v", err)
	}
}

func TestReadsReturnStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "down")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ListActivity(context.Background())

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Body != "down" {
		t.Errorf("unexpected error %+v", statusErr)
	}
}

func TestGetStatusEscapesID(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		io.WriteString(w, `{"execution":{"id":"a/b","logs":["x"]}}`)
	}))
	defer server.Close()

	exec, err := NewClient(server.URL+"/").GetStatus(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if path != "/api/status/a%2Fb" {
		t.Errorf("unexpected path %q", path)
	}
	if len(exec.Logs) != 1 {
		t.Errorf("unexpected execution %+v", exec)
	}
}

func TestListEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/activity":
			io.WriteString(w, `{"activity":[{"type":"log","timestamp":1.5,"message":"m"}]}`)
		case "/api/executions":
			io.WriteString(w, `{"executions":[{"id":"e1"},{"id":"e2"}]}`)
		case "/api/builders":
			io.WriteString(w, `{"builders":[{"id":"b1","name":"gcc"}]}`)
		case "/health":
			io.WriteString(w, `{"status":"healthy"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	activity, err := client.ListActivity(ctx)
	if err != nil || len(activity) != 1 || activity[0].Message != "m" || activity[0].Timestamp != 1.5 {
		t.Errorf("ListActivity: %v %+v", err, activity)
	}
	executions, err := client.ListExecutions(ctx)
	if err != nil || len(executions) != 2 {
		t.Errorf("ListExecutions: %v %+v", err, executions)
	}
	builders, err := client.ListBuilders(ctx)
	if err != nil || len(builders) != 1 || builders[0].Name != "gcc" {
		t.Errorf("ListBuilders: %v %+v", err, builders)
	}
	if report, err := client.Health(ctx); err != nil || report.Status != "healthy" {
		t.Errorf("Health: %v %+v", err, report)
	}
}

func TestHealthUnhealthyReturnsReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"status":"unhealthy","components":{"store":{"status":"unhealthy","message":"connection refused"}}}`)
	}))
	defer server.Close()

	report, err := NewClient(server.URL).Health(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected a 503 StatusError, got %v", err)
	}
	if report == nil || report.Status != "unhealthy" || report.Components["store"].Message != "connection refused" {
		t.Errorf("expected the unhealthy report, got %+v", report)
	}
}
