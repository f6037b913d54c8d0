package dashboard_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/narvanalabs/builder-dashboard/internal/dashboard"
	"github.com/narvanalabs/builder-dashboard/internal/dashboard/memview"
	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
	"github.com/narvanalabs/builder-dashboard/web/api"
)

// fakeBackend is an httptest backend that serves canned responses and records
// every request it receives.
type fakeBackend struct {
	mu         sync.Mutex
	activity   []models.ActivityItem
	executions []models.Execution
	status     map[string]models.Execution
	failReads  bool

	// postStatus and postBody answer POST requests when set.
	postStatus int
	postBody   string

	hits   map[string]int
	bodies map[string][]byte
}

func newFakeBackend(t *testing.T) (*fakeBackend, *api.Client) {
	t.Helper()
	fb := &fakeBackend{
		status: map[string]models.Execution{},
		hits:   map[string]int{},
		bodies: map[string][]byte{},
	}
	server := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(server.Close)
	return fb, api.NewClient(server.URL)
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	fb.mu.Lock()
	defer fb.mu.Unlock()

	key := r.Method + " " + r.URL.EscapedPath()
	fb.hits[key]++
	fb.bodies[key] = body

	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodPost {
		status := fb.postStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, fb.postBody)
		return
	}

	if fb.failReads {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
		return
	}

	switch {
	case r.URL.Path == "/api/activity":
		_ = json.NewEncoder(w).Encode(api.ActivityResponse{Activity: fb.activity})
	case r.URL.Path == "/api/executions":
		_ = json.NewEncoder(w).Encode(api.ExecutionsResponse{Executions: fb.executions})
	default:
		id := strings.TrimPrefix(r.URL.Path, "/api/status/")
		exec, ok := fb.status[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Execution not found"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(api.ExecutionResponse{Execution: &exec})
	}
}

func (fb *fakeBackend) count(key string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[key]
}

func (fb *fakeBackend) total() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.hits {
		n += c
	}
	return n
}

func (fb *fakeBackend) body(key string) []byte {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[key]
}

func (fb *fakeBackend) set(fn func(fb *fakeBackend)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(fb)
}

func newTestPage(doc dashboard.Document, client dashboard.API) *dashboard.Page {
	return dashboard.NewPage(doc, client, dashboard.WithLogger(logger.Discard().Logger))
}

func textOf(doc *memview.Document, selector string) string {
	return doc.Get(selector).Text()
}

func classOf(doc *memview.Document, selector string) string {
	return doc.Get(selector).Class()
}
