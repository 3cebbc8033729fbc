package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/store"
	"github.com/Suryanshpandey5492/WebVision/pkg/store/memory"
)

type fakeRunner struct {
	mu     sync.Mutex
	tasks  []string
	result agent.Result
	err    error
}

func (f *fakeRunner) RunTask(_ context.Context, task string, _ ...agent.RunOption) (agent.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return f.result, f.err
}

type failingStore struct{ store.Store }

func (failingStore) Get(context.Context, string) (store.Run, error) {
	return store.Run{}, errors.New("db down")
}

func (failingStore) List(context.Context, int) ([]store.Run, error) {
	return nil, errors.New("db down")
}

func (failingStore) Save(context.Context, store.Run) error { return errors.New("db down") }

func newTestServer(t *testing.T, r agent.Runner, st store.Store) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(r, st).Router())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, memory.New())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	decode(t, resp, &payload)
	assert.Equal(t, "ok", payload["status"])
}

func TestQuery(t *testing.T) {
	answered := agent.Result{RunID: "run-1", Answer: state.String("Paris"), Steps: 4, Duration: time.Second}

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		wantError   string
		wantTask    string
	}{
		{name: "form", contentType: "application/x-www-form-urlencoded", body: url.Values{"query": {"capital of France"}}.Encode(), status: http.StatusOK, wantTask: "capital of France"},
		{name: "json", contentType: "application/json", body: `{"query":"  capital of France "}`, status: http.StatusOK, wantTask: "capital of France"},
		{name: "json with charset", contentType: "application/json; charset=utf-8", body: `{"query":"capital of France"}`, status: http.StatusOK, wantTask: "capital of France"},
		{name: "empty form", contentType: "application/x-www-form-urlencoded", body: "", status: http.StatusBadRequest, wantError: MsgEmptyQuery},
		{name: "blank json", contentType: "application/json", body: `{"query":"   "}`, status: http.StatusBadRequest, wantError: MsgEmptyQuery},
		{name: "empty json body", contentType: "application/json", body: "", status: http.StatusBadRequest, wantError: MsgEmptyQuery},
		{name: "bad json", contentType: "application/json", body: `{"query":`, status: http.StatusBadRequest, wantError: "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: answered}
			st := memory.New()
			srv := newTestServer(t, runner, st)

			resp, err := http.Post(srv.URL+"/query", tt.contentType, strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.wantError != "" {
				var payload map[string]string
				decode(t, resp, &payload)
				assert.Contains(t, payload["error"], tt.wantError)
				assert.Empty(t, runner.tasks)
				return
			}

			var payload queryResponse
			decode(t, resp, &payload)
			require.NotNil(t, payload.Response.FinalAnswer)
			assert.Equal(t, "Paris", *payload.Response.FinalAnswer)
			assert.Nil(t, payload.Response.Errors)
			assert.Equal(t, "run-1", payload.RunID)
			assert.Regexp(t, `^\d+\.\d{2}$`, payload.ExecutionTime)
			assert.Equal(t, []string{tt.wantTask}, runner.tasks)

			saved, err := st.Get(context.Background(), "run-1")
			require.NoError(t, err)
			assert.Equal(t, store.StatusDone, saved.Status)
			assert.Equal(t, tt.wantTask, saved.Task)
		})
	}
}

func TestQueryRunFailedToStart(t *testing.T) {
	runner := &fakeRunner{
		result: agent.Result{RunID: "run-2", Errors: state.String(agent.MsgNoPage)},
		err:    agent.ErrSessionUnavailable,
	}
	st := memory.New()
	srv := newTestServer(t, runner, st)

	resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader(`{"query":"q"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var payload queryResponse
	decode(t, resp, &payload)
	assert.Nil(t, payload.Response.FinalAnswer)
	require.NotNil(t, payload.Response.Errors)
	assert.Equal(t, agent.MsgNoPage, *payload.Response.Errors)

	saved, err := st.Get(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, saved.Status)
}

func TestQueryStoreFailureStillAnswers(t *testing.T) {
	runner := &fakeRunner{result: agent.Result{RunID: "run-3", Answer: state.String("ok")}}
	srv := newTestServer(t, runner, failingStore{})

	resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader(`{"query":"q"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestGetRun(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.Save(context.Background(), store.Run{ID: "abc", Task: "t", Status: store.StatusDone, Answer: state.String("42")}))
	srv := newTestServer(t, &fakeRunner{}, st)

	resp, err := http.Get(srv.URL + "/runs/abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var run store.Run
	decode(t, resp, &run)
	assert.Equal(t, "abc", run.ID)
	assert.Equal(t, "42", *run.Answer)

	resp, err = http.Get(srv.URL + "/runs/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListRuns(t *testing.T) {
	st := memory.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.Save(context.Background(), store.Run{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	srv := newTestServer(t, &fakeRunner{}, st)

	resp, err := http.Get(srv.URL + "/runs?limit=2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Runs []store.Run `json:"runs"`
	}
	decode(t, resp, &payload)
	require.Len(t, payload.Runs, 2)
	assert.Equal(t, "c", payload.Runs[0].ID)

	resp, err = http.Get(srv.URL + "/runs?limit=-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStoreErrors(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, failingStore{})

	for _, path := range []string{"/runs/x", "/runs"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestListenAndServeShutsDownOnCancel(t *testing.T) {
	s := New(&fakeRunner{}, memory.New())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
