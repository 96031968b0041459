package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/becomeliminal/salesdesk/agents"
	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/engine"
	"github.com/becomeliminal/salesdesk/memory"
)

// taskAgent echoes its task name and payload.
type taskAgent struct {
	task core.TaskType
	err  error
}

func (a taskAgent) Name() string { return string(a.task) }

func (a taskAgent) Capabilities() core.Capabilities {
	return core.Capabilities{Description: "test agent for " + string(a.task)}
}

func (a taskAgent) Execute(_ context.Context, in core.Input) (core.Result, error) {
	if a.err != nil {
		return nil, a.err
	}
	return core.Result{"handled_by": string(a.task), "input": map[string]any(in)}, nil
}

type fakeIndexer struct {
	leads []agents.Lead
	err   error
}

func (f *fakeIndexer) IndexLead(_ context.Context, l agents.Lead) (int, string, error) {
	if f.err != nil {
		return 0, "", f.err
	}
	f.leads = append(f.leads, l)
	return len(f.leads) - 1, "lead-1", nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *memory.SharedMemory) {
	t.Helper()

	cfg := memory.DefaultConfig()
	cfg.Dimension = 4
	mem, err := memory.New(cfg)
	require.NoError(t, err)

	reg := engine.NewRegistry()
	for _, task := range core.KnownTasks {
		require.NoError(t, reg.Register(task, taskAgent{task: task}))
	}
	require.NoError(t, reg.Register(core.TaskLeadScoring, taskAgent{task: core.TaskLeadScoring, err: errors.New("model offline")}))

	return New(engine.NewEngine(reg), mem, opts...), mem
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestTasks_RoutesByContent(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec, out := do(t, h, http.MethodPost, "/tasks", `{"requirements":"please draft a proposal"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "proposal_drafting", out["task_type"])

	meta := out["metadata"].(map[string]any)
	assert.NotEmpty(t, meta["request_id"])
	assert.NotEmpty(t, meta["timestamp"])
}

func TestTasks_ErrorEnvelope(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec, out := do(t, h, http.MethodPost, "/tasks", `{"lead_info":{"name":"Acme"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "lead_scoring", out["task_type"])
	assert.Contains(t, out["message"], "model offline")

	rec, out = do(t, h, http.MethodPost, "/tasks", `{"task":"renewal_review"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, out["message"], "renewal_review")
}

func TestTasks_BadBody(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, body := range []string{"", "{", `[1,2]`} {
		rec, out := do(t, h, http.MethodPost, "/tasks", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "error", out["status"])
	}

	rec, _ := do(t, h, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestForcedRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		path string
		body string
		want string
	}{
		{"/process-meeting", `{"audio_path":"/tmp/call.wav","source":"zoom"}`, "meeting_summary"},
		{"/lead-suggestions", `{"requirements":"mid-market fintech","top_k":3}`, "lead_recommendation"},
		{"/lead-suggestions", `{"query_vector":[1,0,0,0]}`, "lead_recommendation"},
		// Content would route to meeting_summary; the path wins.
		{"/proposal", `{"requirements":"CRM rollout","audio":"x.wav"}`, "proposal_drafting"},
		{"/follow-up", `{"lead_id":7,"follow_up_time":"2024-06-01T09:00:00Z"}`, "follow_up"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, out := do(t, h, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, out["task_type"])
			result := out["result"].(map[string]any)
			assert.Equal(t, tt.want, result["handled_by"])
		})
	}
}

func TestForcedRoutes_Validation(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		path  string
		body  string
		field string
	}{
		{"/process-meeting", `{"source":"zoom"}`, "audio_path"},
		{"/lead-suggestions", `{"requirements":"  "}`, "requirements"},
		{"/lead-suggestions", `{"requirements":"x","top_k":0}`, "top_k"},
		{"/score-leads", `{}`, "leads"},
		{"/proposal", `{"client_name":"Acme"}`, "requirements"},
		{"/follow-up", `{"follow_up_time":"2024-06-01T09:00:00Z"}`, "lead_id"},
		{"/follow-up", `{"lead_id":"7"}`, "follow_up_time"},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.field, func(t *testing.T) {
			rec, out := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errs := out["errors"].(map[string]any)
			assert.Contains(t, errs, tt.field)
		})
	}
}

func TestContext(t *testing.T) {
	s, mem := newTestServer(t)
	h := s.Handler()

	rec, out := do(t, h, http.MethodGet, "/context/latest_proposal_context", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", out["status"])

	mem.StoreContext(memory.KeyProposal, core.MustDocument(map[string]any{"draft": "# Hi"}))
	rec, out = do(t, h, http.MethodGet, "/context/latest_proposal_context", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, memory.KeyProposal, out["key"])
	assert.Equal(t, map[string]any{"draft": "# Hi"}, out["payload"])
}

func TestAgentsAndHealth(t *testing.T) {
	s, mem := newTestServer(t)
	h := s.Handler()

	rec, out := do(t, h, http.MethodGet, "/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lead_recommendation", out["default_task"])
	list := out["agents"].([]any)
	require.Len(t, list, len(core.KnownTasks))
	first := list[0].(map[string]any)
	assert.Equal(t, "follow_up", first["task"])
	assert.Equal(t, "test agent for follow_up", first["description"])

	_, err := mem.AddVectors(context.Background(), [][]float32{{1, 0, 0, 0}}, []core.Document{{}})
	require.NoError(t, err)
	mem.StoreContext("k", core.MustDocument("v"))

	rec, out = do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", out["status"])
	assert.EqualValues(t, 5, out["agents"])
	assert.EqualValues(t, 1, out["vectors"])
	assert.EqualValues(t, 1, out["contexts"])
}

func TestIndexLead(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s.Handler(), http.MethodPost, "/leads", `{"company_name":"Acme"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	ix := &fakeIndexer{}
	s, _ = newTestServer(t, WithLeadIndexer(ix))
	h := s.Handler()

	rec, out := do(t, h, http.MethodPost, "/leads", `{"company_name":"Acme","industry":"Retail"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 0, out["record_id"])
	assert.Equal(t, "lead-1", out["lead_id"])
	require.Len(t, ix.leads, 1)
	assert.Equal(t, "Retail", ix.leads[0].Industry)

	rec, _ = do(t, h, http.MethodPost, "/leads", `{"industry":"Retail"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ix.err = errors.New("disk full")
	rec, out = do(t, h, http.MethodPost, "/leads", `{"company_name":"Globex"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, out["message"], "disk full")
}

func TestWebSocket(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"audio":"call.wav"}`)))
	var env engine.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.True(t, env.OK())
	assert.Equal(t, core.TaskMeetingSummary, env.TaskType)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var reply map[string]any
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply["status"])

	// The connection survives a bad frame.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"lead_info":{}}`)))
	require.NoError(t, conn.ReadJSON(&env))
	assert.False(t, env.OK())
	assert.Equal(t, core.TaskLeadScoring, env.TaskType)
}

func TestGRPCHealth(t *testing.T) {
	h, err := NewHealth("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()

	conn, err := grpc.NewClient(h.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()

	for _, service := range []string{"", HealthService} {
		resp, err := client.Check(checkCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("grpc server did not stop")
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("http server did not stop")
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusTeapot, map[string]int{"a": 1})
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"a":1}`, rec.Body.String())

	var buf bytes.Buffer
	buf.WriteString(`{"x":1}`)
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	var in core.Input
	require.NoError(t, decodeBody(httptest.NewRecorder(), req, &in))
	assert.Equal(t, 1.0, in["x"])
}
