package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungkimanh/gatest/internal/config"
	"github.com/hungkimanh/gatest/internal/model"
	"github.com/hungkimanh/gatest/internal/report"
	"github.com/hungkimanh/gatest/internal/store"
)

const lineInstance = `{"name":"line","capacity":10,"nodes":[
 {"id":1,"x":0,"y":0},
 {"id":2,"x":0,"y":1,"demand":3},
 {"id":3,"x":0,"y":2,"demand":4},
 {"id":4,"x":0,"y":3,"demand":5}]}`

const smallTSPLIB = `NAME : E-n5-k2
COMMENT : (No of trucks: 2, Optimal value: 12.5)
TYPE : CVRP
DIMENSION : 5
EDGE_WEIGHT_TYPE : EUC_2D
CAPACITY : 10
NODE_COORD_SECTION
1 0 0
2 0 1
3 0 2
4 0 3
5 3 4
DEMAND_SECTION
1 0
2 3
3 4
4 5
5 2
DEPOT_SECTION
1
-1
EOF
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.Default())
	require.NoError(t, err)
	return s
}

func solve(t *testing.T, s *Server, contentType, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	s.SolveHandler(rr, req)
	return rr
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

type downStore struct{ *store.Memory }

func (downStore) Ping(context.Context) error { return errors.New("db down") }

func TestReadyReportsStoreFailure(t *testing.T) {
	s := newTestServer(t)
	s.Store = downStore{store.NewMemory()}
	rr := httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSolveJSONAndFetchRun(t *testing.T) {
	s := newTestServer(t)
	body := `{"instance":` + lineInstance + `,"population":6,"seed":42,"includePopulation":true}`
	rr := solve(t, s, "application/json", "/v1/solve", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp model.SolveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	run := resp.Run
	require.NotEmpty(t, run.ID)
	assert.Equal(t, "line", run.Instance)
	assert.Equal(t, 2, run.Vehicles)
	assert.Equal(t, -1.0, run.Optimal)
	assert.Equal(t, -1.0, run.Gap)
	require.Len(t, resp.Population, 6)
	require.Len(t, resp.Scores, 6)
	assert.Equal(t, resp.Scores[run.BestIndex].Cost, run.BestCost)
	for _, seq := range resp.Population {
		assert.Equal(t, run.Vehicles-1, seq.Separators())
	}

	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.RunRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Routes, got.Routes)

	rr = httptest.NewRecorder()
	s.RunsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs?instance=line&limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items      []model.RunRecord `json:"items"`
		NextCursor string            `json:"nextCursor"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list.Items, 1)
	assert.Empty(t, list.NextCursor)
}

func TestSolveTSPLIBBody(t *testing.T) {
	s := newTestServer(t)
	rr := solve(t, s, "text/plain", "/v1/solve?population=5&seed=3&preferFeasible=true", smallTSPLIB)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp model.SolveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "E-n5-k2", resp.Run.Instance)
	assert.Equal(t, 2, resp.Run.Vehicles)
	assert.Equal(t, 5, resp.Run.Population)
	assert.Equal(t, 12.5, resp.Run.Optimal)
	assert.Equal(t, report.Gap(resp.Run.BestCost, 12.5), resp.Run.Gap)
	assert.Empty(t, resp.Population)
}

func TestSolveIsDeterministicForSeed(t *testing.T) {
	s := newTestServer(t)
	body := `{"instance":` + lineInstance + `,"population":8,"seed":7}`
	var runs [2]model.RunRecord
	for i := range runs {
		rr := solve(t, s, "application/json", "/v1/solve", body)
		require.Equal(t, http.StatusCreated, rr.Code)
		var resp model.SolveResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		runs[i] = resp.Run
	}
	assert.Equal(t, runs[0].BestCost, runs[1].BestCost)
	assert.Equal(t, runs[0].Routes, runs[1].Routes)
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
}

func TestSolveRejects(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name, contentType, target, body string
		want                            int
	}{
		{"bad json", "application/json", "/v1/solve", "{", http.StatusBadRequest},
		{"missing instance", "application/json", "/v1/solve", "{}", http.StatusBadRequest},
		{"negative population", "application/json", "/v1/solve", `{"instance":` + lineInstance + `,"population":-1}`, http.StatusBadRequest},
		{"invalid instance", "application/json", "/v1/solve", `{"instance":{"capacity":0,"nodes":[{"id":1},{"id":2}]}}`, http.StatusUnprocessableEntity},
		{"depot not node 1", "application/json", "/v1/solve", `{"instance":{"capacity":10,"depot":3,"nodes":[{"id":1},{"id":2,"demand":1},{"id":3}]}}`, http.StatusUnprocessableEntity},
		{"truncated tsplib", "text/plain", "/v1/solve", "NAME : x\n", http.StatusBadRequest},
		{"bad query", "text/plain", "/v1/solve?seed=abc", smallTSPLIB, http.StatusBadRequest},
		{"huge dimension", "text/plain", "/v1/solve", "NAME : x\nDIMENSION : 100000000000000\nCAPACITY : 10\nNODE_COORD_SECTION\n1 0 0\n", http.StatusBadRequest},
		{"tsplib over node limit", "text/plain", "/v1/solve", tsplibWithNodes(maxNodes + 1), http.StatusBadRequest},
		{"json over node limit", "application/json", "/v1/solve", `{"instance":` + jsonWithNodes(maxNodes+1) + `}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := solve(t, s, tc.contentType, tc.target, tc.body)
			assert.Equal(t, tc.want, rr.Code, rr.Body.String())
			assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		})
	}

	rr := httptest.NewRecorder()
	s.SolveHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solve", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// tsplibWithNodes renders a well-formed instance with n nodes on a line.
func tsplibWithNodes(n int) string {
	var b strings.Builder
	b.WriteString("NAME : big\nTYPE : CVRP\nDIMENSION : " + strconv.Itoa(n) + "\nCAPACITY : 10\nNODE_COORD_SECTION\n")
	for i := 1; i <= n; i++ {
		b.WriteString(strconv.Itoa(i) + " 0 " + strconv.Itoa(i) + "\n")
	}
	b.WriteString("DEMAND_SECTION\n")
	for i := 1; i <= n; i++ {
		b.WriteString(strconv.Itoa(i) + " 1\n")
	}
	b.WriteString("DEPOT_SECTION\n1\n-1\nEOF\n")
	return b.String()
}

func jsonWithNodes(n int) string {
	var b strings.Builder
	b.WriteString(`{"name":"big","capacity":10,"nodes":[`)
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		b.WriteString(`{"id":` + strconv.Itoa(i) + `}`)
	}
	b.WriteString("]}")
	return b.String()
}

func TestSolvePublishesEvents(t *testing.T) {
	s := newTestServer(t)
	ch := s.Broker.Subscribe(RunsTopic)
	defer s.Broker.Unsubscribe(RunsTopic, ch)

	rr := solve(t, s, "application/json", "/v1/solve", `{"instance":`+lineInstance+`,"seed":1}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	started := <-ch
	completed := <-ch
	assert.Equal(t, "run.started", started.Type)
	assert.Equal(t, "run.completed", completed.Type)
	assert.Equal(t, "line", completed.Data["instance"])
	assert.NotEmpty(t, completed.Data["id"])
}

func TestRunsRejectsInvalidCursor(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.RunsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs?cursor=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestRunByIDNotFound(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutesServeOpsEndpoints(t *testing.T) {
	s := newTestServer(t)
	mux := s.Routes()
	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/debug/vars", "/v1/solver/config", "/v1/runs"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/solver/config", nil))
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Contains(t, cfg, "defaults")
	assert.Contains(t, cfg, "optima")
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimit(0.001, 1, ok)

	codes := make([]int, 0, 3)
	for _, path := range []string{"/v1/runs", "/v1/runs", "/healthz"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK}, codes)

	off := RateLimit(0, 0, ok)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		off.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/runs/{id}", routeLabel("/v1/runs/0190c1de"))
	assert.Equal(t, "/v1/runs/ws", routeLabel("/v1/runs/ws"))
	assert.Equal(t, "/v1/runs", routeLabel("/v1/runs"))
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	h := LogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRunsStreamSSE(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(s.RunsStreamHandler))
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?instance=line", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := rd.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return name, data
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	name, _ := readEvent()
	require.Equal(t, "heartbeat", name)

	s.Broker.Publish(RunsTopic, Event{Type: "run.completed", Data: map[string]any{"instance": "other"}})
	s.Broker.Publish(RunsTopic, Event{Type: "run.completed", Data: map[string]any{"instance": "line", "bestCost": 8}})
	name, data := readEvent()
	assert.Equal(t, "run.completed", name)
	assert.JSONEq(t, `{"instance":"line","bestCost":8}`, data)
}

func TestRunsWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(s.RunsWSHandler))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ack wsMessage
	require.NoError(t, c.ReadJSON(&ack))
	require.Equal(t, "connection_ack", ack.Type)

	s.Broker.Publish(RunsTopic, Event{Type: "run.completed", Data: map[string]any{"id": "r1", "instance": "line"}})

	var msg wsMessage
	require.NoError(t, c.ReadJSON(&msg))
	assert.Equal(t, "run.completed", msg.Type)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "r1", payload["id"])
}

func TestDebugJSON(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.DebugJSON(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&body))
	assert.Contains(t, body, "build")
	assert.Contains(t, body, "config")
}

func TestSolveEmitsWebhook(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Webhooks = []config.Webhook{{URL: "http://hooks.invalid/runs", Events: []string{"run.completed"}}}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	require.NotNil(t, s.Pub)
	require.NotNil(t, s.NewWebhookWorker())

	rr := solve(t, s, "application/json", "/v1/solve", `{"instance":`+lineInstance+`,"seed":2}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	select {
	case d := <-s.Pub.Queue:
		assert.Equal(t, "run.completed", d.EventType)
		assert.Contains(t, string(d.Payload), `"instance":"line"`)
	default:
		t.Fatal("no webhook delivery queued")
	}
}

func TestOpenAPIDocs(t *testing.T) {
	s := newTestServer(t)
	mux := s.Routes()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	for _, p := range []string{"/v1/solve", "/v1/runs", "/v1/runs/{id}", "/v1/runs/ws", "/v1/runs/stream"} {
		assert.Contains(t, doc.Paths, p)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Contains(t, rr.Body.String(), "/openapi.yaml")
}
