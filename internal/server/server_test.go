package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"rpscheduler/internal/config"
	"rpscheduler/internal/db"
	"rpscheduler/internal/engine"
	"rpscheduler/internal/migrate"
)

type fixedRand int

func (f fixedRand) Intn(n int) int { return int(f) % n }

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, jwtSecret string) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Rand = fixedRand(0)
	handler, err := New(Config{Engine: e, BasePath: "/api", Auth: AuthConfig{JWTSecret: jwtSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, data []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, string(data))
	}
	return env
}

func createAgent(t *testing.T, srv *testServer, first, last string) AgentResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/agents", map[string]any{
		"first_name": first,
		"last_name":  last,
		"email":      strings.ToLower(first) + "@example.com",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create agent status %d: %s", res.StatusCode, string(data))
	}
	var a AgentResponse
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("unmarshal agent: %v", err)
	}
	return a
}

func TestAgentCRUD(t *testing.T) {
	srv, cleanup := newTestServer(t, "")
	defer cleanup()
	client := srv.Client()

	ada := createAgent(t, srv, "Ada", "Lovelace")
	createAgent(t, srv, "Alan", "Turing")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/agents?search=lovelace", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var found []AgentResponse
	_ = json.Unmarshal(data, &found)
	if len(found) != 1 || found[0].ID != ada.ID {
		t.Fatalf("unexpected search result: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, fmt.Sprintf("%s/api/agents/%d", srv.URL, ada.ID), map[string]any{"active": false}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/agents?active=true", nil, nil)
	found = nil
	_ = json.Unmarshal(data, &found)
	if res.StatusCode != http.StatusOK || len(found) != 1 || found[0].FirstName != "Alan" {
		t.Fatalf("active filter: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, fmt.Sprintf("%s/api/agents/%d", srv.URL, ada.ID), nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, fmt.Sprintf("%s/api/agents/%d", srv.URL, ada.ID), nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	if env := decodeError(t, data); env.Error.Code != "not_found" {
		t.Fatalf("unexpected error code %q", env.Error.Code)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/agents", map[string]any{"first_name": "X", "last_name": "Y", "email": "nope"}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d %s", res.StatusCode, string(data))
	}
}

func TestScheduleLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, "")
	defer cleanup()
	client := srv.Client()

	var ids []int64
	for _, name := range []string{"Ada", "Alan", "Grace", "Edsger"} {
		a := createAgent(t, srv, name, "Test")
		ids = append(ids, a.ID)
		res, data := doJSON(t, client, http.MethodPut, fmt.Sprintf("%s/api/agents/%d/availability/weekly/0", srv.URL, a.ID), map[string]any{"available": true}, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("set weekday status %d: %s", res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/schedules/2024-03-06", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get schedule status %d: %s", res.StatusCode, string(data))
	}
	var sched ScheduleResponse
	_ = json.Unmarshal(data, &sched)
	if !sched.Generated || sched.Date != "2024-03-04" || len(sched.Pairs) != 2 || len(sched.Unpaired) != 0 {
		t.Fatalf("unexpected lazy schedule: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/schedules/2024-03-04", nil, nil)
	var again ScheduleResponse
	_ = json.Unmarshal(data, &again)
	if res.StatusCode != http.StatusOK || again.Generated || again.ID != sched.ID {
		t.Fatalf("expected stored schedule: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/schedules/2024-03-04/generate", nil, nil)
	var regen ScheduleResponse
	_ = json.Unmarshal(data, &regen)
	if res.StatusCode != http.StatusOK || regen.EligibleEdges == nil || *regen.EligibleEdges != 6 || regen.ID == sched.ID {
		t.Fatalf("unexpected regeneration: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/blacklist", map[string]any{"agent_a": ids[1], "agent_b": ids[0]}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("blacklist status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/api/schedules/2024-03-04", map[string]any{
		"pairs":    []map[string]any{{"agent1_id": ids[0], "agent2_id": ids[1]}},
		"unpaired": []int64{ids[2], ids[3]},
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, string(data))
	}
	if env := decodeError(t, data); env.Error.Code != "blacklisted_pair" {
		t.Fatalf("unexpected error code %q", env.Error.Code)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/api/schedules/2024-03-04", map[string]any{
		"pairs":    []map[string]any{{"agent1_id": ids[0], "agent2_id": ids[2]}},
		"unpaired": []int64{ids[1], ids[3]},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set schedule status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/schedules/2024-13-01", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/events?type=schedule.set&limit=5", nil, nil)
	var page paginatedEvents
	_ = json.Unmarshal(data, &page)
	if res.StatusCode != http.StatusOK || len(page.Items) != 1 || page.Items[0].EntityID != "2024-03-04" {
		t.Fatalf("unexpected events: %d %s", res.StatusCode, string(data))
	}
}

func TestBearerAuth(t *testing.T) {
	const secret = "test-secret"
	srv, cleanup := newTestServer(t, secret)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should be open: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/agents", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/api/agents", nil, map[string]string{"Authorization": "Bearer garbage"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}

	token, err := IssueToken(secret, "scheduler-admin", nil, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/agents", map[string]any{"first_name": "Ada", "last_name": "Lovelace"}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create with token: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/events?type=agent.create", nil, auth)
	var page paginatedEvents
	_ = json.Unmarshal(data, &page)
	if res.StatusCode != http.StatusOK || len(page.Items) != 1 || page.Items[0].ActorID != "scheduler-admin" {
		t.Fatalf("expected actor from token: %s", string(data))
	}

	expired, _ := IssueToken(secret, "old", nil, time.Minute, time.Now().Add(-time.Hour))
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/api/agents", nil, map[string]string{"Authorization": "Bearer " + expired})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", res.StatusCode)
	}
}

func TestMetricsAndDocs(t *testing.T) {
	srv, cleanup := newTestServer(t, "")
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodGet, srv.URL+"/api/health", nil, nil)
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/metrics", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "rps_schedule_last_pairs") {
		t.Fatalf("metrics: %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "generate-schedule") {
		t.Fatalf("openapi: %d", res.StatusCode)
	}
}
