package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/aerion-control/internal/audit"
	"github.com/nerrad567/aerion-control/internal/device"
	"github.com/nerrad567/aerion-control/internal/infrastructure/config"
	"github.com/nerrad567/aerion-control/internal/infrastructure/database"
	"github.com/nerrad567/aerion-control/internal/infrastructure/logging"
	"github.com/nerrad567/aerion-control/internal/infrastructure/metrics"
	"github.com/nerrad567/aerion-control/internal/infrastructure/netif"
	"github.com/nerrad567/aerion-control/internal/probe"
	"github.com/nerrad567/aerion-control/internal/relay"
	"github.com/nerrad567/aerion-control/internal/settings"
	_ "github.com/nerrad567/aerion-control/migrations"
)

type fakeInterfaces struct {
	ifaces []netif.Interface
}

func (f fakeInterfaces) List(context.Context) ([]netif.Interface, error) {
	return f.ifaces, nil
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

// testEnv is a server wired to real collaborators in a temp directory.
type testEnv struct {
	srv      *Server
	router   http.Handler
	registry *device.Registry
	settings *settings.Store
	relay    *relay.Stats
	prom     *metrics.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	registry := device.NewRegistry(device.NewJSONFileRepository(filepath.Join(dir, "clients.json")))
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}

	db, err := database.Open(database.Config{Path: filepath.Join(dir, "aerion.db"), BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	history := probe.NewSQLiteHistoryRepository(db.DB)

	cfg := probe.DefaultConfig()
	cfg.ReadTimeout = 500 * time.Millisecond
	probes := probe.NewService(probe.NewProber(cfg), registry, 4)
	probes.AddObserver("history", history)

	prom := metrics.NewRegistry()
	probes.AddObserver("metrics", probe.NewMetricsObserver(prom.Metrics))

	store := settings.NewStore(filepath.Join(dir, "server.json"))
	stats := relay.NewStats()

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:       testWSConfig(),
		Logger:   testLogger(),
		Registry: registry,
		Probes:   probes,
		History:  history,
		Settings: store,
		Interfaces: fakeInterfaces{ifaces: []netif.Interface{{
			Name: "eth0",
			MAC:  "00:11:22:33:44:55",
			IPv4: &netif.AddrInfo{Address: "192.168.1.10", Netmask: "255.255.255.0"},
		}}},
		Relay:   stats,
		DB:      db,
		Audit:   audit.NewSQLiteRepository(db.DB),
		Metrics: prom.Handler(),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	probes.AddObserver("websocket", srv.Hub())

	return &testEnv{srv: srv, router: srv.Handler(), registry: registry, settings: store, relay: stats, prom: prom}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

// startRobot runs a robot that accepts the open request with reply.
func startRobot(t *testing.T, reply string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, len(probe.RobotRequest))
				if _, err := io.ReadFull(conn, buf); err != nil {
					return
				}
				_, _ = conn.Write([]byte(reply))
				_, _ = io.Copy(io.Discard, conn)
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a loopback port with nothing listening.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func robotJSON(name string, port int) string {
	return `{"Name": "` + name + `", "Type": "Robot", "Ip": "127.0.0.1", "Port": ` + strconv.Itoa(port) + `}`
}

// ─── Health and middleware ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("X-Request-ID = %q, want client-id-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/nonexistent", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Devices ───────────────────────────────────────────────────────

func TestListDevices_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/devices", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decode[map[string]any](t, w)
	if resp["count"] != float64(0) {
		t.Errorf("count = %v, want 0", resp["count"])
	}
}

func TestCreateAndGetDevice(t *testing.T) {
	env := newTestEnv(t)

	body := `{"Name": "plc1", "Type": "PLC", "Ip": "10.0.0.5", "Port": 5007,
		"Destination network No.": 0, "Destination station No.": 255,
		"Destination Module I/O": 1023, "Destination multidrop station No.": 0}`
	w := env.do(t, http.MethodPost, "/api/v1/devices", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/devices/plc1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[device.Record](t, w)
	if got.Type != device.TypePLC || got.Port != 5007 {
		t.Errorf("got %+v", got)
	}
	if got.DestinationModuleIO == nil || *got.DestinationModuleIO != 1023 {
		t.Errorf("DestinationModuleIO = %v, want 1023", got.DestinationModuleIO)
	}

	w = env.do(t, http.MethodGet, "/api/v1/devices?type=Robot", "")
	if resp := decode[map[string]any](t, w); resp["count"] != float64(0) {
		t.Errorf("Robot filter count = %v, want 0", resp["count"])
	}
}

func TestCreateDevice_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"reserved name", robotJSON("running", 10001), http.StatusBadRequest, ErrCodeValidation},
		{"unknown type", `{"Name": "x", "Type": "Drone", "Ip": "127.0.0.1", "Port": 1}`, http.StatusBadRequest, ErrCodeValidation},
		{"port out of range", robotJSON("arm1", 70000), http.StatusBadRequest, ErrCodeValidation},
		{"invalid JSON", `{not json`, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/v1/devices", tt.body)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if e := decode[Error](t, w); e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
			if env.registry.GetDeviceCount() != 0 {
				t.Error("rejected device was stored")
			}
		})
	}
}

func TestCreateDevice_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", 10001))

	w := env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", 10002))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestDeleteDevice(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", 10001))

	if w := env.do(t, http.MethodDelete, "/api/v1/devices/arm1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/devices/arm1", ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/devices/arm1", ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestUserNodes(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", 10001))
	node := `{"Name": "speed", "Parent": "Axis1"}`

	w := env.do(t, http.MethodPost, "/api/v1/devices/arm1/user-nodes", node)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[device.Record](t, w); len(got.UserNodes) != 1 {
		t.Errorf("UserNodes = %v, want one node", got.UserNodes)
	}

	if w := env.do(t, http.MethodPost, "/api/v1/devices/arm1/user-nodes", node); w.Code != http.StatusConflict {
		t.Errorf("duplicate add status = %d, want 409", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/v1/devices/ghost/user-nodes", node); w.Code != http.StatusNotFound {
		t.Errorf("add to unknown device status = %d, want 404", w.Code)
	}

	if w := env.do(t, http.MethodDelete, "/api/v1/devices/arm1/user-nodes?name=speed&parent=Axis1", ""); w.Code != http.StatusNoContent {
		t.Errorf("remove status = %d, want 204", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/devices/arm1/user-nodes?name=speed&parent=Axis1", ""); w.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/devices/arm1/user-nodes?name=speed", ""); w.Code != http.StatusBadRequest {
		t.Errorf("remove without parent status = %d, want 400", w.Code)
	}
}

func TestDeviceStats(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", 10001))

	w := env.do(t, http.MethodGet, "/api/v1/devices/stats", "")

	stats := decode[device.Stats](t, w)
	if stats.TotalDevices != 1 || stats.ByType[device.TypeRobot] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// ─── Probes ────────────────────────────────────────────────────────

type probeResponse struct {
	Device  string `json:"device"`
	Outcome struct {
		OK      bool   `json:"ok"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"outcome"`
}

func TestProbe_AdHoc(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		port    int
		ok      bool
		reason  string
		message string
	}{
		{"robot answers QOK", startRobot(t, "QOK"), true, "", "OK"},
		{"robot answers lowercase", startRobot(t, "qok,ready"), true, "", "OK"},
		{"robot refuses", startRobot(t, "QeR"), false, string(probe.ReasonInvalidResponse), "Invalid answer from device"},
		{"nothing listening", closedPort(t), false, string(probe.ReasonConnectionFailed), "Couldn't connect to device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/probe", robotJSON("adhoc", tt.port))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			resp := decode[probeResponse](t, w)
			if resp.Outcome.OK != tt.ok || resp.Outcome.Reason != tt.reason || resp.Outcome.Message != tt.message {
				t.Errorf("outcome = %+v, want ok=%v reason=%q message=%q", resp.Outcome, tt.ok, tt.reason, tt.message)
			}
		})
	}

	if env.registry.GetDeviceCount() != 0 {
		t.Error("ad-hoc probe registered the device")
	}
}

func TestProbe_AdHocTypedFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   string
		reason probe.FailureReason
	}{
		{"unknown type", `{"Name": "x", "Type": "Drone", "Ip": "127.0.0.1", "Port": 1}`, probe.ReasonUnsupportedDeviceType},
		{"port out of range", robotJSON("x", 70000), probe.ReasonAddressError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/probe", tt.body)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
			}
			if resp := decode[probeResponse](t, w); resp.Outcome.OK || resp.Outcome.Reason != string(tt.reason) {
				t.Errorf("outcome = %+v, want reason %q", resp.Outcome, tt.reason)
			}
		})
	}
}

func TestProbe_InvalidRecord(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/probe", robotJSON("running", 10001))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProbeDevice_RecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	port := startRobot(t, "QOK")
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", port))

	w := env.do(t, http.MethodPost, "/api/v1/devices/arm1/probe", "")
	if w.Code != http.StatusOK {
		t.Fatalf("probe status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decode[probeResponse](t, w); !resp.Outcome.OK || resp.Device != "arm1" {
		t.Errorf("probe response = %+v", resp)
	}

	w = env.do(t, http.MethodGet, "/api/v1/devices/arm1/probes?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	hist := decode[struct {
		Count   int             `json:"count"`
		Results []probeResponse `json:"results"`
	}](t, w)
	if hist.Count != 1 || !hist.Results[0].Outcome.OK {
		t.Errorf("history = %+v", hist)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/devices/arm1/probes?limit=zero", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestProbeDevice_NotFound(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/api/v1/devices/ghost/probe", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestProbeAll(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/devices/probe", "")
	if w.Code != http.StatusOK {
		t.Fatalf("empty registry status = %d", w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["count"] != float64(0) {
		t.Errorf("count = %v, want 0", resp["count"])
	}

	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", startRobot(t, "QOK")))
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm2", closedPort(t)))

	w = env.do(t, http.MethodPost, "/api/v1/devices/probe", "")
	resp := decode[struct {
		Count   int             `json:"count"`
		Failed  int             `json:"failed"`
		Results []probeResponse `json:"results"`
	}](t, w)
	if resp.Count != 2 || resp.Failed != 1 {
		t.Errorf("count = %d failed = %d, want 2 and 1", resp.Count, resp.Failed)
	}
	if resp.Results[0].Device != "arm1" || resp.Results[1].Device != "arm2" {
		t.Errorf("results not in registry order: %+v", resp.Results)
	}
}

// ─── Settings ──────────────────────────────────────────────────────

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/v1/settings/Port", `{"value": "4841", "type": "Number"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/settings/Port?type=Number", "")
	if got := decode[SettingResponse](t, w); got.Value != "4841" {
		t.Errorf("value = %q, want 4841", got.Value)
	}
	if env.settings.Port() != 4841 {
		t.Errorf("store Port() = %d, want 4841", env.settings.Port())
	}

	w = env.do(t, http.MethodGet, "/api/v1/settings", "")
	if all := decode[map[string]any](t, w); all["Port"] != float64(4841) {
		t.Errorf("settings = %v", all)
	}

	if w := env.do(t, http.MethodPut, "/api/v1/settings/Port", `{"value": "abc", "type": "Number"}`); w.Code != http.StatusBadRequest {
		t.Errorf("invalid number status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/v1/settings/Port", `{"value": "1", "type": "Float"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/settings/Missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing key status = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/settings/Port", ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
}

// ─── System ────────────────────────────────────────────────────────

func TestListInterfaces(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/interfaces", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"mac-addr":"00:11:22:33:44:55"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRelayStats(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/relay", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if snap := decode[relay.StatsSnapshot](t, w); snap.Running {
		t.Error("relay reported running before any transport")
	}
}

func TestOptionalCollaboratorsUnavailable(t *testing.T) {
	registry := device.NewRegistry(device.NewJSONFileRepository(filepath.Join(t.TempDir(), "clients.json")))
	srv, err := New(Deps{Logger: testLogger(), Registry: registry})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	router := srv.Handler()

	for _, path := range []string{"/api/v1/relay", "/api/v1/interfaces", "/api/v1/settings", "/api/v1/server", "/api/v1/audit"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want 503", path, w.Code)
		}
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger expected error")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without registry expected error")
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/probe", robotJSON("adhoc", closedPort(t)))

	w := env.do(t, http.MethodGet, "/metrics", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `aerion_probe_total{outcome="connection_failed",type="Robot"} 1`) {
		t.Errorf("probe counter missing from exposition:\n%s", w.Body.String())
	}
}

func TestSystemMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", 10001))

	w := env.do(t, http.MethodGet, "/api/v1/metrics", "")

	m := decode[SystemMetrics](t, w)
	if m.Devices.Total != 1 || m.Devices.ByType["Robot"] != 1 {
		t.Errorf("devices = %+v", m.Devices)
	}
	if m.Relay == nil || m.Database == nil {
		t.Errorf("relay or database section missing: %+v", m)
	}
	if m.MQTT.Connected {
		t.Error("MQTT reported connected without a client")
	}
}

// ─── Audit ─────────────────────────────────────────────────────────

func TestAudit_RecordsChanges(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("arm1", 10001))
	env.do(t, http.MethodPost, "/api/v1/devices/arm1/user-nodes", `{"Name": "speed", "Parent": "Axis1"}`)
	env.do(t, http.MethodPut, "/api/v1/settings/Port", `{"value": "4841", "type": "Number"}`)
	env.do(t, http.MethodDelete, "/api/v1/devices/arm1", "")
	// Rejected changes leave no trace.
	env.do(t, http.MethodPost, "/api/v1/devices", robotJSON("running", 10001))

	w := env.do(t, http.MethodGet, "/api/v1/audit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	all := decode[audit.ListResult](t, w)
	if all.Total != 4 {
		t.Fatalf("total = %d, want 4: %+v", all.Total, all.Entries)
	}

	w = env.do(t, http.MethodGet, "/api/v1/audit?entity_type=device&entity_id=arm1", "")
	devices := decode[audit.ListResult](t, w)
	if devices.Total != 2 {
		t.Errorf("device entries = %d, want 2", devices.Total)
	}
	for _, e := range devices.Entries {
		if e.Details["request_id"] == nil {
			t.Errorf("entry %s has no request_id", e.ID)
		}
	}

	if w := env.do(t, http.MethodGet, "/api/v1/audit?limit=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", w.Code)
	}
}
