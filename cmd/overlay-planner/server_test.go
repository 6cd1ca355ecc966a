package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"overlay-planner/internal/config"
	"overlay-planner/internal/geometry"
	"overlay-planner/internal/pathfinding"
)

const world = `{
  sectors: [
    { id: 1, name: "west", contour: [[0,0],[100,0],[100,100],[0,100]] }
    { id: 2, name: "east", origin: [100, 0, 0], contour: [[0,0],[100,0],[100,100],[0,100]] }
  ]
  portals: [ { sectorA: 1, edgeA: 1, sectorB: 2, edgeB: 3 } ]
}`

func testServer(t *testing.T) *server {
	t.Helper()
	cfg, err := config.Parse([]byte(world))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return newServer(pathfinding.NewPlanner(svc, cfg.NewManager()), 0)
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}, accept string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouteHandler(t *testing.T) {
	h := testServer(t).routes()
	rec := do(t, h, http.MethodPost, "/route", RouteRequest{
		Start: geometry.DoubleVector3{X: 10, Y: 50},
		End:   geometry.DoubleVector3{X: 190, Y: 50},
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp RouteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || len(resp.Path) < 2 || resp.Distance < 180-1e-6 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS headers")
	}

	if rec := do(t, h, http.MethodGet, "/route", nil, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodOptions, "/route", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected preflight 200, got %d", rec.Code)
	}
}

func TestRouteHandlerMsgpack(t *testing.T) {
	h := testServer(t).routes()
	rec := do(t, h, http.MethodPost, "/route", RouteRequest{
		Start: geometry.DoubleVector3{X: 10, Y: 10},
		End:   geometry.DoubleVector3{X: 150, Y: 90},
	}, msgpackType)
	if ct := rec.Header().Get("Content-Type"); ct != msgpackType {
		t.Fatalf("expected msgpack content type, got %q", ct)
	}
	var resp RouteResponse
	if err := msgpack.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.Roadmap == nil || len(resp.Roadmap.Actions) == 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Roadmap.Actions[0].Kind != pathfinding.ActionWalk {
		t.Fatalf("expected walk actions, got %v", resp.Roadmap.Actions[0].Kind)
	}
}

func TestHoleLifecycle(t *testing.T) {
	s := testServer(t)
	h := s.routes()
	// a wall across the east sector cuts the destination off
	rec := do(t, h, http.MethodPost, "/holes", HoleRequest{Ring: []geometry.DoubleVector3{
		{X: 140, Y: -10}, {X: 160, Y: -10}, {X: 160, Y: 110}, {X: 140, Y: 110},
	}}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var added HoleResponse
	if err := json.NewDecoder(rec.Body).Decode(&added); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(added.Sectors) != 1 || added.Sectors[0] != 2 {
		t.Fatalf("expected the hole in sector 2, got %v", added.Sectors)
	}

	route := RouteRequest{Start: geometry.DoubleVector3{X: 10, Y: 50}, End: geometry.DoubleVector3{X: 190, Y: 50}}
	var resp RouteResponse
	rec = do(t, h, http.MethodPost, "/route", route, "")
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected the wall to block the route")
	}

	if rec := do(t, h, http.MethodDelete, "/holes?id="+added.ID.String(), nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/holes?id="+added.ID.String(), nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a removed hole, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/route", route, "")
	resp = RouteResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected the route to open after removing the wall")
	}
}

func TestSwarmAndLinesHandlers(t *testing.T) {
	h := testServer(t).routes()
	rec := do(t, h, http.MethodPost, "/swarm", SwarmRequest{
		Destination: geometry.DoubleVector3{X: 150, Y: 50},
		Sources:     []geometry.DoubleVector3{{X: 10, Y: 10}, {X: 20, Y: 90}, {X: -40, Y: 0}},
	}, "")
	var swarm SwarmResponse
	if err := json.NewDecoder(rec.Body).Decode(&swarm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swarm.Reached != 2 || len(swarm.Roadmaps) != 3 || swarm.Roadmaps[2] != nil {
		t.Fatalf("unexpected swarm response %+v", swarm)
	}

	rec = do(t, h, http.MethodGet, "/network/lines?radius=1", nil, "")
	var lines LinesResponse
	if err := json.NewDecoder(rec.Body).Decode(&lines); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines.Lines) == 0 || lines.Stats.Nodes != 2 {
		t.Fatalf("unexpected lines response %+v", lines.Stats)
	}
	if rec := do(t, h, http.MethodGet, "/network/lines?radius=x", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health", nil, ""); !strings.Contains(rec.Body.String(), "ready") {
		t.Fatalf("unexpected health response %s", rec.Body.String())
	}
}

func TestRouteCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.hjson")
	if err := os.WriteFile(path, []byte(world), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "route", "--from", "10,50", "--to", "190,50,0"})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rm pathfinding.Roadmap
	if err := json.Unmarshal(out.Bytes(), &rm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rm.Actions) == 0 {
		t.Fatalf("expected a roadmap, got %s", out.String())
	}

	if _, err := parsePoint("1"); err == nil {
		t.Fatalf("expected a malformed point to fail")
	}
}
