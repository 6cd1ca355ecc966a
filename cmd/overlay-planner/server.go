package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"overlay-planner/internal/geometry"
	"overlay-planner/internal/overlay"
	"overlay-planner/internal/pathfinding"
)

type RouteRequest struct {
	Start  geometry.DoubleVector3 `json:"start" msgpack:"start"`
	End    geometry.DoubleVector3 `json:"end" msgpack:"end"`
	Radius *float64               `json:"radius,omitempty" msgpack:"radius,omitempty"`
}

type RouteResponse struct {
	Path     []geometry.DoubleVector3 `json:"path" msgpack:"path"`
	Roadmap  *pathfinding.Roadmap     `json:"roadmap,omitempty" msgpack:"roadmap,omitempty"`
	Success  bool                     `json:"success" msgpack:"success"`
	Message  string                   `json:"message,omitempty" msgpack:"message,omitempty"`
	Distance float64                  `json:"distance,omitempty" msgpack:"distance,omitempty"`
}

type SwarmRequest struct {
	Destination geometry.DoubleVector3   `json:"destination" msgpack:"destination"`
	Sources     []geometry.DoubleVector3 `json:"sources" msgpack:"sources"`
	Radius      *float64                 `json:"radius,omitempty" msgpack:"radius,omitempty"`
}

type SwarmResponse struct {
	Roadmaps []*pathfinding.Roadmap `json:"roadmaps" msgpack:"roadmaps"`
	Reached  int                    `json:"reached" msgpack:"reached"`
	Success  bool                   `json:"success" msgpack:"success"`
}

type HoleRequest struct {
	Ring []geometry.DoubleVector3 `json:"ring" msgpack:"ring"`
}

type HoleResponse struct {
	ID      uuid.UUID `json:"id" msgpack:"id"`
	Sectors []int     `json:"sectors,omitempty" msgpack:"sectors,omitempty"`
	Success bool      `json:"success" msgpack:"success"`
}

type LinesResponse struct {
	Lines [][]geometry.DoubleVector3 `json:"lines" msgpack:"lines"`
	Stats overlay.Stats              `json:"stats" msgpack:"stats"`
}

type server struct {
	planner *pathfinding.Planner
	radius  float64
}

func newServer(planner *pathfinding.Planner, radius float64) *server {
	return &server{planner: planner, radius: radius}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/route", corsMiddleware(s.routeHandler))
	mux.HandleFunc("/swarm", corsMiddleware(s.swarmHandler))
	mux.HandleFunc("/holes", corsMiddleware(s.holesHandler))
	mux.HandleFunc("/network/lines", corsMiddleware(s.linesHandler))
	mux.HandleFunc("/health", corsMiddleware(s.healthHandler))
	return mux
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		// Handle preflight
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

const msgpackType = "application/msgpack"

// writeResponse encodes v as msgpack when the client accepts it, JSON otherwise.
func writeResponse(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if strings.Contains(r.Header.Get("Accept"), msgpackType) {
		w.Header().Set("Content-Type", msgpackType)
		w.WriteHeader(status)
		if err := msgpack.NewEncoder(w).Encode(v); err != nil {
			log.Printf("⚠️  Failed to encode response: %v\n", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to encode response: %v\n", err)
	}
}

// readRequest decodes a msgpack or JSON body depending on Content-Type.
func readRequest(r *http.Request, v interface{}) error {
	if strings.Contains(r.Header.Get("Content-Type"), msgpackType) {
		return msgpack.NewDecoder(r.Body).Decode(v)
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *server) radiusOr(r *float64) float64 {
	if r != nil {
		return *r
	}
	return s.radius
}

func (s *server) routeHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("📍 Route request received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RouteRequest
	if err := readRequest(r, &req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	radius := s.radiusOr(req.Radius)

	log.Printf("   Start:  %v\n", req.Start)
	log.Printf("   End:    %v\n", req.End)
	log.Printf("   Radius: %.2f\n", radius)

	log.Println("🔍 Searching overlay network...")
	rm, found, err := s.planner.Route(radius, req.Start, req.End)
	if err != nil {
		log.Printf("❌ Route failed: %v\n", err)
		log.Println("========================================")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := RouteResponse{Path: []geometry.DoubleVector3{}, Success: found}
	if !found {
		log.Println("❌ No path found")
		resp.Message = "No path exists for this radius and terrain"
	} else {
		resp.Path = rm.Points()
		resp.Roadmap = rm
		resp.Distance = rm.Cost
		log.Printf("✅ Path found with %d actions\n", len(rm.Actions))
		log.Printf("   Distance: %.2f\n", rm.Cost)
	}
	log.Println("========================================")

	writeResponse(w, r, http.StatusOK, resp)
}

func (s *server) swarmHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("🐝 Swarm request received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SwarmRequest
	if err := readRequest(r, &req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	log.Printf("   Destination: %v\n", req.Destination)
	log.Printf("   Agents:      %d\n", len(req.Sources))

	maps, err := s.planner.Swarm(s.radiusOr(req.Radius), req.Destination, req.Sources)
	if err != nil {
		log.Printf("❌ Swarm failed: %v\n", err)
		log.Println("========================================")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := SwarmResponse{Roadmaps: maps}
	for _, rm := range maps {
		if rm != nil {
			resp.Reached++
		}
	}
	resp.Success = resp.Reached > 0
	log.Printf("✅ %d of %d agents reached\n", resp.Reached, len(maps))
	log.Println("========================================")

	writeResponse(w, r, http.StatusOK, resp)
}

// POST /holes adds a world-space hole; DELETE /holes?id= removes one.
func (s *server) holesHandler(w http.ResponseWriter, r *http.Request) {
	svc := s.planner.Terrain()
	switch r.Method {
	case http.MethodPost:
		var req HoleRequest
		if err := readRequest(r, &req); err != nil {
			log.Printf("❌ Invalid request body: %v\n", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		id, sectors, err := svc.AddWorldHole(req.Ring)
		if err != nil {
			log.Printf("❌ Add hole failed: %v\n", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeResponse(w, r, http.StatusOK, HoleResponse{ID: id, Sectors: sectors, Success: true})
	case http.MethodDelete:
		id, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "Invalid hole id", http.StatusBadRequest)
			return
		}
		if err := svc.RemoveHole(id); err != nil {
			log.Printf("❌ Remove hole failed: %v\n", err)
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("🧹 Hole %s removed\n", id)
		writeResponse(w, r, http.StatusOK, HoleResponse{ID: id, Success: true})
	default:
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /network/lines - network edges as line strings for visualization
func (s *server) linesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	radius := s.radius
	if v := r.URL.Query().Get("radius"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "Invalid radius", http.StatusBadRequest)
			return
		}
		radius = parsed
	}
	net, err := s.planner.Network(radius)
	if err != nil {
		log.Printf("❌ Network compile failed: %v\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	lines := net.DebugLines()
	log.Printf("📊 Returning %d line segments\n", len(lines))
	writeResponse(w, r, http.StatusOK, LinesResponse{Lines: lines, Stats: net.Stats()})
}

// GET /health - Health check endpoint
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.planner.Terrain().Snapshot()
	writeResponse(w, r, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"snapshot": snap.ID.String(),
		"sectors":  len(snap.Sectors),
		"holes":    snap.HoleCount(),
	})
}
