package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hungkimanh/gatest/internal/cvrp"
	"github.com/hungkimanh/gatest/internal/model"
	"github.com/hungkimanh/gatest/internal/report"
	"github.com/hungkimanh/gatest/internal/store"
	"github.com/hungkimanh/gatest/internal/tsplib"
)

// SolveHandler handles POST /v1/solve. The body is either a JSON
// model.SolveRequest or a TSPLIB CVRP file with parameters in the query.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if limit := s.Config.Server.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	req, inst, err := s.decodeSolve(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, cvrp.ErrInvalidInstance) {
			status = http.StatusUnprocessableEntity
		}
		writeProblem(w, status, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}

	solver := cvrp.NewSolver(s.solveOptions(req))
	solver.Logger = log.Default()
	solver.Observer = s.Observer

	s.Broker.Publish(RunsTopic, Event{Type: "run.started", Data: map[string]any{"instance": inst.Name, "n": inst.N}})
	res, err := solver.Run(r.Context(), inst)
	if err != nil {
		failed := map[string]any{"instance": inst.Name, "error": err.Error()}
		s.Broker.Publish(RunsTopic, Event{Type: "run.failed", Data: failed})
		if s.Pub != nil {
			s.Pub.Emit("run.failed", failed)
		}
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		return
	}

	optimal, gap := -1.0, -1.0
	if v, ok := s.Config.Optimal(inst); ok {
		optimal, gap = v, report.Gap(res.Best.Cost, v)
	}
	rec := model.NewRunRecord(res, optimal, gap)
	if err := s.Store.SaveRun(r.Context(), &rec); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save run failed", err.Error(), r.URL.Path)
		return
	}
	summary := map[string]any{
		"id":         rec.ID,
		"instance":   rec.Instance,
		"bestCost":   rec.BestCost,
		"feasible":   rec.Feasible,
		"gapPercent": rec.Gap,
	}
	s.Broker.Publish(RunsTopic, Event{Type: "run.completed", Data: summary})
	if s.Pub != nil {
		s.Pub.Emit("run.completed", summary)
	}

	resp := model.SolveResponse{Run: rec}
	if req.IncludePopulation {
		resp.Population = res.Population
		resp.Scores = res.Best.Scores
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) decodeSolve(r *http.Request) (model.SolveRequest, *cvrp.Instance, error) {
	var req model.SolveRequest
	if strings.Contains(r.Header.Get("Content-Type"), "json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if err := validateSolveRequest(&req); err != nil {
			return req, nil, err
		}
		inst, err := req.Instance.ToInstance()
		return req, inst, err
	}

	if err := solveParamsFromQuery(r, &req); err != nil {
		return req, nil, err
	}
	inst, err := tsplib.Read(r.Body)
	if err != nil {
		return req, nil, err
	}
	if inst.N > maxNodes {
		return req, nil, fmt.Errorf("instance has %d nodes, limit is %d", inst.N, maxNodes)
	}
	if req.Vehicles < 0 || req.Vehicles > maxVehicles || req.Population < 0 || req.Population > maxPopulation || req.Generations < 0 {
		return req, nil, fmt.Errorf("parameters out of range")
	}
	return req, inst, nil
}

func solveParamsFromQuery(r *http.Request, req *model.SolveRequest) error {
	q := r.URL.Query()
	ints := map[string]*int{"vehicles": &req.Vehicles, "population": &req.Population, "generations": &req.Generations}
	for key, dst := range ints {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		req.Seed = n
	}
	if v := q.Get("preferFeasible"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("preferFeasible: %w", err)
		}
		req.PreferFeasible = &b
	}
	req.IncludePopulation = q.Get("includePopulation") == "true"
	return nil
}

// solveOptions overlays request parameters on the configured defaults.
func (s *Server) solveOptions(req model.SolveRequest) cvrp.Options {
	opts := s.Config.Solver.Options(0)
	if req.Vehicles > 0 {
		opts.Vehicles = req.Vehicles
	}
	if req.Population > 0 {
		opts.PopulationSize = req.Population
	}
	if req.Generations > 0 {
		opts.Generations = req.Generations
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	if req.PreferFeasible != nil {
		opts.PreferFeasible = *req.PreferFeasible
	}
	return opts
}

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error(), r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("instance"), q.Get("cursor"), limit)
	if errors.Is(err, store.ErrInvalidCursor) {
		writeProblem(w, http.StatusBadRequest, "Invalid cursor", err.Error(), r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rec, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SolverConfigHandler returns the default solver configuration
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"defaults": s.Config.Solver,
		"optima":   s.Config.Optima,
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
