package api

import (
	"net/http"
	"time"

	"github.com/hungkimanh/gatest/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":             cfg.Server.Port,
			"RATE_RPS":         cfg.Server.RateRPS,
			"RATE_BURST":       cfg.Server.RateBurst,
			"WORKERS":          cfg.Solver.Workers,
			"POPULATION":       cfg.Solver.Population,
			"HAS_DATABASE_URL": cfg.Server.DatabaseURL != "",
			"HAS_REDIS_URL":    cfg.Server.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
