package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hungkimanh/gatest/internal/config"
	"github.com/hungkimanh/gatest/internal/cvrp"
	"github.com/hungkimanh/gatest/internal/metrics"
	"github.com/hungkimanh/gatest/internal/store"
	"github.com/hungkimanh/gatest/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Broker   EventBroker
	Config   config.Config
	Observer cvrp.Observer
	// Pub is nil when no webhook endpoints are configured.
	Pub *webhooks.Publisher
}

// NewServer creates a Server. If no database URL is configured, uses the
// in-memory store; without a Redis URL events stay in-process.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if dsn := strings.TrimSpace(cfg.Server.DatabaseURL); dsn == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := sp.Migrate(ctx)
			cancel()
			if err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker = NewBroker()
	if url := cfg.Server.RedisURL; url != "" {
		if rb, err := NewRedisBroker(url); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-process broker: %v", err)
		}
	}
	srv := &Server{Store: s, Broker: broker, Config: cfg, Observer: metrics.SolverObserver{}}
	if len(cfg.Server.Webhooks) > 0 {
		targets := make([]webhooks.Target, len(cfg.Server.Webhooks))
		for i, wh := range cfg.Server.Webhooks {
			targets[i] = webhooks.Target{URL: wh.URL, Secret: wh.Secret, Events: wh.Events}
		}
		srv.Pub = webhooks.NewPublisher(targets, 0)
	}
	return srv, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Pub, s.Config.Server.WebhookMaxAttempts)
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Solving and run history
	mux.HandleFunc("/v1/solve", s.SolveHandler)
	mux.HandleFunc("/v1/runs", s.RunsHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler)
	mux.HandleFunc("/v1/runs/ws", s.RunsWSHandler)
	mux.HandleFunc("/v1/runs/stream", s.RunsStreamHandler)
	mux.HandleFunc("/v1/solver/config", s.SolverConfigHandler)

	// Health
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)

	// Docs
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	// Ops
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/debug/vars", s.DebugJSON)
	return mux
}

// Handler wraps Routes with rate limiting and request logging.
func (s *Server) Handler() http.Handler {
	return LogMiddleware(RateLimit(s.Config.Server.RateRPS, s.Config.Server.RateBurst, s.Routes()))
}
