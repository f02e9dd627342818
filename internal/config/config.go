// Package config loads solver and service settings from an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"

	"github.com/hungkimanh/gatest/internal/cvrp"
)

// Solver holds the construction parameters of a run.
type Solver struct {
	Vehicles       int   `yaml:"vehicles"`
	Population     int   `yaml:"population"`
	Generations    int   `yaml:"generations"`
	Runs           int   `yaml:"runs"`
	Seed           int64 `yaml:"seed"`
	Workers        int   `yaml:"workers"`
	PreferFeasible bool  `yaml:"preferFeasible"`
}

// Server holds the HTTP service settings.
type Server struct {
	Port        string  `yaml:"port"`
	DatabaseURL string  `yaml:"databaseUrl"`
	RedisURL    string  `yaml:"redisUrl"`
	RateRPS     float64 `yaml:"rateRps"`
	RateBurst   int     `yaml:"rateBurst"`
	// MaxBodyBytes caps instance uploads.
	MaxBodyBytes       int64     `yaml:"maxBodyBytes"`
	Webhooks           []Webhook `yaml:"webhooks"`
	WebhookMaxAttempts int       `yaml:"webhookMaxAttempts"`
}

// Webhook is an endpoint notified of run events. Empty Events means all.
type Webhook struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

// Config is the full application configuration.
type Config struct {
	Solver Solver `yaml:"solver"`
	Server Server `yaml:"server"`
	// Optima maps instance names to known optimal costs, used for GAP.
	Optima map[string]float64 `yaml:"optima"`
	// ReportPath is the CSV file run records are appended to.
	ReportPath string `yaml:"reportPath"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Solver: Solver{
			Population:  cvrp.DefaultPopulationSize,
			Generations: 100,
			Runs:        1,
			Workers:     1,
		},
		Server: Server{
			Port:               "8080",
			RateRPS:            10,
			RateBurst:          20,
			MaxBodyBytes:       8 << 20,
			WebhookMaxAttempts: 10,
		},
		Optima: map[string]float64{
			"CMT1":     524.61,
			"CMT2":     835.26,
			"CMT3":     826.14,
			"E-n51-k5": 521,
		},
		ReportPath: "results.csv",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file if present, and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Server.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Server.RedisURL = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Server.Webhooks = append(c.Server.Webhooks, Webhook{URL: v, Secret: os.Getenv("WEBHOOK_SECRET")})
	}
	if v := os.Getenv("GATEST_REPORT"); v != "" {
		c.ReportPath = v
	}
	var errs []error
	envFloat("RATE_RPS", &c.Server.RateRPS, &errs)
	envInt("RATE_BURST", &c.Server.RateBurst, &errs)
	envInt("WEBHOOK_MAX_ATTEMPTS", &c.Server.WebhookMaxAttempts, &errs)
	envInt("GATEST_VEHICLES", &c.Solver.Vehicles, &errs)
	envInt("GATEST_POPULATION", &c.Solver.Population, &errs)
	envInt("GATEST_GENERATIONS", &c.Solver.Generations, &errs)
	envInt("GATEST_RUNS", &c.Solver.Runs, &errs)
	envInt("GATEST_WORKERS", &c.Solver.Workers, &errs)
	if v := os.Getenv("GATEST_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GATEST_SEED: %w", err))
		} else {
			c.Solver.Seed = n
		}
	}
	if v := os.Getenv("GATEST_PREFER_FEASIBLE"); v != "" {
		c.Solver.PreferFeasible = strings.EqualFold(v, "true") || v == "1"
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

func envInt(key string, dst *int, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

// Validate checks value ranges.
func (c Config) Validate() error {
	s := c.Solver
	switch {
	case s.Vehicles < 0:
		return fmt.Errorf("config: vehicles must be >= 0 (got %d)", s.Vehicles)
	case s.Population <= 0:
		return fmt.Errorf("config: population must be > 0 (got %d)", s.Population)
	case s.Generations < 0:
		return fmt.Errorf("config: generations must be >= 0 (got %d)", s.Generations)
	case s.Runs <= 0:
		return fmt.Errorf("config: runs must be > 0 (got %d)", s.Runs)
	case s.Workers < 1:
		return fmt.Errorf("config: workers must be >= 1 (got %d)", s.Workers)
	case c.Server.RateRPS < 0:
		return fmt.Errorf("config: rateRps must be >= 0 (got %g)", c.Server.RateRPS)
	case c.Server.RateBurst < 0:
		return fmt.Errorf("config: rateBurst must be >= 0 (got %d)", c.Server.RateBurst)
	case c.Server.WebhookMaxAttempts < 0:
		return fmt.Errorf("config: webhookMaxAttempts must be >= 0 (got %d)", c.Server.WebhookMaxAttempts)
	}
	for i, wh := range c.Server.Webhooks {
		if !strings.HasPrefix(wh.URL, "http://") && !strings.HasPrefix(wh.URL, "https://") {
			return fmt.Errorf("config: webhooks[%d]: url must be http(s) (got %q)", i, wh.URL)
		}
	}
	return nil
}

// Options converts the solver section into cvrp.Options. seedOffset is added
// to a non-zero seed so repeated runs draw different populations.
func (s Solver) Options(seedOffset int64) cvrp.Options {
	seed := s.Seed
	if seed != 0 {
		seed += seedOffset
	}
	return cvrp.Options{
		Vehicles:       s.Vehicles,
		PopulationSize: s.Population,
		Generations:    s.Generations,
		Seed:           seed,
		Workers:        s.Workers,
		PreferFeasible: s.PreferFeasible,
	}
}

// Optimal returns the known optimal cost for an instance, preferring the
// configured table over the value carried by the instance file.
func (c Config) Optimal(inst *cvrp.Instance) (float64, bool) {
	if v, ok := c.Optima[inst.Name]; ok {
		return v, true
	}
	if inst.Optimal > 0 {
		return inst.Optimal, true
	}
	return 0, false
}
