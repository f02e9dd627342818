package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hungkimanh/gatest/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id             uuid PRIMARY KEY,
    instance       text NOT NULL,
    vehicles       integer NOT NULL,
    population     integer NOT NULL,
    generations    integer NOT NULL,
    seed           bigint NOT NULL,
    best_index     integer NOT NULL,
    best_cost      double precision NOT NULL,
    feasible       boolean NOT NULL,
    feasible_count integer NOT NULL,
    routes         jsonb NOT NULL,
    repairs        jsonb NOT NULL,
    optimal        double precision NOT NULL DEFAULT -1,
    gap            double precision NOT NULL DEFAULT -1,
    duration_ms    bigint NOT NULL,
    created_at     timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS runs_instance_idx ON runs (instance, id);
`

// Migrate creates the runs table when it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

const runColumns = `id::text, instance, vehicles, population, generations, seed, best_index, best_cost, feasible, feasible_count, routes, repairs, optimal, gap, duration_ms, created_at`

func (p *Postgres) SaveRun(ctx context.Context, rec *model.RunRecord) error {
	if err := stamp(rec); err != nil {
		return err
	}
	routes, err := json.Marshal(rec.Routes)
	if err != nil {
		return fmt.Errorf("store: encode routes: %w", err)
	}
	repairs, err := json.Marshal(rec.Repairs)
	if err != nil {
		return fmt.Errorf("store: encode repairs: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, instance, vehicles, population, generations, seed, best_index, best_cost, feasible, feasible_count, routes, repairs, optimal, gap, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET best_index=EXCLUDED.best_index, best_cost=EXCLUDED.best_cost, feasible=EXCLUDED.feasible, feasible_count=EXCLUDED.feasible_count, routes=EXCLUDED.routes, repairs=EXCLUDED.repairs, optimal=EXCLUDED.optimal, gap=EXCLUDED.gap, duration_ms=EXCLUDED.duration_ms`,
		rec.ID, rec.Instance, rec.Vehicles, rec.Population, rec.Generations, rec.Seed, rec.BestIndex, rec.BestCost,
		rec.Feasible, rec.FeasibleCount, string(routes), string(repairs), rec.Optimal, rec.Gap, rec.DurationMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save run: %w", err)
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.RunRecord, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id::text=$1`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, ErrNotFound
	}
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("store: get run: %w", err)
	}
	return rec, nil
}

func (p *Postgres) ListRuns(ctx context.Context, instance, cursor string, limit int) ([]model.RunRecord, string, error) {
	limit = clampLimit(limit)
	cursor, err := parseCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	query, args := listRunsQuery(instance, cursor, limit)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()
	out := []model.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, "", fmt.Errorf("store: list runs: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("store: list runs: %w", err)
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

// listRunsQuery builds the paging query. IDs are version 7 UUIDs, so id order
// is creation order.
func listRunsQuery(instance, cursor string, limit int) (string, []any) {
	var where []string
	var args []any
	if instance != "" {
		args = append(args, instance)
		where = append(where, fmt.Sprintf("instance=$%d", len(args)))
	}
	if cursor != "" {
		args = append(args, cursor)
		where = append(where, fmt.Sprintf("id > $%d::uuid", len(args)))
	}
	var b strings.Builder
	b.WriteString("SELECT " + runColumns + " FROM runs")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY id LIMIT $%d", len(args))
	return b.String(), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.RunRecord, error) {
	var rec model.RunRecord
	var routes, repairs []byte
	err := row.Scan(&rec.ID, &rec.Instance, &rec.Vehicles, &rec.Population, &rec.Generations, &rec.Seed,
		&rec.BestIndex, &rec.BestCost, &rec.Feasible, &rec.FeasibleCount, &routes, &repairs,
		&rec.Optimal, &rec.Gap, &rec.DurationMs, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	if err := decodeJSON(routes, &rec.Routes); err != nil {
		return rec, fmt.Errorf("decode routes: %w", err)
	}
	if err := decodeJSON(repairs, &rec.Repairs); err != nil {
		return rec, fmt.Errorf("decode repairs: %w", err)
	}
	return rec, nil
}

func decodeJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
