package store

import (
	"context"
	"sync"

	"github.com/hungkimanh/gatest/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu   sync.Mutex
	runs map[string]model.RunRecord
	ids  []string // insertion order
}

func NewMemory() *Memory {
	return &Memory{runs: map[string]model.RunRecord{}}
}

func (m *Memory) SaveRun(ctx context.Context, rec *model.RunRecord) error {
	if err := stamp(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[rec.ID]; !ok {
		m.ids = append(m.ids, rec.ID)
	}
	m.runs[rec.ID] = *rec
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.RunRecord{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, instance, cursor string, limit int) ([]model.RunRecord, string, error) {
	cursor, err := parseCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	// IDs are version 7 UUIDs saved in creation order, so the page starts at
	// the first ID sorting after the cursor, as in Postgres.
	start := 0
	if cursor != "" {
		start = len(m.ids)
		for i, id := range m.ids {
			if id > cursor {
				start = i
				break
			}
		}
	}
	out := []model.RunRecord{}
	var next string
	for i := start; i < len(m.ids) && len(out) < limit; i++ {
		r := m.runs[m.ids[i]]
		if instance == "" || r.Instance == instance {
			out = append(out, r)
		}
		next = m.ids[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
