package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generation is the audit record of one route generation attempt.
type Generation struct {
	ID          uuid.UUID
	ChatID      int64
	Provider    string
	Mode        string
	Status      string // ok | remote_error | timeout | transport_error | parse_error
	OperationID string
	PromptChars int
	Points      int
	Duration    time.Duration
	CreatedAt   time.Time
}

// RecordGeneration inserts g, assigning an ID when it has none.
func (s *Store) RecordGeneration(ctx context.Context, g Generation) (uuid.UUID, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO route_generations (id, chat_id, provider, mode, status, operation_id, prompt_chars, points, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		g.ID, g.ChatID, g.Provider, g.Mode, g.Status, g.OperationID, g.PromptChars, g.Points, g.Duration.Milliseconds(), g.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert generation: %w", err)
	}
	return g.ID, nil
}

// GenerationStats summarises generation outcomes since a point in time.
type GenerationStats struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	AvgDurationMs int64          `json:"avg_duration_ms"`
}

func (s *Store) GenerationStats(ctx context.Context, since time.Time) (*GenerationStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, count(*), coalesce(avg(duration_ms), 0)::bigint
		FROM route_generations
		WHERE created_at >= $1
		GROUP BY status`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query generation stats: %w", err)
	}
	defer rows.Close()

	stats := &GenerationStats{ByStatus: make(map[string]int)}
	var weighted int64
	for rows.Next() {
		var (
			status string
			count  int
			avg    int64
		)
		if err := rows.Scan(&status, &count, &avg); err != nil {
			return nil, fmt.Errorf("scan generation stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
		weighted += avg * int64(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation stats: %w", err)
	}
	if stats.Total > 0 {
		stats.AvgDurationMs = weighted / int64(stats.Total)
	}
	return stats, nil
}
