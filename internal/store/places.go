package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

// LoadCategories reads the places catalogue grouped by category key, in
// position order.
func (s *Store) LoadCategories(ctx context.Context) (map[string][]tour.Place, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, title, address
		FROM places
		ORDER BY category, position, title`)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]tour.Place)
	for rows.Next() {
		var (
			category string
			p        tour.Place
		)
		if err := rows.Scan(&category, &p.Title, &p.Address); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		out[category] = append(out[category], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate places: %w", err)
	}
	return out, nil
}

// ReplaceCategories swaps the whole catalogue in one transaction.
func (s *Store) ReplaceCategories(ctx context.Context, index map[string][]tour.Place) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM places`); err != nil {
		return 0, fmt.Errorf("clear places: %w", err)
	}

	n := 0
	for category, places := range index {
		for i, p := range places {
			_, err := tx.Exec(ctx, `
				INSERT INTO places (category, title, address, position)
				VALUES ($1, $2, $3, $4)`,
				category, p.Title, p.Address, i,
			)
			if err != nil {
				return 0, fmt.Errorf("insert place %q: %w", p.Title, err)
			}
			n++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
