package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/bytedance/sonic"

	"github.com/MikeSquared-Agency/wayfarer/internal/tour"
)

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"

	// SampleSize is how many candidate places are offered to the model.
	SampleSize = 4
)

var ErrUnavailable = errors.New("category index unavailable")

// Index maps a category key to its places, in document order.
type Index map[string][]tour.Place

// PlaceSource loads an index from an external store.
type PlaceSource interface {
	LoadCategories(ctx context.Context) (map[string][]tour.Place, error)
}

// LoadFile reads a JSON document of the form {"1": [{"title": ..., "address": ...}], ...}.
func LoadFile(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category index: %w", err)
	}

	var idx Index
	if err := sonic.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode category index %s: %w", path, err)
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("category index %s is empty", path)
	}
	return idx, nil
}

// Catalog is the read-only index shared by all sessions. It is never
// mutated after construction.
type Catalog struct {
	index  Index
	reason error
}

func NewCatalog(idx Index) *Catalog {
	return &Catalog{index: idx}
}

// Unavailable returns a catalog that samples nothing.
func Unavailable(reason error) *Catalog {
	return &Catalog{reason: fmt.Errorf("%w: %v", ErrUnavailable, reason)}
}

// Load builds the catalog from the configured source. Failures degrade to an
// unavailable catalog and are logged, never returned.
func Load(ctx context.Context, source, path string, db PlaceSource, logger *slog.Logger) *Catalog {
	var (
		idx Index
		err error
	)
	switch source {
	case SourcePostgres:
		if db == nil {
			err = errors.New("postgres source selected without a database")
			break
		}
		var m map[string][]tour.Place
		m, err = db.LoadCategories(ctx)
		if err == nil && len(m) == 0 {
			err = errors.New("places table is empty")
		}
		idx = Index(m)
	default:
		idx, err = LoadFile(path)
	}

	if err != nil {
		logger.Warn("category index unavailable", "source", source, "path", path, "error", err)
		return Unavailable(err)
	}

	logger.Info("category index loaded", "source", source, "categories", len(idx))
	return NewCatalog(idx)
}

func (c *Catalog) Available() bool {
	return c != nil && c.index != nil
}

// Err explains why the catalog is unavailable.
func (c *Catalog) Err() error {
	if c == nil {
		return ErrUnavailable
	}
	return c.reason
}

// Sample returns up to n distinct places from category key in random order.
// Unknown keys and an unavailable catalog yield nil.
func (c *Catalog) Sample(key string, n int) []tour.Place {
	if !c.Available() || n <= 0 {
		return nil
	}

	places := distinct(c.index[key])
	if len(places) == 0 {
		return nil
	}
	if n > len(places) {
		n = len(places)
	}

	out := make([]tour.Place, 0, n)
	for _, i := range rand.Perm(len(places))[:n] {
		out = append(out, places[i])
	}
	return out
}

func distinct(places []tour.Place) []tour.Place {
	seen := make(map[tour.Place]struct{}, len(places))
	out := make([]tour.Place, 0, len(places))
	for _, p := range places {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
