package session

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process. Entries expire after ttl without
// activity.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		cache: cache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Get(_ context.Context, chatID int64) (Session, error) {
	v, ok := m.cache.Get(key(chatID))
	if !ok {
		return idle(), nil
	}
	return v.(Session), nil
}

func (m *MemoryStore) Put(_ context.Context, chatID int64, s Session) error {
	s.UpdatedAt = time.Now().UTC()
	m.cache.Set(key(chatID), s, m.ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, chatID int64) error {
	m.cache.Delete(key(chatID))
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
