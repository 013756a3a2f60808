package service

import (
	"context"
	"sync"
	"time"

	"github.com/Ideas2IT/I2I-AuctionHub/internal/clock"
	"github.com/Ideas2IT/I2I-AuctionHub/internal/models"
)

type pendingDraw struct {
	draw      models.Draw
	expiresAt time.Time
}

// MemoryDrawStore keeps pending draws in process. Used when Redis is not configured.
type MemoryDrawStore struct {
	mu    sync.Mutex
	clock clock.Clock
	draws map[string]pendingDraw
}

// NewMemoryDrawStore creates an empty in-process draw store
func NewMemoryDrawStore(clk clock.Clock) *MemoryDrawStore {
	return &MemoryDrawStore{clock: clk, draws: make(map[string]pendingDraw)}
}

func (m *MemoryDrawStore) Save(_ context.Context, draw models.Draw, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draws[draw.ID] = pendingDraw{draw: draw, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

func (m *MemoryDrawStore) Get(_ context.Context, id string) (models.Draw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.draws[id]
	if !ok {
		return models.Draw{}, models.ErrDrawNotFound
	}
	if !m.clock.Now().Before(p.expiresAt) {
		delete(m.draws, id)
		return models.Draw{}, models.ErrDrawNotFound
	}
	return p.draw, nil
}

func (m *MemoryDrawStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.draws, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryDrawStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.draws = make(map[string]pendingDraw)
	m.mu.Unlock()
	return nil
}
