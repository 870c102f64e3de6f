package store

import (
	"context"
	"sync"

	"benefind/internal/screening/models"
	id "benefind/pkg/domain"
	"benefind/pkg/platform/sentinel"
)

// InMemoryStore keeps screenings in process memory. Used for local runs and
// tests; contents are lost on restart.
type InMemoryStore struct {
	mu         sync.RWMutex
	screenings map[id.ScreeningID]*models.Screening
	byOwner    map[models.Owner][]id.ScreeningID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		screenings: make(map[id.ScreeningID]*models.Screening),
		byOwner:    make(map[models.Owner][]id.ScreeningID),
	}
}

func (s *InMemoryStore) Save(_ context.Context, screening *models.Screening) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.screenings[screening.ID]; !exists {
		s.byOwner[screening.Owner] = append(s.byOwner[screening.Owner], screening.ID)
	}
	cp := *screening
	s.screenings[screening.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sid id.ScreeningID) (*models.Screening, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.screenings[sid]; ok {
		cp := *sc
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Latest(ctx context.Context, owner models.Owner) (*models.Screening, error) {
	list, err := s.ListByOwner(ctx, owner, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return list[0], nil
}

// ListByOwner returns newest first. Screenings with equal CreatedAt keep
// reverse save order.
func (s *InMemoryStore) ListByOwner(_ context.Context, owner models.Owner, limit int) ([]*models.Screening, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[owner]
	out := make([]*models.Screening, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *s.screenings[ids[i]]
		out = append(out, &cp)
	}
	// Save order is usually creation order; a stable sort fixes the rest.
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
