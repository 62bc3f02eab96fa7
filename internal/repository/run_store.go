package repository

import (
	"context"
	"sync"

	"BreakoutScan/internal/domain/models"
)

// MemoryRunStore keeps the most recent finalized run for the read API.
type MemoryRunStore struct {
	mu  sync.RWMutex
	run *models.ScanRun
}

func NewMemoryRunStore() *MemoryRunStore { return &MemoryRunStore{} }

func (s *MemoryRunStore) Save(_ context.Context, run *models.ScanRun) error {
	s.mu.Lock()
	s.run = run
	s.mu.Unlock()
	return nil
}

func (s *MemoryRunStore) Latest(_ context.Context) (*models.ScanRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.run == nil {
		return nil, models.ErrNoRun
	}
	return s.run, nil
}
