package store

import (
	"context"
	"sort"
	"sync"

	"secret.share/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	secrets map[string]*models.Secret
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]*models.Secret)}
}

func (s *MemoryStore) Create(ctx context.Context, secret *models.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[secret.ID]; ok {
		return ErrExists
	}
	s.secrets[secret.ID] = secret.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return secret.Clone(), nil
}

func (s *MemoryStore) CompareAndUpdate(ctx context.Context, id string, expectedViews int, next models.ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.secrets[id]
	if !ok {
		return ErrNotFound
	}
	if secret.ViewCount != expectedViews || secret.IsExpired {
		return ErrConflict
	}
	secret.ViewCount = next.ViewCount
	secret.IsExpired = next.IsExpired
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Secret, 0, len(s.secrets))
	for _, secret := range s.secrets {
		out = append(out, secret.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[id]; !ok {
		return ErrNotFound
	}
	delete(s.secrets, id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets = make(map[string]*models.Secret)
	return nil
}
