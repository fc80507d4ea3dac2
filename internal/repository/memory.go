package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/otodzorelashvili/Sea-Backend/internal/models"
)

// MemoryStore keeps messages in-process. Used when no Mongo URI is configured
// and as the storage double in tests.
type MemoryStore struct {
	mu   sync.Mutex
	seq  int
	msgs map[string]*models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{msgs: make(map[string]*models.Message)}
}

func (s *MemoryStore) InsertMessage(_ context.Context, m *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	m.ID = "m" + strconv.Itoa(s.seq)
	m.Status = models.StatusSent
	m.CreatedAt = time.Now().UTC()
	cp := *m
	s.msgs[m.ID] = &cp
	return m, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, ids []string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if m, ok := s.msgs[id]; ok {
			m.Status = status
		}
	}
	return nil
}

func (s *MemoryStore) SendersOf(_ context.Context, ids []string) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string)
	for _, id := range ids {
		if m, ok := s.msgs[id]; ok {
			out[m.SenderID] = append(out[m.SenderID], id)
		}
	}
	return out, nil
}

// Get returns a stored message by id, for assertions in tests.
func (s *MemoryStore) Get(id string) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, false
	}
	cp := *m
	return &cp, true
}

// Len reports the number of stored messages.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}
