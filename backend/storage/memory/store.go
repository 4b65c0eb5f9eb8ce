package memory

import (
	"errors"
	"sync"

	"github.com/adwski/fourseat/backend/session"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session is not found")
)

// MemStore keeps running sessions by id. A session removes itself once its
// orchestrator exits.
type MemStore struct {
	mx *sync.Mutex
	db map[string]*session.Session
}

func NewMemStore() *MemStore {
	return &MemStore{
		mx: &sync.Mutex{},
		db: make(map[string]*session.Session),
	}
}

func (ms *MemStore) AddSession(s *session.Session) error {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	if _, ok := ms.db[s.ID()]; ok {
		return ErrSessionExists
	}
	ms.db[s.ID()] = s

	go func() {
		<-s.Done()
		ms.mx.Lock()
		if ms.db[s.ID()] == s {
			delete(ms.db, s.ID())
		}
		ms.mx.Unlock()
	}()
	return nil
}

func (ms *MemStore) GetSession(id string) (*session.Session, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	s, ok := ms.db[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CloseAll aborts every stored session.
func (ms *MemStore) CloseAll() {
	ms.mx.Lock()
	sessions := make([]*session.Session, 0, len(ms.db))
	for _, s := range ms.db {
		sessions = append(sessions, s)
	}
	ms.mx.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (ms *MemStore) Len() int {
	ms.mx.Lock()
	defer ms.mx.Unlock()
	return len(ms.db)
}
