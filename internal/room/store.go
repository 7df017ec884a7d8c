package room

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BeautifulBabe-MTM/penki-server/internal/database"
	"github.com/BeautifulBabe-MTM/penki-server/internal/engine"
	"github.com/BeautifulBabe-MTM/penki-server/internal/history"
)

// ErrRoomNotFound is returned when a room ID resolves to nothing.
var ErrRoomNotFound = errors.New("room not found")

// Store owns the live rooms and the shared collaborators every room
// gets wired with.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room

	recorder *history.Recorder
	results  *database.Store
	log      *logrus.Logger
}

// NewStore builds an empty registry. recorder and results may be nil.
func NewStore(recorder *history.Recorder, results *database.Store, logger *logrus.Logger) *Store {
	return &Store{
		rooms:    make(map[string]*Room),
		recorder: recorder,
		results:  results,
		log:      logger,
	}
}

// Create registers a new room with a fresh uuid.
func (s *Store) Create(cfg engine.Config) (*Room, error) {
	id := uuid.NewString()
	r, err := New(id, cfg, s.recorder, s.results, s.log)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rooms[id] = r
	s.mu.Unlock()
	s.log.WithField("room", id).Info("room created")
	return r, nil
}

// Get resolves a room by ID.
func (s *Store) Get(id string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// DestroyWhenEmpty removes the room if no connection remains attached.
// Called after every detach; a room with players still connected stays.
// The emptiness check and the delete happen under one lock so a
// concurrent attach cannot land on a room already removed here.
func (s *Store) DestroyWhenEmpty(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || !r.Empty() {
		return
	}
	delete(s.rooms, id)
	s.log.WithField("room", id).Info("room destroyed")
}

// Len reports the number of live rooms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
