package draft

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a draft with the given ID is not found.
var ErrNotFound = errors.New("draft not found")

// ErrEmptyID is returned when trying to store a draft with an empty ID.
var ErrEmptyID = errors.New("empty draft ID")

// Storage is the main interface for our draft storage layer. Drafts are
// ephemeral, so Delete is part of the contract: submit and cancel both
// discard the draft.
type Storage interface {
	Set(d *Draft) error
	Read(id string) (*Draft, error)
	Delete(id string) error
}

// LocalStorage provides an in-memory implementation for storing drafts.
// Handlers run concurrently, so access is guarded.
type LocalStorage struct {
	mu sync.Mutex
	m  map[string]*Draft
}

// NewLocalStorage instantiates a new LocalStorage for drafts with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]*Draft{},
	}
}

// Set stores a draft. Returns ErrEmptyID if the draft has an empty ID.
func (l *LocalStorage) Set(d *Draft) error {
	if d.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[d.ID] = d
	return nil
}

// Read retrieves a draft from the local storage by ID.
// Returns ErrNotFound if the draft is not found.
func (l *LocalStorage) Read(id string) (*Draft, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// Delete discards a draft. Returns ErrNotFound if the draft is not found.
func (l *LocalStorage) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.m[id]; !ok {
		return ErrNotFound
	}
	delete(l.m, id)
	return nil
}
