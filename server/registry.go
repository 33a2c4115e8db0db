package server

import (
	"sync"
)

// Handle addresses a session slot. A handle outlives its session harmlessly:
// once the slot is released its generation moves on and Get rejects it.
type Handle struct {
	Index      int
	Generation uint32
}

type slot struct {
	generation uint32
	session    *PlayerSession
	started    bool
}

// Registry is the arena of connected sessions. A session's player id is its
// slot index + 1, so ids are reused once a slot is vacant.
type Registry struct {
	mu       sync.Mutex
	slots    []slot
	reserved map[uint32]bool
}

// NewRegistry never hands out the given player ids.
func NewRegistry(reserved ...uint32) *Registry {
	r := &Registry{reserved: make(map[uint32]bool)}
	for _, id := range reserved {
		r.reserved[id] = true
	}
	return r
}

// Acquire seats ps in the first vacant slot and assigns its handle and id.
func (r *Registry) Acquire(ps *PlayerSession) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := -1
	for i := range r.slots {
		if r.slots[i].session == nil && !r.reserved[uint32(i+1)] {
			index = i
			break
		}
	}
	if index < 0 {
		for r.reserved[uint32(len(r.slots)+1)] {
			r.slots = append(r.slots, slot{})
		}
		index = len(r.slots)
		r.slots = append(r.slots, slot{})
	}

	s := &r.slots[index]
	s.session = ps
	s.started = false
	ps.Handle = Handle{Index: index, Generation: s.generation}
	ps.Id = uint32(index + 1)
	return ps.Handle
}

// Start makes the session visible to Each.
func (r *Registry) Start(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.slot(h)
	if err != nil {
		return err
	}
	s.started = true
	return nil
}

func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.slot(h)
	if err != nil {
		return err
	}
	s.session = nil
	s.started = false
	s.generation++
	return nil
}

func (r *Registry) Get(h Handle) (*PlayerSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.slot(h)
	if err != nil {
		return nil, err
	}
	return s.session, nil
}

// Each visits every started session. fn runs under the registry lock and
// must not call back into the registry.
func (r *Registry) Each(fn func(*PlayerSession)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.session != nil && s.started {
			fn(s.session)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slots {
		if s.session != nil {
			n++
		}
	}
	return n
}

func (r *Registry) slot(h Handle) (*slot, error) {
	if h.Index < 0 || h.Index >= len(r.slots) {
		return nil, ErrStaleHandle
	}
	s := &r.slots[h.Index]
	if s.session == nil || s.generation != h.Generation {
		return nil, ErrStaleHandle
	}
	return s, nil
}
