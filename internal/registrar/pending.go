package registrar

import (
	"sync"

	"github.com/gameontext/room/internal/engine"
)

// PendingSet holds the rooms whose map registration has not yet been
// confirmed. The reconciler tick iterates a snapshot and removes rooms as
// they synchronize, while the skip check reads Empty concurrently.
type PendingSet struct {
	mu    sync.RWMutex
	rooms map[string]*engine.Room
}

func NewPendingSet() *PendingSet {
	return &PendingSet{rooms: make(map[string]*engine.Room)}
}

func (p *PendingSet) Add(r *engine.Room) {
	p.mu.Lock()
	p.rooms[r.ID()] = r
	p.mu.Unlock()
}

func (p *PendingSet) Remove(id string) {
	p.mu.Lock()
	delete(p.rooms, id)
	p.mu.Unlock()
}

func (p *PendingSet) Empty() bool {
	return p.Len() == 0
}

func (p *PendingSet) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}

// Snapshot returns the pending rooms at this instant. Safe to iterate while
// other goroutines add or remove.
func (p *PendingSet) Snapshot() []*engine.Room {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rooms := make([]*engine.Room, 0, len(p.rooms))
	for _, r := range p.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}
