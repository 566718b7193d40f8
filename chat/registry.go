package chat

import (
	"sort"
	"sync"
)

// Set tracks membership by identifier.
type Set map[string]struct{}

// Registry is the authoritative mapping between rooms and member
// connections. Both directions are kept under one lock so concurrent
// join, leave and disconnect cannot tear the membership apart.
type Registry struct {
	mu          sync.RWMutex
	roomMembers map[string]Set // room -> member connection ids
	connRooms   map[string]Set // connection id -> joined rooms
}

func NewRegistry() *Registry {
	return &Registry{
		roomMembers: make(map[string]Set),
		connRooms:   make(map[string]Set),
	}
}

// Join adds the connection to the room, creating the room on first join.
// Joining an already-joined room is a no-op that still succeeds.
func (r *Registry) Join(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][connID] = struct{}{}

	if _, ok := r.connRooms[connID]; !ok {
		r.connRooms[connID] = make(Set)
	}
	r.connRooms[connID][roomID] = struct{}{}
}

// Leave removes the connection from the room; absent members are a no-op.
// A room emptied by Leave stays registered, nothing reclaims it.
func (r *Registry) Leave(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, connID)
	}
	if rooms, ok := r.connRooms[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.connRooms, connID)
		}
	}
}

// RemoveConnection removes the connection from every room it had joined
// and returns the affected room identifiers so the caller can notify each
// room's remaining members.
func (r *Registry) RemoveConnection(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.connRooms[connID]
	if !ok {
		return nil
	}

	affected := make([]string, 0, len(rooms))
	for roomID := range rooms {
		if members, exists := r.roomMembers[roomID]; exists {
			delete(members, connID)
		}
		affected = append(affected, roomID)
	}
	delete(r.connRooms, connID)

	sort.Strings(affected)
	return affected
}

// MembersOf returns the current member connection ids of a room, empty for
// unknown rooms. The slice is a snapshot, sorted for deterministic fan-out.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rooms counts registered rooms, dangling empty ones included.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roomMembers)
}

// Connections counts connections currently joined to at least one room.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connRooms)
}
