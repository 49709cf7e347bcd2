package rooms

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Store is the in-memory room registry. It lives for the whole process and
// needs no shutdown.
//
// Lock order is room before registry: mu is never held while acquiring a
// Room's lock.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

// EnsureRoom returns the room for id, creating an empty one if needed.
func (s *Store) EnsureRoom(id string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		room = newRoom(id)
		s.rooms[id] = room
		log.Debug().Str("room_id", id).Msg("room created")
	}
	return room
}

// GetRoom returns the room for id. A miss is normal while a join races a
// disconnect.
func (s *Store) GetRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

// Update runs fn with the room's lock held, so capacity and readiness checks
// inside fn are atomic with respect to every other handler for that room.
// With create set a missing room is created first; otherwise a missing room
// makes Update return false without calling fn.
func (s *Store) Update(id string, create bool, fn func(r *Room)) bool {
	for {
		var room *Room
		if create {
			room = s.EnsureRoom(id)
		} else {
			var ok bool
			room, ok = s.GetRoom(id)
			if !ok {
				return false
			}
		}

		room.mu.Lock()
		if room.retired {
			// Emptied and deleted after we looked it up; the map now holds
			// a newer room or none.
			room.mu.Unlock()
			continue
		}
		fn(room)
		room.mu.Unlock()
		return true
	}
}

// RemovePlayer drops connID's slot and Player from the room. The removed
// Player is returned when one existed. A room left with nobody is deleted in
// the same step. Absent room or connection is a no-op.
func (s *Store) RemovePlayer(id, connID string) (Player, bool) {
	room, ok := s.GetRoom(id)
	if !ok {
		return Player{}, false
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.retired {
		return Player{}, false
	}

	player, removed := room.remove(connID)
	if room.empty() {
		room.retired = true
		s.mu.Lock()
		if s.rooms[id] == room {
			delete(s.rooms, id)
		}
		s.mu.Unlock()
		log.Debug().Str("room_id", id).Msg("room deleted")
	}
	return player, removed
}

// Stats counts live rooms and readied players.
type Stats struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	s.mu.Unlock()

	stats := Stats{Rooms: len(list)}
	for _, r := range list {
		r.mu.Lock()
		stats.Players += r.PlayerCount()
		r.mu.Unlock()
	}
	return stats
}
