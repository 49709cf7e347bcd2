package rooms

import "sync"

// Capacity is the number of player slots in a room.
const Capacity = 2

// Player is a participant that has sent player_ready. It is owned by its Room
// and keyed by connection, not by username.
type Player struct {
	ConnID       string
	Username     string
	Ready        bool
	PlayerNumber int
}

// Room is the relay's view of one shared typing session. Its fields must only
// be touched through Store.Update or Store.RemovePlayer, which hold mu.
type Room struct {
	ID          string
	GameStarted bool

	mu      sync.Mutex
	retired bool
	slots   map[string]int // connection ID -> player number, assigned at join
	players map[string]*Player
	order   []string // connection IDs of players in join order
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		slots:   make(map[string]int),
		players: make(map[string]*Player),
	}
}

// MemberCount is the number of connections holding a player slot.
func (r *Room) MemberCount() int { return len(r.slots) }

// PlayerCount is the number of connections that have readied.
func (r *Room) PlayerCount() int { return len(r.players) }

// AssignSlot gives connID the lowest free player number. It reports false when
// the room is full. Assigning twice to the same connection returns the same slot.
func (r *Room) AssignSlot(connID string) (int, bool) {
	if n, ok := r.slots[connID]; ok {
		return n, true
	}
	if len(r.slots) >= Capacity {
		return 0, false
	}
	taken := make(map[int]bool, len(r.slots))
	for _, n := range r.slots {
		taken[n] = true
	}
	n := 1
	for taken[n] {
		n++
	}
	r.slots[connID] = n
	return n, true
}

// SetPlayer inserts or overwrites the Player for connID with ready set. The
// connection must already hold a slot; the slot number becomes PlayerNumber.
func (r *Room) SetPlayer(connID, username string) (*Player, bool) {
	n, ok := r.slots[connID]
	if !ok {
		return nil, false
	}
	p, exists := r.players[connID]
	if !exists {
		p = &Player{ConnID: connID}
		r.players[connID] = p
		r.order = append(r.order, connID)
	}
	p.Username = username
	p.Ready = true
	p.PlayerNumber = n
	return p, true
}

// Player returns a copy of the Player for connID.
func (r *Room) Player(connID string) (Player, bool) {
	p, ok := r.players[connID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns copies of all players in join order.
func (r *Room) Players() []Player {
	list := make([]Player, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, *r.players[id])
	}
	return list
}

// AllReady reports whether the room is at capacity with every player ready.
func (r *Room) AllReady() bool {
	if len(r.players) != Capacity {
		return false
	}
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Room) remove(connID string) (Player, bool) {
	delete(r.slots, connID)
	p, ok := r.players[connID]
	if !ok {
		return Player{}, false
	}
	delete(r.players, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *p, true
}

func (r *Room) empty() bool {
	return len(r.slots) == 0 && len(r.players) == 0
}
