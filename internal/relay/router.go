// Package relay applies the room protocol to inbound frames. The Router holds
// no room state of its own beyond which room each connection was assigned to;
// membership lives in rooms.Store and fan-out in wshub.Hub.
//
// Lookups that fail (unknown room, connection without a slot, malformed
// payload) are dropped and logged at debug level. Clients never see a
// protocol error.
package relay

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"codetyper/internal/protocol"
	"codetyper/internal/rooms"
	"codetyper/internal/wshub"
)

type Router struct {
	rooms *rooms.Store
	hub   *wshub.Hub

	mu       sync.Mutex
	sessions map[string]string // connection ID -> room ID
}

func NewRouter(store *rooms.Store, hub *wshub.Hub) *Router {
	return &Router{
		rooms:    store,
		hub:      hub,
		sessions: make(map[string]string),
	}
}

// Connect registers a new connection with the hub. Every Connect must be
// paired with a HandleDisconnect.
func (rt *Router) Connect(c *wshub.Client) {
	rt.hub.Register(c)
	log.Info().Str("conn_id", c.ID).Msg("connection opened")
}

// RoomOf returns the room connID holds a player slot in.
func (rt *Router) RoomOf(connID string) (string, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	roomID, ok := rt.sessions[connID]
	return roomID, ok
}

func (rt *Router) bind(connID, roomID string) {
	rt.mu.Lock()
	rt.sessions[connID] = roomID
	rt.mu.Unlock()
}

func (rt *Router) unbind(connID string) (string, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	roomID, ok := rt.sessions[connID]
	delete(rt.sessions, connID)
	return roomID, ok
}

// HandleFrame decodes one inbound frame and dispatches it.
func (rt *Router) HandleFrame(connID string, frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		log.Debug().Err(err).Str("conn_id", connID).Msg("dropping undecodable frame")
		return
	}

	if !protocol.IsInbound(msg.Event) {
		rt.drop(connID, msg.Event, protocol.ErrUnknownEvent.Error())
		return
	}

	switch msg.Event {
	case protocol.EventJoinRoom:
		var p protocol.JoinRoom
		if err := protocol.DecodeData(msg, &p); err != nil {
			rt.drop(connID, msg.Event, err.Error())
			return
		}
		rt.HandleJoin(connID, p.RoomID)
	case protocol.EventPlayerReady:
		var p protocol.PlayerReady
		if err := protocol.DecodeData(msg, &p); err != nil {
			rt.drop(connID, msg.Event, err.Error())
			return
		}
		rt.HandleReady(connID, p.Username)
	case protocol.EventPlayerUpdate:
		rt.HandleUpdate(connID, msg.Data)
	}
}

// HandleJoin subscribes the connection to the room's channel and either
// assigns it a player slot or answers room_full. A rejected connection stays
// subscribed to the channel but never gets a slot.
func (rt *Router) HandleJoin(connID, roomID string) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		rt.drop(connID, protocol.EventJoinRoom, "empty room id")
		return
	}
	if current, ok := rt.RoomOf(connID); ok && current != roomID {
		rt.drop(connID, protocol.EventJoinRoom, "connection already bound to "+current)
		return
	}

	rt.hub.Join(roomID, connID)
	rt.rooms.Update(roomID, true, func(r *rooms.Room) {
		n, ok := r.AssignSlot(connID)
		if !ok {
			log.Info().Str("conn_id", connID).Str("room_id", roomID).Msg("room full")
			rt.sendTo(connID, protocol.EventRoomFull, nil)
			return
		}
		rt.bind(connID, roomID)
		log.Info().
			Str("conn_id", connID).
			Str("room_id", roomID).
			Int("player_number", n).
			Msg("player slot assigned")
		rt.sendTo(connID, protocol.EventPlayerAssigned, protocol.PlayerAssigned{PlayerNumber: n})
	})
}

// HandleReady creates or refreshes the connection's Player and starts the
// game once both slots hold ready players. game_start is sent at most once
// per room.
func (rt *Router) HandleReady(connID, username string) {
	roomID, ok := rt.RoomOf(connID)
	if !ok {
		rt.drop(connID, protocol.EventPlayerReady, "no room")
		return
	}

	found := rt.rooms.Update(roomID, false, func(r *rooms.Room) {
		p, ok := r.SetPlayer(connID, username)
		if !ok {
			rt.drop(connID, protocol.EventPlayerReady, "no slot")
			return
		}
		log.Info().
			Str("conn_id", connID).
			Str("room_id", roomID).
			Str("username", p.Username).
			Int("player_number", p.PlayerNumber).
			Msg("player ready")
		rt.broadcast(roomID, protocol.EventPlayerJoined, protocol.PlayerJoined{
			Username:     p.Username,
			PlayerNumber: p.PlayerNumber,
		})

		if r.AllReady() && !r.GameStarted {
			r.GameStarted = true
			names := make([]string, 0, rooms.Capacity)
			for _, p := range r.Players() {
				names = append(names, p.Username)
			}
			log.Info().Str("room_id", roomID).Strs("players", names).Msg("game started")
			rt.broadcast(roomID, protocol.EventGameStart, nil)
		}
	})
	if !found {
		rt.drop(connID, protocol.EventPlayerReady, "room gone")
	}
}

// HandleUpdate forwards data untouched to everyone else in the room.
func (rt *Router) HandleUpdate(connID string, data json.RawMessage) {
	roomID, ok := rt.RoomOf(connID)
	if !ok {
		rt.drop(connID, protocol.EventPlayerUpdate, "no room")
		return
	}
	var payload any
	if len(data) > 0 {
		payload = data
	}
	frame, err := protocol.Encode(protocol.EventOpponentUpdate, payload)
	if err != nil {
		rt.drop(connID, protocol.EventPlayerUpdate, err.Error())
		return
	}
	rt.hub.BroadcastExcept(roomID, connID, frame)
}

// HandleDisconnect tears down the connection: it leaves every channel, frees
// its slot, tells the remaining members if a player left, and lets the
// registry delete the room once nobody is left.
func (rt *Router) HandleDisconnect(connID string) {
	rt.hub.Unregister(connID)
	log.Info().Str("conn_id", connID).Msg("connection closed")

	roomID, ok := rt.unbind(connID)
	if !ok {
		return
	}
	player, removed := rt.rooms.RemovePlayer(roomID, connID)
	if !removed {
		return
	}
	log.Info().
		Str("conn_id", connID).
		Str("room_id", roomID).
		Str("username", player.Username).
		Msg("player left")
	rt.broadcast(roomID, protocol.EventPlayerLeft, protocol.PlayerLeft{Username: player.Username})
}

func (rt *Router) sendTo(connID, event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode failed")
		return
	}
	rt.hub.SendTo(connID, frame)
}

func (rt *Router) broadcast(roomID, event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode failed")
		return
	}
	rt.hub.Broadcast(roomID, frame)
}

func (rt *Router) drop(connID, event, reason string) {
	log.Debug().
		Str("conn_id", connID).
		Str("event", event).
		Str("reason", reason).
		Msg("dropping message")
}
