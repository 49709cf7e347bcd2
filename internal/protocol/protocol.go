// Package protocol defines the JSON frames exchanged between browser tabs and
// the relay. Every WebSocket text frame carries one Message.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client to server events.
const (
	EventJoinRoom     = "join_room"
	EventPlayerReady  = "player_ready"
	EventPlayerUpdate = "player_update"
)

// Server to client events.
const (
	EventRoomFull       = "room_full"
	EventPlayerAssigned = "player_assigned"
	EventPlayerJoined   = "player_joined"
	EventGameStart      = "game_start"
	EventOpponentUpdate = "opponent_update"
	EventPlayerLeft     = "player_left"
)

// EventConnectionError never crosses the wire. The client raises it locally
// once its reconnect budget is spent.
const EventConnectionError = "connection_error"

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrEmptyFrame   = errors.New("empty frame")
)

// Message is the envelope of every frame.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

// PlayerReady is what the browser sends after joining. Extra fields such as
// isHost are tolerated and ignored by the relay.
type PlayerReady struct {
	Username string `json:"username"`
}

type PlayerAssigned struct {
	PlayerNumber int `json:"playerNumber"`
}

type PlayerJoined struct {
	Username     string `json:"username"`
	PlayerNumber int    `json:"playerNumber"`
}

type PlayerLeft struct {
	Username string `json:"username"`
}

var inbound = map[string]bool{
	EventJoinRoom:     true,
	EventPlayerReady:  true,
	EventPlayerUpdate: true,
}

var outbound = map[string]bool{
	EventRoomFull:       true,
	EventPlayerAssigned: true,
	EventPlayerJoined:   true,
	EventGameStart:      true,
	EventOpponentUpdate: true,
	EventPlayerLeft:     true,
}

// IsInbound reports whether event may be sent by a client.
func IsInbound(event string) bool { return inbound[event] }

// IsOutbound reports whether event may be sent by the relay.
func IsOutbound(event string) bool { return outbound[event] }

// Encode marshals payload and wraps it in an envelope. A nil payload omits data.
func Encode(event string, payload any) ([]byte, error) {
	msg := Message{Event: event}
	if payload != nil {
		switch p := payload.(type) {
		case json.RawMessage:
			msg.Data = p
		default:
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marshaling %s payload: %w", event, err)
			}
			msg.Data = raw
		}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s envelope: %w", event, err)
	}
	return data, nil
}

// Decode parses a frame. It does not validate the event name.
func Decode(frame []byte) (Message, error) {
	var msg Message
	if len(frame) == 0 {
		return msg, ErrEmptyFrame
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		return msg, fmt.Errorf("decoding frame: %w", err)
	}
	if msg.Event == "" {
		return msg, fmt.Errorf("decoding frame: %w", ErrUnknownEvent)
	}
	return msg, nil
}

// DecodeData unmarshals the payload of msg into v.
func DecodeData(msg Message, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%s: missing data", msg.Event)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%s: decoding data: %w", msg.Event, err)
	}
	return nil
}
