package ws

import (
	"bytes"
	"fmt"
)

// Outbound frames are "<channel>,<addressee>,<json>". The mediator routes
// on the channel and each client filters on the addressee.
const (
	ChannelPlayer         = "player"
	ChannelPlayerLocation = "playerLocation"
)

// Everyone is the addressee wildcard delivered to every player in the room.
const Everyone = "*"

const (
	TypeEvent    = "event"
	TypeChat     = "chat"
	TypeLocation = "location"
	TypeExit     = "exit"
)

// EventMessage carries player and room events. Content is keyed by user id
// or by the Everyone wildcard.
type EventMessage struct {
	Type     string            `json:"type"`
	Content  map[string]string `json:"content"`
	Bookmark int64             `json:"bookmark"`
}

type ChatMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Content  string `json:"content"`
	Bookmark int64  `json:"bookmark"`
}

// LocationMessage is the full room snapshot sent when a player looks
// around or arrives.
type LocationMessage struct {
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	FullName    string            `json:"fullName"`
	Description string            `json:"description"`
	Exits       map[string]string `json:"exits"`
	Commands    map[string]string `json:"commands"`
	Pockets     []string          `json:"pockets"`
	Objects     []string          `json:"objects"`
	Bookmark    int64             `json:"bookmark"`
}

// ExitMessage signals that the addressed player is leaving through exitId.
type ExitMessage struct {
	Type     string `json:"type"`
	ExitID   string `json:"exitId"`
	Content  string `json:"content"`
	Bookmark int64  `json:"bookmark"`
}

// Inbound routing prefixes sent by the mediator.
const (
	RoutingHello   = "roomHello"
	RoutingGoodbye = "roomGoodbye"
	RoutingRoom    = "room"
)

// HelloMessage is the body of roomHello and roomGoodbye frames.
type HelloMessage struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// RoomMessage is the body of room frames: chat, or a /command.
type RoomMessage struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	Content  string `json:"content"`
}

// frame renders the outbound wire form.
func frame(channel, addressee string, body []byte) []byte {
	msg := make([]byte, 0, len(channel)+len(addressee)+len(body)+2)
	msg = append(msg, channel...)
	msg = append(msg, ',')
	msg = append(msg, addressee...)
	msg = append(msg, ',')
	msg = append(msg, body...)
	return msg
}

// parseFrame splits an inbound "<routing>,<target>,<json>" frame.
func parseFrame(raw []byte) (routing, target string, body []byte, err error) {
	first := bytes.IndexByte(raw, ',')
	if first < 0 {
		return "", "", nil, fmt.Errorf("frame has no routing separator")
	}
	second := bytes.IndexByte(raw[first+1:], ',')
	if second < 0 {
		return "", "", nil, fmt.Errorf("frame has no target separator")
	}
	second += first + 1
	return string(raw[:first]), string(raw[first+1 : second]), raw[second+1:], nil
}
