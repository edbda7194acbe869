// Package engine holds the live room model: the static room description,
// the players currently present, and the exit table the registrar rewires
// as the map assigns neighbours. Everything a room tells its players goes
// through the Events sink wired in at startup.
package engine

import (
	"log"
	"strings"
	"sync"
)

// Direction is a door/exit direction, in its single-letter wire form.
type Direction string

const (
	North Direction = "n"
	South Direction = "s"
	East  Direction = "e"
	West  Direction = "w"
	Up    Direction = "u"
	Down  Direction = "d"
)

// Directions in canonical door order.
var Directions = []Direction{North, South, East, West, Up, Down}

// Long returns the spoken form of the direction.
func (d Direction) Long() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return string(d)
}

// ParseDirection accepts either the letter or the spoken form.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north":
		return North, true
	case "s", "south":
		return South, true
	case "e", "east":
		return East, true
	case "w", "west":
		return West, true
	case "u", "up":
		return Up, true
	case "d", "down":
		return Down, true
	}
	return "", false
}

// Door is the static description of one doorway out of the room. The map
// decides whether anything is wired on the other side.
type Door struct {
	Direction   Direction
	Description string
}

// Exit is one wired connection to a neighbouring room, assigned by the map.
// ConnType/ConnTarget can be empty when the map has no connection details
// for the far side.
type Exit struct {
	Direction  Direction
	Name       string
	FullName   string
	Door       string
	ID         string
	ConnType   string
	ConnTarget string
}

// Item is a fixture players can examine.
type Item struct {
	Name        string
	Description string
}

// User is one player currently present in the room.
type User struct {
	ID        string
	Username  string
	Inventory []string
}

// Events receives everything the room wants its players to see. Implemented
// by the websocket broadcaster; a room without a sink panics on first use,
// which is a wiring bug, not a runtime condition.
type Events interface {
	PlayerEvent(senderID, selfMessage, othersMessage string)
	RoomEvent(message string)
	ChatEvent(username, message string)
	LocationEvent(senderID, roomID, roomName, description string, exits map[string]string, objects, inventory []string, commands map[string]string)
	ExitEvent(senderID, message, exitID string)
}

type Room struct {
	id          string
	name        string
	description string
	doors       []Door
	items       []Item

	mu    sync.RWMutex
	users map[string]*User
	exits map[Direction]Exit

	events Events
}

func NewRoom(id, name, description string, doors []Door, items []Item) *Room {
	return &Room{
		id:          id,
		name:        name,
		description: description,
		doors:       doors,
		items:       items,
		users:       make(map[string]*User),
		exits:       make(map[Direction]Exit),
	}
}

// SetEvents wires the event sink. Must be called before any player joins.
func (r *Room) SetEvents(ev Events) {
	r.events = ev
}

func (r *Room) ID() string          { return r.id }
func (r *Room) Name() string        { return r.name }
func (r *Room) Description() string { return r.description }

func (r *Room) Doors() []Door {
	return append([]Door(nil), r.doors...)
}

func (r *Room) Items() []Item {
	return append([]Item(nil), r.items...)
}

// SetExits replaces the exit table wholesale. Partial updates are not
// supported; the registrar always applies the full set the map returned.
func (r *Room) SetExits(exits map[Direction]Exit) {
	copied := make(map[Direction]Exit, len(exits))
	for dir, e := range exits {
		copied[dir] = e
	}
	r.mu.Lock()
	r.exits = copied
	r.mu.Unlock()
}

// Exits returns a copy of the current exit table.
func (r *Room) Exits() map[Direction]Exit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	copied := make(map[Direction]Exit, len(r.exits))
	for dir, e := range r.exits {
		copied[dir] = e
	}
	return copied
}

// Hello adds a player to the room, announces them and shows them where
// they are.
func (r *Room) Hello(userID, username string) {
	r.mu.Lock()
	r.users[userID] = &User{ID: userID, Username: username}
	r.mu.Unlock()
	log.Printf("user %s (%s) entered room %s", userID, username, r.id)
	r.events.RoomEvent(username + " enters the room.")
	r.sendLocation(userID)
}

// Goodbye removes a player. Unknown users are a no-op so a disconnect after
// an explicit goodbye does not announce twice.
func (r *Room) Goodbye(userID string) {
	r.mu.Lock()
	u, ok := r.users[userID]
	delete(r.users, userID)
	r.mu.Unlock()
	if !ok {
		return
	}
	log.Printf("user %s left room %s", userID, r.id)
	r.events.RoomEvent(u.Username + " leaves the room.")
}

func (r *Room) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *Room) userByID(userID string) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID]
}

// sendLocation emits the full room snapshot addressed to userID.
func (r *Room) sendLocation(userID string) {
	exits := make(map[string]string)
	for dir, e := range r.Exits() {
		exits[string(dir)] = e.Door
	}

	objects := make([]string, 0, len(r.items))
	for _, it := range r.items {
		objects = append(objects, it.Name)
	}

	inventory := []string{}
	if u := r.userByID(userID); u != nil {
		inventory = append(inventory, u.Inventory...)
	}

	r.events.LocationEvent(userID, r.id, r.name, r.description, exits, objects, inventory, visibleCommands())
}
