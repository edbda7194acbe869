package ws

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is one live player connection to a room.
type Session struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
	userID string
}

func newSession(conn *websocket.Conn) *Session {
	s := &Session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}
	go s.writePump()
	return s
}

func (s *Session) writePump() {
	defer s.conn.Close()
	for msg := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// The read loop sees the closed conn and removes the session.
			return
		}
	}
}

func (s *Session) ID() string { return s.id }

// BindUser associates the session with the player id from roomHello. The
// id is only used to address outbound frames.
func (s *Session) BindUser(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// deliver queues one frame. Closed sessions are skipped silently; a full
// buffer drops the frame rather than blocking the broadcast.
func (s *Session) deliver(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
		log.Printf("session %s cannot keep up, dropping frame", s.id)
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Broadcaster owns the live session set for one room and stamps every
// outbound event with the room's bookmark sequence. Bookmarks start at 1
// and increase by exactly one per event, across all event kinds; their
// order is the canonical event order for the room.
type Broadcaster struct {
	mu       sync.RWMutex
	sessions map[*Session]bool
	bookmark atomic.Int64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{sessions: make(map[*Session]bool)}
}

func (b *Broadcaster) Add(s *Session) {
	b.mu.Lock()
	b.sessions[s] = true
	b.mu.Unlock()
}

func (b *Broadcaster) Remove(s *Session) {
	b.mu.Lock()
	if b.sessions[s] {
		delete(b.sessions, s)
		s.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) SessionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// PlayerEvent sends a message to the acting player, to everyone else, or
// both. The frame is addressed to the sender only when there is nothing
// for the rest of the room.
func (b *Broadcaster) PlayerEvent(senderID, selfMessage, othersMessage string) {
	content := make(map[string]string, 2)
	addressee := senderID
	if othersMessage != "" {
		content[Everyone] = othersMessage
		addressee = Everyone
	}
	if selfMessage != "" {
		content[senderID] = selfMessage
	}
	b.fanOut(ChannelPlayer, addressee, EventMessage{
		Type:     TypeEvent,
		Content:  content,
		Bookmark: b.next(),
	})
}

// RoomEvent tells everyone in the room the same thing.
func (b *Broadcaster) RoomEvent(message string) {
	b.fanOut(ChannelPlayer, Everyone, EventMessage{
		Type:     TypeEvent,
		Content:  map[string]string{Everyone: message},
		Bookmark: b.next(),
	})
}

func (b *Broadcaster) ChatEvent(username, message string) {
	b.fanOut(ChannelPlayer, Everyone, ChatMessage{
		Type:     TypeChat,
		Username: username,
		Content:  message,
		Bookmark: b.next(),
	})
}

// LocationEvent sends the full room snapshot, addressed to senderID. The
// addressing is advisory; every session receives the frame and filters.
func (b *Broadcaster) LocationEvent(senderID, roomID, roomName, description string, exits map[string]string, objects, inventory []string, commands map[string]string) {
	exitsUpper := make(map[string]string, len(exits))
	for dir, desc := range exits {
		exitsUpper[strings.ToUpper(dir)] = desc
	}
	if objects == nil {
		objects = []string{}
	}
	if inventory == nil {
		inventory = []string{}
	}
	if commands == nil {
		commands = map[string]string{}
	}
	b.fanOut(ChannelPlayer, senderID, LocationMessage{
		Type:        TypeLocation,
		Name:        roomID,
		FullName:    roomName,
		Description: description,
		Exits:       exitsUpper,
		Commands:    commands,
		Pockets:     inventory,
		Objects:     objects,
		Bookmark:    b.next(),
	})
}

// ExitEvent signals that senderID is leaving through exitID.
func (b *Broadcaster) ExitEvent(senderID, message, exitID string) {
	b.fanOut(ChannelPlayerLocation, senderID, ExitMessage{
		Type:     TypeExit,
		ExitID:   exitID,
		Content:  message,
		Bookmark: b.next(),
	})
}

// next claims the bookmark for a new event.
func (b *Broadcaster) next() int64 {
	return b.bookmark.Add(1)
}

// fanOut delivers one framed event to a snapshot of the session set. The
// snapshot keeps a slow send from holding the lock against admission, and
// a failure on one session never reaches the others.
func (b *Broadcaster) fanOut(channel, addressee string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	msg := frame(channel, addressee, data)

	b.mu.RLock()
	sessions := make([]*Session, 0, len(b.sessions))
	for s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.RUnlock()

	for _, s := range sessions {
		s.deliver(msg)
	}
}
