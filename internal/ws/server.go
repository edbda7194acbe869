package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gameontext/room/internal/engine"
	"github.com/gameontext/room/internal/signed"
	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/process"
)

type roomChannel struct {
	room        *engine.Room
	broadcaster *Broadcaster
}

// Server exposes one websocket endpoint per hosted room plus the health
// endpoint. With a token configured, every handshake must carry a valid
// signature before the upgrade is attempted.
type Server struct {
	token    string
	rooms    map[string]*roomChannel
	upgrader websocket.Upgrader
	started  time.Time
}

func NewServer(token string) *Server {
	return &Server{
		token:   token,
		rooms:   make(map[string]*roomChannel),
		started: time.Now(),
	}
}

// AddRoom registers a room and its broadcaster. Must be called before
// SetupRoutes.
func (s *Server) AddRoom(room *engine.Room, b *Broadcaster) {
	s.rooms[room.ID()] = &roomChannel{room: room, broadcaster: b}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/rooms/ws/", s.handleWS)
	mux.HandleFunc("/rooms/health", s.handleHealth)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/rooms/ws/")
	rc, ok := s.rooms[roomID]
	if !ok {
		http.Error(w, "unknown room", http.StatusNotFound)
		return
	}

	if !s.admit(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	// Resign the response so the client can verify it reached the room it
	// expected.
	var respHeader http.Header
	if s.token != "" {
		respHeader = http.Header{}
		signed.SignResponse(s.token, r.URL.Path, respHeader)
	}

	conn, err := s.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		log.Printf("ws upgrade error for room %s: %v", roomID, err)
		return
	}

	sess := newSession(conn)
	rc.broadcaster.Add(sess)
	log.Printf("session %s connected to room %s from %s", sess.ID(), roomID, r.RemoteAddr)
	go s.readLoop(rc, sess)
}

// admit validates the handshake. With no token configured every handshake
// is accepted; otherwise any verification failure, including a panic,
// rejects this one connection attempt.
func (s *Server) admit(r *http.Request) (ok bool) {
	if s.token == "" {
		return true
	}
	defer func() {
		if p := recover(); p != nil {
			log.Printf("handshake verification panic: %v", p)
			ok = false
		}
	}()
	if err := signed.VerifyHandshake(s.token, r); err != nil {
		log.Printf("handshake rejected: %v", err)
		return false
	}
	return true
}

func (s *Server) readLoop(rc *roomChannel, sess *Session) {
	defer func() {
		rc.broadcaster.Remove(sess)
		if userID := sess.UserID(); userID != "" {
			rc.room.Goodbye(userID)
		}
		log.Printf("session %s disconnected", sess.ID())
	}()
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(rc, sess, raw)
	}
}

func (s *Server) dispatch(rc *roomChannel, sess *Session, raw []byte) {
	routing, _, body, err := parseFrame(raw)
	if err != nil {
		log.Printf("session %s sent an unparseable frame: %v", sess.ID(), err)
		return
	}

	switch routing {
	case RoutingHello:
		var hello HelloMessage
		if err := json.Unmarshal(body, &hello); err != nil {
			log.Printf("session %s sent a bad hello: %v", sess.ID(), err)
			return
		}
		sess.BindUser(hello.UserID)
		rc.room.Hello(hello.UserID, hello.Username)

	case RoutingGoodbye:
		var bye HelloMessage
		if err := json.Unmarshal(body, &bye); err != nil {
			log.Printf("session %s sent a bad goodbye: %v", sess.ID(), err)
			return
		}
		rc.room.Goodbye(bye.UserID)
		sess.BindUser("")

	case RoutingRoom:
		var msg RoomMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Printf("session %s sent a bad room message: %v", sess.ID(), err)
			return
		}
		if cmd, isCmd := strings.CutPrefix(msg.Content, "/"); isCmd {
			rc.room.Command(msg.UserID, cmd)
		} else {
			rc.broadcaster.ChatEvent(msg.Username, msg.Content)
		}

	default:
		log.Printf("session %s sent unknown routing %q", sess.ID(), routing)
	}
}

type processStats struct {
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
}

type healthPayload struct {
	Status        string       `json:"status"`
	Rooms         int          `json:"rooms"`
	Sessions      int          `json:"sessions"`
	UptimeSeconds int64        `json:"uptimeSeconds"`
	Process       processStats `json:"process"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions := 0
	for _, rc := range s.rooms {
		sessions += rc.broadcaster.SessionCount()
	}

	health := healthPayload{
		Status:        "UP",
		Rooms:         len(s.rooms),
		Sessions:      sessions,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	// Process stats are best effort; health never fails over them.
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			health.Process.CPUPercent = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			health.Process.RSSBytes = mem.RSS
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
