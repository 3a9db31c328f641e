// Package relay implements the signaling relay the interview agents
// connect to: one interviewer and one candidate per room, with
// role-based forwarding of negotiation traffic.
package relay

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"interviewlink/native/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one connected agent.
type client struct {
	conn  *websocket.Conn
	room  string
	role  domain.Role
	send  chan []byte
	relay *Relay

	mu     sync.RWMutex
	closed bool
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues a frame without blocking; a slow consumer loses the
// frame rather than stalling the room.
func (c *client) trySend(data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("module", "relay").Str("role", string(c.role)).Msg("send buffer full, dropping frame")
	}
}

// room pairs the two sides of a session.
type room struct {
	sessionID   string
	mu          sync.RWMutex
	interviewer *client
	candidate   *client
}

func (r *room) side(role domain.Role) **client {
	if role == domain.RoleInterviewer {
		return &r.interviewer
	}
	return &r.candidate
}

func (r *room) other(c *client) *client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c.role == domain.RoleInterviewer {
		return r.candidate
	}
	return r.interviewer
}

func (r *room) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interviewer == nil && r.candidate == nil
}

// Relay routes signaling frames between the two sides of each room.
type Relay struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// New creates an empty relay.
func New() *Relay {
	return &Relay{rooms: make(map[string]*room)}
}

func (s *Relay) getOrCreateRoom(sessionID string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[sessionID]; ok {
		return r
	}
	r := &room{sessionID: sessionID}
	s.rooms[sessionID] = r
	return r
}

// HandleWS upgrades the connection and runs the client pumps. The first
// frame must be a join-room envelope; anything else closes the socket.
func (s *Relay) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("ws upgrade")
		return
	}

	var env domain.Envelope
	if err := conn.ReadJSON(&env); err != nil || env.Event != domain.EventJoinRoom {
		log.Warn().Str("module", "relay").Msg("expected join-room as first frame")
		conn.Close()
		return
	}
	var join domain.JoinPayload
	if err := json.Unmarshal(env.Payload, &join); err != nil || join.SessionID == "" {
		writeError(conn, "bad join payload")
		conn.Close()
		return
	}
	if _, err := domain.ParseRole(string(join.Role)); err != nil {
		writeError(conn, "unknown role")
		conn.Close()
		return
	}

	c := &client{
		conn:  conn,
		room:  join.SessionID,
		role:  join.Role,
		send:  make(chan []byte, 32),
		relay: s,
	}

	if !s.addClient(c) {
		writeError(conn, "role already taken")
		conn.Close()
		return
	}

	log.Info().Str("module", "relay").Str("session", join.SessionID).
		Str("role", string(join.Role)).Msg("client joined")

	go c.writePump()
	go c.readPump()
}

func (s *Relay) addClient(c *client) bool {
	rm := s.getOrCreateRoom(c.room)
	rm.mu.Lock()
	slot := rm.side(c.role)
	if *slot != nil {
		rm.mu.Unlock()
		return false
	}
	*slot = c
	other := rm.interviewer
	if c.role == domain.RoleInterviewer {
		other = rm.candidate
	}
	rm.mu.Unlock()

	c.trySend(marshal(domain.EventJoined, nil))
	if other != nil {
		// Both notifications: the newcomer learns a peer is present,
		// the peer learns the newcomer arrived.
		other.trySend(marshal(domain.EventPeerJoined, nil))
		c.trySend(marshal(domain.EventPeerJoined, nil))
	}
	return true
}

func (s *Relay) removeClient(c *client) {
	s.mu.Lock()
	rm, ok := s.rooms[c.room]
	s.mu.Unlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	slot := rm.side(c.role)
	if *slot == c {
		*slot = nil
	}
	rm.mu.Unlock()

	if other := rm.other(c); other != nil {
		other.trySend(marshal(domain.EventPeerLeft, nil))
	}

	if rm.empty() {
		s.mu.Lock()
		delete(s.rooms, c.room)
		s.mu.Unlock()
		log.Info().Str("module", "relay").Str("session", c.room).Msg("room removed")
	}
}

// EndSession broadcasts session-ended to both sides and drops the room.
func (s *Relay) EndSession(sessionID string) {
	s.mu.Lock()
	rm, ok := s.rooms[sessionID]
	delete(s.rooms, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}

	rm.mu.RLock()
	clients := []*client{rm.interviewer, rm.candidate}
	rm.mu.RUnlock()

	frame := marshal(domain.EventSessionEnded, nil)
	for _, c := range clients {
		if c != nil {
			c.trySend(frame)
		}
	}
	log.Info().Str("module", "relay").Str("session", sessionID).Msg("session ended")
}

func (c *client) readPump() {
	defer func() {
		c.relay.removeClient(c)
		c.close()
		c.conn.Close()
	}()

	for {
		var env domain.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "relay").Msg("read error")
			}
			return
		}
		c.relay.route(c, env)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Warn().Err(err).Str("module", "relay").Msg("write error")
			return
		}
	}
}

// route forwards a frame according to the sender's role. Offers flow
// interviewer to candidate, answers the other way; candidates, chat and
// readiness cross to whichever side is the other one.
func (s *Relay) route(c *client, env domain.Envelope) {
	s.mu.RLock()
	rm, ok := s.rooms[c.room]
	s.mu.RUnlock()
	if !ok {
		return
	}

	switch env.Event {
	case domain.EventOffer:
		if c.role != domain.RoleInterviewer {
			c.trySend(marshal(domain.EventError, domain.ErrorPayload{Reason: "only the interviewer offers"}))
			return
		}
	case domain.EventAnswer:
		if c.role != domain.RoleCandidate {
			c.trySend(marshal(domain.EventError, domain.ErrorPayload{Reason: "only the candidate answers"}))
			return
		}
	case domain.EventICECandidate, domain.EventChatMessage, domain.EventCandidateReady:
		// Symmetric events.
	default:
		log.Warn().Str("module", "relay").Str("event", env.Event).Msg("unknown event")
		return
	}

	other := rm.other(c)
	if other == nil {
		log.Warn().Str("module", "relay").Str("event", env.Event).
			Str("session", c.room).Msg("no peer to forward to")
		return
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	other.trySend(frame)
}

func marshal(event string, payload any) []byte {
	env := domain.Envelope{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			env.Payload = raw
		}
	}
	data, _ := json.Marshal(env)
	return data
}

func writeError(conn *websocket.Conn, reason string) {
	_ = conn.WriteMessage(websocket.TextMessage, marshal(domain.EventError, domain.ErrorPayload{Reason: reason}))
}
