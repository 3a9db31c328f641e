package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"interviewlink/native/internal/domain"
)

type recordingHandler struct {
	mu         sync.Mutex
	joined     int
	peerJoined int
	peerLeft   int
	ready      int
	ended      int
	offers     []domain.SDPPayload
	answers    []domain.SDPPayload
	candidates []domain.ICECandidatePayload
	chats      []domain.ChatPayload
	transport  []*domain.TransportError
}

func (h *recordingHandler) OnJoined() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joined++
}

func (h *recordingHandler) OnPeerJoined() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peerJoined++
}

func (h *recordingHandler) OnPeerLeft() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peerLeft++
}

func (h *recordingHandler) OnOffer(sdp domain.SDPPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offers = append(h.offers, sdp)
}

func (h *recordingHandler) OnAnswer(sdp domain.SDPPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.answers = append(h.answers, sdp)
}

func (h *recordingHandler) OnRemoteICECandidate(candidate domain.ICECandidatePayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.candidates = append(h.candidates, candidate)
}

func (h *recordingHandler) OnChat(msg domain.ChatPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chats = append(h.chats, msg)
}

func (h *recordingHandler) OnCandidateReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready++
}

func (h *recordingHandler) OnSessionEnded() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ended++
}

func (h *recordingHandler) OnTransportError(err *domain.TransportError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transport = append(h.transport, err)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func marshalEnv(t *testing.T, event string, payload any) domain.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return domain.Envelope{Event: event, Payload: raw}
}

func TestConnectDialFailure(t *testing.T) {
	handler := &recordingHandler{}
	c := NewClient("ws://127.0.0.1:1/ws",
		domain.Session{ID: "sess-1", Role: domain.RoleCandidate}, handler, time.Minute)

	err := c.Connect(context.Background())
	var te *domain.TransportError
	if !errors.As(err, &te) || te.Code != domain.TransportUnreachable {
		t.Fatalf("Connect = %v, want relay_unreachable transport error", err)
	}
}

func TestConnectJoinsAndDispatches(t *testing.T) {
	gotJoin := make(chan domain.JoinPayload, 1)
	gotOffer := make(chan domain.SDPPayload, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil || env.Event != domain.EventJoinRoom {
			t.Errorf("expected join-room, got %+v err=%v", env, err)
			return
		}
		var join domain.JoinPayload
		json.Unmarshal(env.Payload, &join)
		gotJoin <- join

		conn.WriteJSON(domain.Envelope{Event: domain.EventJoined})
		conn.WriteJSON(domain.Envelope{Event: domain.EventPeerJoined})
		conn.WriteJSON(marshalEnv(t, domain.EventOffer, domain.SDPPayload{Type: "offer", SDP: "v=0"}))
		conn.WriteJSON(marshalEnv(t, domain.EventICECandidate, domain.ICECandidatePayload{Candidate: "candidate:1"}))
		conn.WriteJSON(domain.Envelope{Event: domain.EventSessionEnded})

		// Hold the connection open for the client's outbound traffic.
		for {
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if env.Event == domain.EventOffer {
				var sdp domain.SDPPayload
				json.Unmarshal(env.Payload, &sdp)
				gotOffer <- sdp
			}
		}
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(url, domain.Session{ID: "sess-1", Role: domain.RoleCandidate}, handler, time.Minute)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	select {
	case join := <-gotJoin:
		if join.SessionID != "sess-1" || join.Role != domain.RoleCandidate {
			t.Errorf("join payload = %+v", join)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("join-room never arrived at the relay")
	}

	waitFor(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return handler.joined == 1 && handler.peerJoined == 1 &&
			len(handler.offers) == 1 && len(handler.candidates) == 1 && handler.ended == 1
	}, "not all events were dispatched")

	handler.mu.Lock()
	if handler.offers[0].SDP != "v=0" {
		t.Errorf("offer payload = %+v", handler.offers[0])
	}
	handler.mu.Unlock()

	c.SendOffer(domain.SDPPayload{Type: "offer", SDP: "v=0 local"})
	select {
	case sdp := <-gotOffer:
		if sdp.SDP != "v=0 local" {
			t.Errorf("outbound offer = %+v", sdp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outbound offer never reached the relay")
	}
}

func TestRemoteCloseReportsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var env domain.Envelope
		conn.ReadJSON(&env)
		// Drop the connection without a close handshake.
		conn.UnderlyingConn().Close()
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(url, domain.Session{ID: "sess-1", Role: domain.RoleCandidate}, handler, time.Minute)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	waitFor(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return len(handler.transport) == 1
	}, "transport error never reported")

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if handler.transport[0].Code != domain.TransportDisconnected {
		t.Errorf("code = %s, want channel_disconnected", handler.transport[0].Code)
	}
}

func TestLocalCloseIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var env domain.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(url, domain.Session{ID: "sess-1", Role: domain.RoleCandidate}, handler, time.Minute)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	c.Close()
	c.Close()

	time.Sleep(50 * time.Millisecond)
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.transport) != 0 {
		t.Errorf("local close must not report a transport error, got %v", handler.transport)
	}
}
