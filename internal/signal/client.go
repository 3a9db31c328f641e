package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"interviewlink/native/internal/domain"
)

// Client manages the WebSocket connection to the signaling relay for one
// room visit. Message ordering across distinct event types is not
// guaranteed end to end; the peer session handles candidate-before-offer
// arrivals itself.
type Client struct {
	relayURL     string
	session      domain.Session
	handler      domain.Handler
	pingInterval time.Duration

	conn *websocket.Conn

	mu     sync.Mutex
	closed chan struct{}
}

// NewClient creates a signaling client scoped to the given session.
func NewClient(relayURL string, session domain.Session, handler domain.Handler, pingInterval time.Duration) *Client {
	return &Client{
		relayURL:     relayURL,
		session:      session,
		handler:      handler,
		pingInterval: pingInterval,
		closed:       make(chan struct{}),
	}
}

// Connect dials the relay, joins the room and starts the read loop. A
// dial failure is reported as a classified TransportError; retry policy
// belongs to the caller.
func (c *Client) Connect(ctx context.Context) error {
	log.Info().Str("module", "signal").Str("relay", c.relayURL).
		Str("session", c.session.ID).Str("role", string(c.session.Role)).
		Msg("connecting to relay")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.relayURL, nil)
	if err != nil {
		return &domain.TransportError{
			Code: domain.TransportUnreachable,
			Err:  fmt.Errorf("websocket dial: %w", err),
		}
	}
	c.conn = conn

	c.send(domain.EventJoinRoom, domain.JoinPayload{
		SessionID: c.session.ID,
		Role:      c.session.Role,
	})

	go c.readLoop()
	go c.pingLoop()

	return nil
}

// Close shuts down the WebSocket connection. Idempotent.
func (c *Client) Close() {
	select {
	case <-c.closed:
		return
	default:
		close(c.closed)
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// SendOffer forwards a local SDP offer to the remote side.
func (c *Client) SendOffer(sdp domain.SDPPayload) {
	c.send(domain.EventOffer, sdp)
}

// SendAnswer forwards a local SDP answer to the remote side.
func (c *Client) SendAnswer(sdp domain.SDPPayload) {
	c.send(domain.EventAnswer, sdp)
}

// SendICECandidate forwards a locally gathered ICE candidate.
func (c *Client) SendICECandidate(candidate domain.ICECandidatePayload) {
	c.send(domain.EventICECandidate, candidate)
}

// SendChat sends one chat line to the other side.
func (c *Client) SendChat(msg domain.ChatPayload) {
	c.send(domain.EventChatMessage, msg)
}

// SendReady signals readiness to receive an offer.
func (c *Client) SendReady() {
	c.send(domain.EventCandidateReady, domain.ReadyPayload{SessionID: c.session.ID})
}

func (c *Client) send(event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return
	default:
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("marshal payload")
		return
	}
	env := domain.Envelope{Event: event, Payload: raw}
	if err := c.conn.WriteJSON(env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("write error")
	}
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		select {
		case <-c.closed:
			return
		default:
		}

		var env domain.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.closed:
				// Expected after Close; not a transport failure.
			default:
				log.Error().Err(err).Str("module", "signal").Msg("read error")
				c.handler.OnTransportError(&domain.TransportError{
					Code: domain.TransportDisconnected,
					Err:  err,
				})
			}
			return
		}

		c.dispatch(env)
	}
}

func (c *Client) dispatch(env domain.Envelope) {
	switch env.Event {
	case domain.EventJoined:
		log.Info().Str("module", "signal").Msg("joined room")
		c.handler.OnJoined()

	case domain.EventPeerJoined:
		log.Info().Str("module", "signal").Msg("peer joined")
		c.handler.OnPeerJoined()

	case domain.EventPeerLeft:
		log.Info().Str("module", "signal").Msg("peer left")
		c.handler.OnPeerLeft()

	case domain.EventOffer:
		var sdp domain.SDPPayload
		if !c.decode(env, &sdp) {
			return
		}
		c.handler.OnOffer(sdp)

	case domain.EventAnswer:
		var sdp domain.SDPPayload
		if !c.decode(env, &sdp) {
			return
		}
		c.handler.OnAnswer(sdp)

	case domain.EventICECandidate:
		var candidate domain.ICECandidatePayload
		if !c.decode(env, &candidate) {
			return
		}
		c.handler.OnRemoteICECandidate(candidate)

	case domain.EventChatMessage:
		var msg domain.ChatPayload
		if !c.decode(env, &msg) {
			return
		}
		c.handler.OnChat(msg)

	case domain.EventCandidateReady:
		c.handler.OnCandidateReady()

	case domain.EventSessionEnded:
		log.Info().Str("module", "signal").Msg("session ended by relay")
		c.handler.OnSessionEnded()

	case domain.EventError:
		var p domain.ErrorPayload
		_ = json.Unmarshal(env.Payload, &p)
		log.Warn().Str("module", "signal").Str("reason", p.Reason).Msg("relay rejected request")

	default:
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unhandled event")
	}
}

func (c *Client) decode(env domain.Envelope, v any) bool {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", env.Event).Msg("bad payload")
		return false
	}
	return true
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(
				websocket.PingMessage,
				[]byte{},
				time.Now().Add(5*time.Second),
			)
			c.mu.Unlock()
			if err != nil {
				select {
				case <-c.closed:
					return
				default:
					log.Error().Err(err).Str("module", "signal").Msg("ping error")
					return
				}
			}
		}
	}
}
