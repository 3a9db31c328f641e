// Package room wires the signaling channel to the peer session for one
// room visit and owns teardown ordering.
package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"interviewlink/native/internal/domain"
)

// Controller orchestrates a single room visit. It implements
// domain.Handler for signaling events and is the sole consumer of the
// peer session's event stream.
type Controller struct {
	session      domain.Session
	api          domain.InterviewAPI
	peer         domain.PeerSession
	notes        *Notifications
	pollInterval time.Duration
	displayName  string

	// signaler is injected after construction: the signaling client
	// needs this controller as its handler.
	signaler domain.Signaler

	cancel context.CancelFunc

	mu       sync.Mutex
	runCtx   context.Context
	stopped  bool
	pollStop chan struct{}
}

// NewController creates a Controller. Call SetSignaler before Run.
func NewController(
	session domain.Session,
	apiClient domain.InterviewAPI,
	peer domain.PeerSession,
	pollInterval time.Duration,
	displayName string,
	cancel context.CancelFunc,
) *Controller {
	return &Controller{
		session:      session,
		api:          apiClient,
		peer:         peer,
		notes:        NewNotifications(),
		pollInterval: pollInterval,
		displayName:  displayName,
		cancel:       cancel,
	}
}

// SetSignaler injects the signaling channel after construction.
func (c *Controller) SetSignaler(s domain.Signaler) {
	c.signaler = s
}

// Notifications exposes the active user-facing notifications.
func (c *Controller) Notifications() []Notification {
	return c.notes.Active()
}

// Run validates the interview record, connects signaling and starts the
// session event pump. It returns once the room visit is under way;
// teardown happens via Close.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	iv, err := c.api.Fetch(ctx, c.session.ID)
	if err != nil {
		return fmt.Errorf("validate session: %w", err)
	}
	if iv.Status == domain.InterviewEnded {
		return fmt.Errorf("interview %s has already ended", c.session.ID)
	}
	log.Info().Str("module", "room").Str("session", c.session.ID).
		Str("title", iv.Title).Msg("interview validated")

	if err := c.signaler.Connect(ctx); err != nil {
		return err
	}

	go c.eventPump(ctx)
	return nil
}

// eventPump consumes the peer session's outbound events.
func (c *Controller) eventPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.peer.Events():
			if !ok {
				return
			}
			c.handleSessionEvent(ctx, ev)
		}
	}
}

func (c *Controller) handleSessionEvent(ctx context.Context, ev domain.SessionEvent) {
	switch ev.Kind {
	case domain.SessionLocalCandidate:
		c.signaler.SendICECandidate(ev.Candidate)

	case domain.SessionRemoteTrack:
		log.Info().Str("module", "room").Str("kind", ev.Track.Kind).
			Str("stream", ev.Track.StreamID).Msg("remote track attached")

	case domain.SessionStateChanged:
		c.onStateChange(ctx, ev.State)

	case domain.SessionRenegotiationNeeded:
		c.renegotiate()

	case domain.SessionErrored:
		c.onSessionError(ev.Err)
	}
}

func (c *Controller) onStateChange(ctx context.Context, state domain.SessionState) {
	switch state {
	case domain.StateConnected:
		c.notes.Push(SeverityInfo, "Peer connected")
		log.Info().Str("module", "room").
			Str("connection", c.peer.ConnectionType()).Msg("session connected")
		if err := c.api.Start(ctx, c.session.ID); err != nil {
			log.Warn().Err(err).Str("module", "room").Msg("mark interview active")
		}
		c.startQualityPoll()

	case domain.StateReconnecting:
		c.notes.Push(SeverityWarn, "Connection unstable, attempting to recover")

	case domain.StateFailed:
		c.stopQualityPoll()
		c.notes.Push(SeverityError, "Connection failed. Rejoin to retry")

	case domain.StateClosed:
		c.stopQualityPoll()
	}
}

func (c *Controller) onSessionError(err error) {
	if de, ok := domain.AsDeviceError(err); ok {
		switch de.Code {
		case domain.DevicePermissionDenied:
			c.notes.Push(SeverityError, "Camera/microphone access denied. Check permissions and rejoin")
		case domain.DeviceNotFound:
			c.notes.Push(SeverityError, "No camera or microphone found")
		case domain.DeviceBusy:
			c.notes.Push(SeverityError, "Camera or microphone is in use by another application")
		default:
			c.notes.Push(SeverityError, "Could not access media devices")
		}
		return
	}
	log.Error().Err(err).Str("module", "room").Msg("session error")
	c.notes.Push(SeverityError, "Call error: "+err.Error())
}

// renegotiate runs a fresh offer/answer round after a track kind was
// added. Only the interviewer offers; the candidate requests a re-offer
// by signaling readiness again.
func (c *Controller) renegotiate() {
	if c.session.Role.Offerer() {
		c.sendOffer()
	} else {
		c.signaler.SendReady()
	}
}

func (c *Controller) sendOffer() {
	sdp, err := c.peer.CreateOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("create offer")
		c.notes.Push(SeverityError, "Failed to start the call")
		return
	}
	c.signaler.SendOffer(sdp)
}

// OnJoined fires once the relay acknowledged the room join: acquire
// media and build the connection now so negotiation can begin the
// moment the other side is ready.
func (c *Controller) OnJoined() {
	if err := c.peer.Initialize(c.runContext()); err != nil {
		log.Error().Err(err).Str("module", "room").Msg("initialize peer session")
		return
	}
	if !c.session.Role.Offerer() {
		c.signaler.SendReady()
	}
}

// runContext returns the context Run was started with. Signaling
// callbacks can in principle fire before Run; fall back to a background
// context rather than a nil one.
func (c *Controller) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runCtx != nil {
		return c.runCtx
	}
	return context.Background()
}

// OnPeerJoined fires when the other participant enters the room. The
// interviewer waits for candidate-ready rather than offering here, so a
// candidate that reconnects always receives a fresh offer.
func (c *Controller) OnPeerJoined() {
	c.notes.Push(SeverityInfo, "The other participant joined")
}

// OnPeerLeft reports the departure; ICE self-healing or an explicit
// rejoin decides what happens next.
func (c *Controller) OnPeerLeft() {
	c.notes.Push(SeverityWarn, "The other participant left the room")
}

// OnCandidateReady triggers the offer on the interviewer side.
func (c *Controller) OnCandidateReady() {
	if !c.session.Role.Offerer() {
		return
	}
	c.sendOffer()
}

// OnOffer applies a remote offer and returns the answer (answerer side).
func (c *Controller) OnOffer(sdp domain.SDPPayload) {
	answer, err := c.peer.HandleOffer(sdp)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("handle offer")
		c.notes.Push(SeverityError, "Failed to answer the call")
		return
	}
	c.signaler.SendAnswer(answer)
}

// OnAnswer completes the offerer's negotiation round.
func (c *Controller) OnAnswer(sdp domain.SDPPayload) {
	if err := c.peer.HandleAnswer(sdp); err != nil {
		log.Error().Err(err).Str("module", "room").Msg("handle answer")
		c.notes.Push(SeverityError, "Failed to establish the call")
	}
}

// OnRemoteICECandidate forwards a remote candidate to the session.
func (c *Controller) OnRemoteICECandidate(candidate domain.ICECandidatePayload) {
	c.peer.HandleRemoteCandidate(candidate)
}

// OnChat surfaces a chat line from the other side.
func (c *Controller) OnChat(msg domain.ChatPayload) {
	log.Info().Str("module", "room").Str("sender", msg.Sender).
		Str("role", string(msg.Role)).Msg("chat message")
	c.notes.Push(SeverityInfo, msg.Sender+": "+msg.Text)
}

// SendChat sends one chat line to the other side.
func (c *Controller) SendChat(text string) {
	c.signaler.SendChat(domain.ChatPayload{
		Sender:    c.displayName,
		Role:      c.session.Role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	})
}

// OnSessionEnded tears the visit down when the relay closes the room.
func (c *Controller) OnSessionEnded() {
	c.notes.Push(SeverityInfo, "The interview has ended")
	c.Close()
	c.cancel()
}

// OnTransportError surfaces a signaling failure. No silent reconnects:
// the user decides whether to rejoin.
func (c *Controller) OnTransportError(err *domain.TransportError) {
	log.Error().Err(err).Str("module", "room").Str("code", string(err.Code)).Msg("transport error")
	c.notes.Push(SeverityError, "Lost connection to the interview server. Rejoin to continue")
}

// SetAudioEnabled toggles the local microphone.
func (c *Controller) SetAudioEnabled(enabled bool) error {
	return c.peer.SetAudioEnabled(enabled)
}

// SetVideoEnabled toggles the local camera.
func (c *Controller) SetVideoEnabled(enabled bool) error {
	return c.peer.SetVideoEnabled(enabled)
}

// startQualityPoll launches the fixed-cadence background sampling of
// inbound video statistics.
func (c *Controller) startQualityPoll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollStop != nil || c.stopped {
		return
	}
	stop := make(chan struct{})
	c.pollStop = stop

	go func() {
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sample, ok := c.peer.SampleQuality()
				if !ok {
					continue
				}
				level := sample.Level()
				log.Debug().Str("module", "room").
					Uint32("lost", sample.PacketsLost).
					Uint32("received", sample.PacketsReceived).
					Str("level", string(level)).Msg("quality sample")
				if level == domain.QualityPoor {
					c.notes.Push(SeverityWarn, "Poor connection quality")
				}
			}
		}
	}()
}

func (c *Controller) stopQualityPoll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

// Close tears down the room visit. The peer session is cleaned up
// before the signaling channel is disconnected, so no signaling event
// races against a closed connection. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.stopQualityPoll()
	c.peer.Close()
	c.signaler.Close()
	log.Info().Str("module", "room").Str("session", c.session.ID).Msg("room visit closed")
}
