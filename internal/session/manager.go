package session

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"interviewlink/native/internal/domain"
	"interviewlink/native/internal/media"
)

// MediaSource provides local media. Implemented by *media.Acquirer.
type MediaSource interface {
	Acquire(prefs media.Preferences) (*media.LocalMedia, error)
	AcquireVideoTrack() (media.Track, error)
	AcquireAudioTrack() (media.Track, error)
}

// connFactory creates the underlying peer connection. Swapped out in
// tests for a fake.
type connFactory func() (peerConn, error)

// Manager owns one peer connection and drives its negotiation.
//
// State machine: idle -> connecting -> connected -> {reconnecting,
// failed, closed}. Connected requires both an established ICE state and
// a received remote track; ICE alone is not success.
//
// All outward communication happens on the event stream returned by
// Events; the room controller is its single consumer.
type Manager struct {
	role    domain.Role
	source  MediaSource
	newConn connFactory

	mu            sync.Mutex
	state         domain.SessionState
	pc            peerConn
	local         *media.LocalMedia
	audioSender   trackSender
	videoSender   trackSender
	pending       []webrtc.ICECandidateInit
	remoteDescSet bool
	offerInFlight bool
	remoteTrack   bool
	iceUp         bool
	closed        bool

	// Outbound events are staged on queue and delivered by deliverLoop,
	// which owns closing the events channel. Staging never blocks a pion
	// callback and never drops an event.
	events   chan domain.SessionEvent
	queue    []domain.SessionEvent
	notify   *sync.Cond
	inFlight bool

	releases []func()
}

// NewManager creates a Manager for the given role. The peer connection
// is built lazily by Initialize.
func NewManager(role domain.Role, source MediaSource, api *webrtc.API, servers []domain.ICEServer) *Manager {
	cfg := PeerConnectionConfig(servers)
	return newManager(role, source, func() (peerConn, error) {
		pc, err := api.NewPeerConnection(cfg)
		if err != nil {
			return nil, err
		}
		return &pionConn{pc: pc}, nil
	})
}

func newManager(role domain.Role, source MediaSource, factory connFactory) *Manager {
	m := &Manager{
		role:    role,
		source:  source,
		newConn: factory,
		state:   domain.StateIdle,
		events:  make(chan domain.SessionEvent, 32),
	}
	m.notify = sync.NewCond(&m.mu)
	go m.deliverLoop()
	return m
}

// deliverLoop moves staged events onto the events channel and closes it
// once the session is closed and the queue is flushed. Sole owner of
// the channel close, so no staging path can race it.
func (m *Manager) deliverLoop() {
	m.mu.Lock()
	for {
		for len(m.queue) == 0 && !m.closed {
			m.notify.Wait()
		}
		if len(m.queue) == 0 {
			break
		}
		ev := m.queue[0]
		m.queue = m.queue[1:]
		m.inFlight = true
		m.mu.Unlock()
		m.events <- ev
		m.mu.Lock()
		m.inFlight = false
	}
	m.mu.Unlock()
	close(m.events)
}

// Events returns the outbound event stream. Closed by Close.
func (m *Manager) Events() <-chan domain.SessionEvent {
	return m.events
}

// State returns the current lifecycle state.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Initialize acquires local media and constructs the peer connection.
// A media acquisition failure is fatal to this manager; the caller must
// create a fresh one to retry.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state != domain.StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("initialize from state %s", m.state)
	}
	m.setState(domain.StateConnecting)
	m.mu.Unlock()

	// Device acquisition suspends; do not hold the lock across it.
	local, err := m.source.Acquire(media.Preferences{Audio: true, Video: true})

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		// Torn down while we were waiting on devices; release, don't attach.
		if local != nil {
			local.Close()
		}
		return domain.ErrSessionClosed
	}
	if err != nil {
		m.setState(domain.StateFailed)
		m.emit(domain.SessionEvent{Kind: domain.SessionErrored, Err: err})
		return err
	}
	m.local = local
	m.releases = append(m.releases, local.Close)

	pc, err := m.newConn()
	if err != nil {
		m.setState(domain.StateFailed)
		err = fmt.Errorf("create peer connection: %w", err)
		m.emit(domain.SessionEvent{Kind: domain.SessionErrored, Err: err})
		return err
	}
	m.pc = pc

	pc.OnICECandidate(m.onLocalCandidate)
	pc.OnICEConnectionStateChange(m.onICEState)
	pc.OnTrack(m.onRemoteTrack)

	if track := local.AudioTrack(); track != nil {
		sender, err := pc.AddTrack(track)
		if err != nil {
			return m.failLocked(fmt.Errorf("add audio track: %w", err))
		}
		m.audioSender = sender
	}
	if track := local.VideoTrack(); track != nil {
		sender, err := pc.AddTrack(track)
		if err != nil {
			return m.failLocked(fmt.Errorf("add video track: %w", err))
		}
		m.videoSender = sender
	}

	log.Info().Str("module", "session").Str("role", string(m.role)).
		Bool("audio", local.AudioEnabled()).Bool("video", local.VideoEnabled()).
		Msg("peer session initialized")
	return nil
}

// CreateOffer generates a local description and prepares it for the
// signaling channel. Offerer role only; one offer per negotiation round.
func (m *Manager) CreateOffer() (domain.SDPPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.role.Offerer() {
		return domain.SDPPayload{}, domain.ErrNotOfferer
	}
	if m.closed || m.state.Terminal() {
		return domain.SDPPayload{}, domain.ErrSessionClosed
	}
	if m.pc == nil {
		return domain.SDPPayload{}, fmt.Errorf("session not initialized")
	}
	if m.offerInFlight {
		return domain.SDPPayload{}, domain.ErrOfferInFlight
	}

	offer, err := m.pc.CreateOffer(nil)
	if err != nil {
		return domain.SDPPayload{}, m.failLocked(&domain.NegotiationError{
			Code: domain.NegotiationMalformed,
			Err:  fmt.Errorf("create offer: %w", err),
		})
	}
	if err := m.pc.SetLocalDescription(offer); err != nil {
		return domain.SDPPayload{}, m.failLocked(&domain.NegotiationError{
			Code: domain.NegotiationMalformed,
			Err:  fmt.Errorf("set local offer: %w", err),
		})
	}

	m.offerInFlight = true
	return domain.SDPPayload{Type: "offer", SDP: offer.SDP}, nil
}

// HandleOffer applies a remote offer and produces the answer. Answerer
// role only. Queued remote candidates are applied in arrival order once
// the remote description is set.
func (m *Manager) HandleOffer(sdp domain.SDPPayload) (domain.SDPPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.role.Offerer() {
		return domain.SDPPayload{}, fmt.Errorf("offerer received an offer")
	}
	if m.closed || m.state.Terminal() {
		return domain.SDPPayload{}, domain.ErrSessionClosed
	}
	if m.pc == nil {
		return domain.SDPPayload{}, fmt.Errorf("session not initialized")
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp.SDP}
	if err := m.pc.SetRemoteDescription(offer); err != nil {
		return domain.SDPPayload{}, m.failLocked(&domain.NegotiationError{
			Code: domain.NegotiationMalformed,
			Err:  fmt.Errorf("set remote offer: %w", err),
		})
	}
	m.remoteDescSet = true
	m.drainPendingLocked()

	answer, err := m.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SDPPayload{}, m.failLocked(&domain.NegotiationError{
			Code: domain.NegotiationRejected,
			Err:  fmt.Errorf("create answer: %w", err),
		})
	}
	if err := m.pc.SetLocalDescription(answer); err != nil {
		return domain.SDPPayload{}, m.failLocked(&domain.NegotiationError{
			Code: domain.NegotiationMalformed,
			Err:  fmt.Errorf("set local answer: %w", err),
		})
	}

	return domain.SDPPayload{Type: "answer", SDP: answer.SDP}, nil
}

// HandleAnswer applies the remote answer to our own offer. Offerer role
// only. Queued remote candidates are drained identically to HandleOffer.
func (m *Manager) HandleAnswer(sdp domain.SDPPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.role.Offerer() {
		return fmt.Errorf("answerer received an answer")
	}
	if m.closed || m.state.Terminal() {
		return domain.ErrSessionClosed
	}
	if m.pc == nil {
		return fmt.Errorf("session not initialized")
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp.SDP}
	if err := m.pc.SetRemoteDescription(answer); err != nil {
		return m.failLocked(&domain.NegotiationError{
			Code: domain.NegotiationRejected,
			Err:  fmt.Errorf("set remote answer: %w", err),
		})
	}
	m.offerInFlight = false
	m.remoteDescSet = true
	m.drainPendingLocked()
	return nil
}

// HandleRemoteCandidate applies a remote ICE candidate, or queues it if
// no remote description exists yet. Application errors are logged and
// swallowed: candidates are redundant and one bad entry must not abort
// the session.
func (m *Manager) HandleRemoteCandidate(candidate domain.ICECandidatePayload) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.pc == nil {
		return
	}

	init := candidateInit(candidate)
	if !m.remoteDescSet {
		m.pending = append(m.pending, init)
		return
	}
	if err := m.pc.AddICECandidate(init); err != nil {
		log.Warn().Err(err).Str("module", "session").Msg("add ice candidate")
	}
}

// drainPendingLocked applies queued candidates in arrival order and
// discards the queue. Caller holds m.mu.
func (m *Manager) drainPendingLocked() {
	for _, init := range m.pending {
		if err := m.pc.AddICECandidate(init); err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("add queued ice candidate")
		}
	}
	m.pending = nil
}

// SetAudioEnabled toggles the outgoing microphone track.
func (m *Manager) SetAudioEnabled(enabled bool) error {
	return m.setTrackEnabled(enabled, false)
}

// SetVideoEnabled toggles the outgoing camera track. Re-enabling swaps
// the new track onto the existing sender when one exists; otherwise the
// track is added and a renegotiation round is requested.
func (m *Manager) SetVideoEnabled(enabled bool) error {
	return m.setTrackEnabled(enabled, true)
}

func (m *Manager) setTrackEnabled(enabled, video bool) error {
	m.mu.Lock()
	if m.closed || m.local == nil {
		m.mu.Unlock()
		return domain.ErrSessionClosed
	}

	if !enabled {
		defer m.mu.Unlock()
		var sender trackSender
		if video {
			m.local.StopVideo()
			sender = m.videoSender
		} else {
			m.local.StopAudio()
			sender = m.audioSender
		}
		if sender != nil {
			if err := sender.ReplaceTrack(nil); err != nil {
				return fmt.Errorf("detach track: %w", err)
			}
		}
		return nil
	}

	if (video && m.local.VideoEnabled()) || (!video && m.local.AudioEnabled()) {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	// Device acquisition suspends; reacquire without the lock held.
	var (
		track media.Track
		err   error
	)
	if video {
		track, err = m.source.AcquireVideoTrack()
	} else {
		track, err = m.source.AcquireAudioTrack()
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		// Torn down mid-acquisition; stop the track instead of attaching.
		_ = track.Close()
		return domain.ErrSessionClosed
	}

	if video {
		m.local.AttachVideo(track)
	} else {
		m.local.AttachAudio(track)
	}

	sender := m.audioSender
	if video {
		sender = m.videoSender
	}
	if sender != nil {
		// In-place swap, no renegotiation round needed.
		if err := sender.ReplaceTrack(track); err != nil {
			return fmt.Errorf("replace track: %w", err)
		}
		return nil
	}

	// No sender for this kind yet: add the track and ask the room
	// controller to run a fresh offer/answer round.
	newSender, err := m.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if video {
		m.videoSender = newSender
	} else {
		m.audioSender = newSender
	}
	m.emit(domain.SessionEvent{Kind: domain.SessionRenegotiationNeeded})
	return nil
}

// Close tears the session down: every local track is stopped, the peer
// connection closed and all queued state discarded. Safe to call any
// number of times, from any state.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.pending = nil

	for _, release := range m.releases {
		release()
	}
	m.releases = nil

	if m.pc != nil {
		if err := m.pc.Close(); err != nil {
			log.Warn().Err(err).Str("module", "session").Msg("close peer connection")
		}
	}

	m.setState(domain.StateClosed)
	m.notify.Signal()
	log.Info().Str("module", "session").Msg("peer session closed")
}

// onLocalCandidate forwards locally gathered candidates to the event
// stream. A nil candidate marks end of gathering.
func (m *Manager) onLocalCandidate(c *webrtc.ICECandidate) {
	if c == nil {
		return
	}
	init := c.ToJSON()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.emit(domain.SessionEvent{
		Kind:      domain.SessionLocalCandidate,
		Candidate: candidatePayload(init),
	})
}

func (m *Manager) onICEState(state webrtc.ICEConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	log.Info().Str("module", "session").Str("ice_state", state.String()).Msg("ICE state")

	switch state {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		m.iceUp = true
		m.maybeConnectedLocked()
	case webrtc.ICEConnectionStateDisconnected:
		// Transient loss. Report and wait for ICE to self-heal or the
		// caller to decide; no automatic reconnection here.
		m.iceUp = false
		if m.state == domain.StateConnected {
			m.setState(domain.StateReconnecting)
		}
	case webrtc.ICEConnectionStateFailed:
		m.setState(domain.StateFailed)
		m.emit(domain.SessionEvent{
			Kind: domain.SessionErrored,
			Err:  fmt.Errorf("ice connection failed"),
		})
	}
}

func (m *Manager) onRemoteTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.remoteTrack = true
	m.emit(domain.SessionEvent{
		Kind: domain.SessionRemoteTrack,
		Track: domain.RemoteTrack{
			ID:       track.ID(),
			StreamID: track.StreamID(),
			Kind:     track.Kind().String(),
		},
	})
	m.maybeConnectedLocked()
}

// maybeConnectedLocked declares success only once both ICE is up and a
// remote track has arrived. Caller holds m.mu.
func (m *Manager) maybeConnectedLocked() {
	if !m.iceUp || !m.remoteTrack {
		return
	}
	if m.state == domain.StateConnecting || m.state == domain.StateReconnecting {
		m.setState(domain.StateConnected)
	}
}

// failLocked transitions to failed and returns err. Caller holds m.mu.
func (m *Manager) failLocked(err error) error {
	m.setState(domain.StateFailed)
	m.emit(domain.SessionEvent{Kind: domain.SessionErrored, Err: err})
	return err
}

// setState records a transition and emits it. Caller holds m.mu.
func (m *Manager) setState(next domain.SessionState) {
	if m.state == next {
		return
	}
	log.Info().Str("module", "session").
		Str("from", string(m.state)).Str("to", string(next)).Msg("state transition")
	m.state = next
	m.emit(domain.SessionEvent{Kind: domain.SessionStateChanged, State: next})
}

// emit stages an event for delivery. Caller holds m.mu.
func (m *Manager) emit(ev domain.SessionEvent) {
	if m.closed && ev.Kind != domain.SessionStateChanged {
		return
	}
	m.queue = append(m.queue, ev)
	m.notify.Signal()
}

// candidateInit mirrors candidatePayload: fields the wire payload left
// at their zero value stay nil, and an index outside uint16 range is
// dropped rather than truncated.
func candidateInit(p domain.ICECandidatePayload) webrtc.ICECandidateInit {
	init := webrtc.ICECandidateInit{Candidate: p.Candidate}
	if p.SDPMid != "" {
		mid := p.SDPMid
		init.SDPMid = &mid
	}
	if p.SDPMLineIndex > 0 && p.SDPMLineIndex <= math.MaxUint16 {
		index := uint16(p.SDPMLineIndex)
		init.SDPMLineIndex = &index
	}
	return init
}

func candidatePayload(init webrtc.ICECandidateInit) domain.ICECandidatePayload {
	p := domain.ICECandidatePayload{Candidate: init.Candidate}
	if init.SDPMid != nil {
		p.SDPMid = *init.SDPMid
	}
	if init.SDPMLineIndex != nil {
		p.SDPMLineIndex = int(*init.SDPMLineIndex)
	}
	return p
}
