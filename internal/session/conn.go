package session

import (
	"github.com/pion/webrtc/v4"
)

// peerConn is the slice of *webrtc.PeerConnection the manager depends
// on. Narrowing it to an interface keeps the negotiation state machine
// testable without devices or a network.
type peerConn interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	RemoteDescription() *webrtc.SessionDescription
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	AddTrack(track webrtc.TrackLocal) (trackSender, error)
	OnICECandidate(f func(*webrtc.ICECandidate))
	OnICEConnectionStateChange(f func(webrtc.ICEConnectionState))
	OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	GetStats() webrtc.StatsReport
	Close() error
}

// trackSender is the part of *webrtc.RTPSender used for in-place track
// replacement. ReplaceTrack(nil) stops sending without renegotiation.
type trackSender interface {
	ReplaceTrack(track webrtc.TrackLocal) error
}

// pionConn adapts *webrtc.PeerConnection to peerConn.
type pionConn struct {
	pc *webrtc.PeerConnection
}

func (c *pionConn) CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(options)
}

func (c *pionConn) CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(options)
}

func (c *pionConn) SetLocalDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(desc)
}

func (c *pionConn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *pionConn) RemoteDescription() *webrtc.SessionDescription {
	return c.pc.RemoteDescription()
}

func (c *pionConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

func (c *pionConn) AddTrack(track webrtc.TrackLocal) (trackSender, error) {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func (c *pionConn) OnICECandidate(f func(*webrtc.ICECandidate)) {
	c.pc.OnICECandidate(f)
}

func (c *pionConn) OnICEConnectionStateChange(f func(webrtc.ICEConnectionState)) {
	c.pc.OnICEConnectionStateChange(f)
}

func (c *pionConn) OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	c.pc.OnTrack(f)
}

func (c *pionConn) GetStats() webrtc.StatsReport {
	return c.pc.GetStats()
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}
