// Package session manages the lifecycle of one peer connection: the
// offer/answer/ICE exchange, track replacement and quality sampling.
package session

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/nack"
	"github.com/pion/mediadevices"
	"github.com/pion/webrtc/v4"

	"interviewlink/native/internal/domain"
)

// NewAPI builds the pion API shared by every peer connection this agent
// creates: default codecs plus the acquirer's codec selector, and a NACK
// responder so lost outbound packets are retransmitted.
func NewAPI(codec *mediadevices.CodecSelector) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	codec.Populate(m)

	i := &interceptor.Registry{}
	responder, err := nack.NewResponderInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack responder: %w", err)
	}
	i.Add(responder)

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
	), nil
}

// PeerConnectionConfig maps configured ICE servers to a pion
// configuration for NAT traversal.
func PeerConnectionConfig(servers []domain.ICEServer) webrtc.Configuration {
	cfg := webrtc.Configuration{
		BundlePolicy: webrtc.BundlePolicyMaxBundle,
	}
	for _, s := range servers {
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{
			URLs:       []string{s.URL},
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return cfg
}
