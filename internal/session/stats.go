package session

import (
	"time"

	"github.com/pion/webrtc/v4"

	"interviewlink/native/internal/domain"
)

// SampleQuality reads the most recent inbound video statistics. Returns
// false when no inbound video stream exists yet. The poll cadence is
// owned by the room controller; this call never blocks on the network.
func (m *Manager) SampleQuality() (domain.QualitySample, bool) {
	m.mu.Lock()
	pc := m.pc
	closed := m.closed
	m.mu.Unlock()

	if closed || pc == nil {
		return domain.QualitySample{}, false
	}

	for _, stat := range pc.GetStats() {
		inbound, ok := stat.(webrtc.InboundRTPStreamStats)
		if !ok || inbound.Kind != "video" {
			continue
		}
		lost := inbound.PacketsLost
		if lost < 0 {
			lost = 0
		}
		return domain.QualitySample{
			PacketsLost:     uint32(lost),
			PacketsReceived: inbound.PacketsReceived,
			SampledAt:       time.Now(),
		}, true
	}
	return domain.QualitySample{}, false
}

// ConnectionType inspects the succeeded candidate pair to report whether
// media flows directly or through a TURN relay.
func (m *Manager) ConnectionType() string {
	m.mu.Lock()
	pc := m.pc
	closed := m.closed
	m.mu.Unlock()

	if closed || pc == nil {
		return "unknown"
	}

	stats := pc.GetStats()
	for _, stat := range stats {
		pair, ok := stat.(webrtc.ICECandidatePairStats)
		if !ok || pair.State != webrtc.StatsICECandidatePairStateSucceeded {
			continue
		}
		for _, s := range stats {
			local, ok := s.(webrtc.ICECandidateStats)
			if !ok || local.ID != pair.LocalCandidateID {
				continue
			}
			switch local.CandidateType {
			case webrtc.ICECandidateTypeRelay:
				return "relay"
			case webrtc.ICECandidateTypeHost, webrtc.ICECandidateTypeSrflx, webrtc.ICECandidateTypePrflx:
				return "direct"
			}
		}
	}
	return "unknown"
}
