// Package media acquires and owns local audio/video tracks.
package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Track is a locally owned media track that can be attached to a peer
// connection and must be closed when replaced or released.
type Track interface {
	webrtc.TrackLocal
	Close() error
}

// LocalMedia owns the set of acquired local tracks. The logical stream
// identity persists across track swaps; only track membership changes.
type LocalMedia struct {
	mu           sync.Mutex
	audio        Track
	video        Track
	audioEnabled bool
	videoEnabled bool
	closed       bool
}

// NewLocalMedia takes ownership of the given tracks. Either may be nil.
func NewLocalMedia(audio, video Track) *LocalMedia {
	return &LocalMedia{
		audio:        audio,
		video:        video,
		audioEnabled: audio != nil,
		videoEnabled: video != nil,
	}
}

// AudioTrack returns the current audio track, or nil.
func (m *LocalMedia) AudioTrack() Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audio
}

// VideoTrack returns the current video track, or nil.
func (m *LocalMedia) VideoTrack() Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.video
}

// AudioEnabled reports whether an audio track is live.
func (m *LocalMedia) AudioEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioEnabled
}

// VideoEnabled reports whether a video track is live.
func (m *LocalMedia) VideoEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videoEnabled
}

// StopVideo stops and detaches the current video track. Returns the
// stopped track so the caller can detach it from the sender.
func (m *LocalMedia) StopVideo() Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.video
	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn().Err(err).Str("module", "media").Msg("stop video track")
		}
	}
	m.video = nil
	m.videoEnabled = false
	return old
}

// StopAudio stops and detaches the current audio track.
func (m *LocalMedia) StopAudio() Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.audio
	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn().Err(err).Str("module", "media").Msg("stop audio track")
		}
	}
	m.audio = nil
	m.audioEnabled = false
	return old
}

// AttachVideo grafts a new video track in, stopping any previous one.
// If the media set was already closed the track is stopped immediately
// instead of attached, so late async acquisitions cannot leak.
func (m *LocalMedia) AttachVideo(t Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		_ = t.Close()
		return
	}
	if m.video != nil {
		_ = m.video.Close()
	}
	m.video = t
	m.videoEnabled = true
}

// AttachAudio grafts a new audio track in, stopping any previous one.
func (m *LocalMedia) AttachAudio(t Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		_ = t.Close()
		return
	}
	if m.audio != nil {
		_ = m.audio.Close()
	}
	m.audio = t
	m.audioEnabled = true
}

// Close stops every owned track. Safe to call multiple times.
func (m *LocalMedia) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	if m.audio != nil {
		if err := m.audio.Close(); err != nil {
			log.Warn().Err(err).Str("module", "media").Msg("close audio track")
		}
		m.audio = nil
	}
	if m.video != nil {
		if err := m.video.Close(); err != nil {
			log.Warn().Err(err).Str("module", "media").Msg("close video track")
		}
		m.video = nil
	}
	m.audioEnabled = false
	m.videoEnabled = false
}
