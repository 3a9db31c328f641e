package media

import (
	"fmt"
	"strings"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/rs/zerolog/log"

	"interviewlink/native/internal/domain"
)

// Preferences selects which media kinds to attempt.
type Preferences struct {
	Audio bool
	Video bool
}

// stream is the slice of mediadevices.MediaStream consumed here.
type stream interface {
	AudioTracks() []Track
	VideoTracks() []Track
}

// getUserMedia acquires a stream for the given constraints; injectable
// for tests.
type getUserMedia func(mediadevices.MediaStreamConstraints) (stream, error)

// enumerateDevices matches mediadevices.EnumerateDevices.
type enumerateDevices func() []mediadevices.MediaDeviceInfo

// Acquirer obtains local media through a descending constraint ladder.
type Acquirer struct {
	codec     *mediadevices.CodecSelector
	gum       getUserMedia
	enumerate enumerateDevices
}

// NewAcquirer creates an Acquirer backed by the platform media drivers.
func NewAcquirer(codec *mediadevices.CodecSelector) *Acquirer {
	return &Acquirer{
		codec:     codec,
		gum:       platformGetUserMedia,
		enumerate: mediadevices.EnumerateDevices,
	}
}

// platformGetUserMedia adapts mediadevices.GetUserMedia to the narrow
// stream interface.
func platformGetUserMedia(c mediadevices.MediaStreamConstraints) (stream, error) {
	s, err := mediadevices.GetUserMedia(c)
	if err != nil {
		return nil, err
	}
	return mdStream{s: s}, nil
}

type mdStream struct {
	s mediadevices.MediaStream
}

func (m mdStream) AudioTracks() []Track {
	tracks := m.s.GetAudioTracks()
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t)
	}
	return out
}

func (m mdStream) VideoTracks() []Track {
	tracks := m.s.GetVideoTracks()
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t)
	}
	return out
}

// rung is one entry of the degrading constraint ladder.
type rung struct {
	name  string
	apply func(*mediadevices.MediaStreamConstraints)
}

func (a *Acquirer) videoLadder(withAudio bool) []rung {
	audioOpt := func(c *mediadevices.MediaTrackConstraints) {
		c.SampleRate = prop.Int(48000)
		c.ChannelCount = prop.Int(1)
	}
	return []rung{
		{
			name: "hd",
			apply: func(msc *mediadevices.MediaStreamConstraints) {
				msc.Video = func(c *mediadevices.MediaTrackConstraints) {
					c.Width = prop.Int(1280)
					c.Height = prop.Int(720)
					c.FrameRate = prop.Float(30)
				}
				if withAudio {
					msc.Audio = audioOpt
				}
			},
		},
		{
			name: "sd",
			apply: func(msc *mediadevices.MediaStreamConstraints) {
				msc.Video = func(c *mediadevices.MediaTrackConstraints) {
					c.Width = prop.Int(640)
					c.Height = prop.Int(480)
				}
				if withAudio {
					msc.Audio = audioOpt
				}
			},
		},
		{
			name: "any",
			apply: func(msc *mediadevices.MediaStreamConstraints) {
				msc.Video = func(c *mediadevices.MediaTrackConstraints) {}
				if withAudio {
					msc.Audio = func(c *mediadevices.MediaTrackConstraints) {}
				}
			},
		},
	}
}

func audioOnlyRung() rung {
	return rung{
		name: "audio-only",
		apply: func(msc *mediadevices.MediaStreamConstraints) {
			msc.Audio = func(c *mediadevices.MediaTrackConstraints) {}
		},
	}
}

// Acquire walks the constraint ladder and returns the first media set
// that succeeds. A permission refusal aborts immediately: looser
// constraints cannot fix it. Every other failure reason moves on to the
// next rung. When all rungs fail a classified DeviceError is returned.
func (a *Acquirer) Acquire(prefs Preferences) (*LocalMedia, error) {
	wantVideo := prefs.Video && a.HasVideoInput()
	if prefs.Video && !wantVideo {
		log.Warn().Str("module", "media").Msg("no video input device, degrading to audio only")
	}

	var ladder []rung
	if wantVideo {
		ladder = a.videoLadder(prefs.Audio)
	}
	if prefs.Audio {
		ladder = append(ladder, audioOnlyRung())
	}
	if len(ladder) == 0 {
		return nil, &domain.DeviceError{
			Code: domain.DeviceNotFound,
			Err:  fmt.Errorf("nothing to acquire for prefs %+v", prefs),
		}
	}

	var lastErr error
	for _, r := range ladder {
		msc := mediadevices.MediaStreamConstraints{Codec: a.codec}
		r.apply(&msc)

		s, err := a.gum(msc)
		if err == nil {
			log.Info().Str("module", "media").Str("rung", r.name).Msg("media acquired")
			return fromStream(s), nil
		}

		code := classify(err)
		log.Warn().Err(err).Str("module", "media").Str("rung", r.name).
			Str("code", string(code)).Msg("acquisition attempt failed")
		if code == domain.DevicePermissionDenied {
			// Retrying with looser constraints cannot fix a refusal.
			return nil, &domain.DeviceError{Code: code, Err: err}
		}
		lastErr = err
	}

	return nil, &domain.DeviceError{Code: classify(lastErr), Err: lastErr}
}

// AcquireVideoTrack obtains a standalone video track, used to re-enable
// the camera after it was toggled off. Same ladder and refusal rule.
func (a *Acquirer) AcquireVideoTrack() (Track, error) {
	var lastErr error
	for _, r := range a.videoLadder(false) {
		msc := mediadevices.MediaStreamConstraints{Codec: a.codec}
		r.apply(&msc)

		s, err := a.gum(msc)
		if err == nil {
			tracks := s.VideoTracks()
			if len(tracks) == 0 {
				lastErr = fmt.Errorf("rung %s returned no video track", r.name)
				continue
			}
			return tracks[0], nil
		}

		code := classify(err)
		if code == domain.DevicePermissionDenied {
			return nil, &domain.DeviceError{Code: code, Err: err}
		}
		lastErr = err
	}
	return nil, &domain.DeviceError{Code: classify(lastErr), Err: lastErr}
}

// AcquireAudioTrack obtains a standalone audio track, used to re-enable
// the microphone after it was toggled off.
func (a *Acquirer) AcquireAudioTrack() (Track, error) {
	msc := mediadevices.MediaStreamConstraints{Codec: a.codec}
	audioOnlyRung().apply(&msc)

	s, err := a.gum(msc)
	if err != nil {
		return nil, &domain.DeviceError{Code: classify(err), Err: err}
	}
	tracks := s.AudioTracks()
	if len(tracks) == 0 {
		return nil, &domain.DeviceError{
			Code: domain.DeviceNotFound,
			Err:  fmt.Errorf("acquisition returned no audio track"),
		}
	}
	return tracks[0], nil
}

// HasVideoInput reports whether any camera is present, deciding whether
// to attempt video at all.
func (a *Acquirer) HasVideoInput() bool {
	for _, d := range a.enumerate() {
		if d.Kind == mediadevices.VideoInput {
			return true
		}
	}
	return false
}

// HasAudioInput reports whether any microphone is present.
func (a *Acquirer) HasAudioInput() bool {
	for _, d := range a.enumerate() {
		if d.Kind == mediadevices.AudioInput {
			return true
		}
	}
	return false
}

func fromStream(s stream) *LocalMedia {
	var audio, video Track
	if tracks := s.AudioTracks(); len(tracks) > 0 {
		audio = tracks[0]
	}
	if tracks := s.VideoTracks(); len(tracks) > 0 {
		video = tracks[0]
	}
	return NewLocalMedia(audio, video)
}

// classify maps a driver error to the device error taxonomy. The pion
// drivers surface platform error strings, so matching is heuristic.
func classify(err error) domain.DeviceErrorCode {
	if err == nil {
		return domain.DeviceUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "not allowed"),
		strings.Contains(msg, "operation not permitted"):
		return domain.DevicePermissionDenied
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "no such"),
		strings.Contains(msg, "no device"):
		return domain.DeviceNotFound
	case strings.Contains(msg, "busy"),
		strings.Contains(msg, "in use"):
		return domain.DeviceBusy
	default:
		return domain.DeviceUnknown
	}
}
