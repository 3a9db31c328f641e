package media

import "testing"

func TestAttachVideoClosesPrevious(t *testing.T) {
	old := newVideoTrack()
	m := NewLocalMedia(nil, old)

	next := newVideoTrack()
	m.AttachVideo(next)

	if old.closed != 1 {
		t.Errorf("previous track closed %d times, want 1", old.closed)
	}
	if m.VideoTrack() != Track(next) {
		t.Error("new track not attached")
	}
}

func TestStopVideoDisablesAndCloses(t *testing.T) {
	video := newVideoTrack()
	m := NewLocalMedia(newAudioTrack(), video)

	stopped := m.StopVideo()
	if stopped != Track(video) {
		t.Error("StopVideo must return the stopped track")
	}
	if video.closed != 1 {
		t.Errorf("track closed %d times, want 1", video.closed)
	}
	if m.VideoEnabled() {
		t.Error("video still enabled after stop")
	}
	if !m.AudioEnabled() {
		t.Error("audio must be untouched by a video stop")
	}
}

func TestAttachAfterCloseStopsTrack(t *testing.T) {
	m := NewLocalMedia(nil, nil)
	m.Close()

	late := newVideoTrack()
	m.AttachVideo(late)

	if late.closed != 1 {
		t.Error("track acquired after close must be stopped, not attached")
	}
	if m.VideoEnabled() {
		t.Error("closed media set must not report video enabled")
	}
}

func TestCloseIdempotent(t *testing.T) {
	audio := newAudioTrack()
	video := newVideoTrack()
	m := NewLocalMedia(audio, video)

	m.Close()
	m.Close()

	if audio.closed != 1 || video.closed != 1 {
		t.Errorf("tracks closed audio=%d video=%d times, want 1 each", audio.closed, video.closed)
	}
}
