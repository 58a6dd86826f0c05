package record

import (
	"fmt"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// session holds what one run acquires. release undoes all of it.
type session struct {
	stream        *ports.MediaStream
	audioCaptured bool
	savedAudio    ports.AudioOutput
	audioSaved    bool
	mimeType      string
	recorder      ports.Recorder
	chunks        [][]byte
	detachSeeked  func()
	detachPos     func()
}

// acquireStream captures the surface and, when available, the media audio.
// A missing audio track is logged and the run continues video-only.
func (r *run) acquireStream() error {
	video, err := r.compositor.Surface().CaptureStream(r.input.FPS)
	if err != nil {
		return &pipeline.DeviceCaptureError{Device: "surface", Err: err}
	}
	r.sess.stream = video
	r.progress.Report(10, pipeline.StagePreparing)

	audio, err := r.compositor.Media().CaptureAudio()
	if err != nil {
		capErr := &pipeline.DeviceCaptureError{Device: "audio", Err: err}
		r.logger.Warn("Audio capture unavailable, recording video only: %v", capErr)
		return nil
	}
	if len(audio) == 0 {
		r.logger.Warn("Media has no audio track, recording video only")
		return nil
	}
	r.sess.stream = ports.NewMediaStream(video.Tracks, audio)
	r.sess.audioCaptured = true
	return nil
}

// silenceMedia saves the audible state of the media and mutes it for the run.
func (r *run) silenceMedia() {
	media := r.compositor.Media()
	out, err := media.AudioOutput()
	if err != nil {
		r.logger.Warn("Cannot read audio output state: %v", err)
		return
	}
	r.sess.savedAudio = out
	r.sess.audioSaved = true
	if err := media.SetAudioOutput(ports.AudioOutput{Muted: true, Volume: 0}); err != nil {
		r.logger.Warn("Cannot mute media: %v", err)
	}
}

// negotiateMimeType returns the first preferred format the recorder supports.
func negotiateMimeType(factory ports.RecorderFactory, prefs []string) (string, error) {
	for _, mt := range prefs {
		if factory.IsTypeSupported(mt) {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: %v: %w", pipeline.ErrUnsupportedEnvironment, prefs, ErrNoSupportedFormat)
}

// createRecorder binds a recorder to the session stream. Its callbacks only enqueue.
func (r *run) createRecorder() error {
	factory := r.compositor.Recorders()
	mt, err := negotiateMimeType(factory, r.input.MimePreferences)
	if err != nil {
		return err
	}
	r.sess.mimeType = mt
	r.logger.Debug("Recorder format %s at %d bps", mt, r.input.VideoBitsPerSecond)

	rec, err := factory.NewRecorder(r.sess.stream, ports.RecorderOptions{
		MimeType:           mt,
		VideoBitsPerSecond: r.input.VideoBitsPerSecond,
	}, ports.RecorderHandlers{
		OnData: func(chunk []byte) {
			if len(chunk) > 0 {
				r.enqueue(event{kind: evDataAvailable, data: chunk})
			}
		},
		OnStop: func() {
			r.enqueue(event{kind: evRecorderStopped})
		},
		OnError: func(err error) {
			r.enqueue(event{kind: evRecorderFailed, err: err})
		},
	})
	if err != nil {
		return &pipeline.EncodingError{Op: "recorder create", Err: err}
	}
	r.sess.recorder = rec
	return nil
}

// release restores the media and frees every acquired resource.
func (r *run) release() {
	r.stopping.Store(true)
	r.stopClocks()
	if r.sess.detachSeeked != nil {
		r.sess.detachSeeked()
		r.sess.detachSeeked = nil
	}
	if r.sess.detachPos != nil {
		r.sess.detachPos()
		r.sess.detachPos = nil
	}
	if r.sess.recorder != nil && r.sess.recorder.State() == ports.RecorderRecording {
		if err := r.sess.recorder.Stop(); err != nil {
			r.logger.Debug("Recorder stop on release: %v", err)
		}
	}
	if r.sess.audioSaved {
		if err := r.compositor.Media().SetAudioOutput(r.sess.savedAudio); err != nil {
			r.logger.Warn("Cannot restore audio output: %v", err)
		}
	}
	if r.sess.stream != nil {
		for _, track := range r.sess.stream.Tracks {
			if err := track.Stop(); err != nil {
				r.logger.Debug("Track %s stop: %v", track.ID(), err)
			}
		}
	}
	r.closeOnce.Do(func() { close(r.done) })
}
