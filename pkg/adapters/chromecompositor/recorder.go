package chromecompositor

import (
	"fmt"
	"time"

	"github.com/user/clipforge/pkg/ports"
)

// recorderFactory creates page MediaRecorders.
type recorderFactory struct {
	c *Compositor
}

func (f *recorderFactory) IsTypeSupported(mimeType string) bool {
	var ok bool
	if err := f.c.eval(f.c.ctx, call("isTypeSupported", mimeType), &ok); err != nil {
		f.c.logger.Debug("isTypeSupported(%s): %v", mimeType, err)
		return false
	}
	return ok
}

func (f *recorderFactory) NewRecorder(stream *ports.MediaStream, opts ports.RecorderOptions, handlers ports.RecorderHandlers) (ports.Recorder, error) {
	ids := make([]string, 0, len(stream.Tracks))
	for _, t := range stream.Tracks {
		pt, ok := t.(*track)
		if !ok || pt.c != f.c {
			return nil, fmt.Errorf("track %s does not belong to this page", t.ID())
		}
		ids = append(ids, pt.id)
	}

	var id string
	if err := f.c.eval(f.c.ctx, call("newRecorder", ids, opts.MimeType, opts.VideoBitsPerSecond), &id); err != nil {
		return nil, err
	}
	r := &recorder{c: f.c, id: id, handlers: handlers}
	f.c.listeners.addRecorder(r)
	return r, nil
}

// recorder is a page MediaRecorder. Its events arrive through the binding.
type recorder struct {
	c        *Compositor
	id       string
	handlers ports.RecorderHandlers
}

func (r *recorder) Start(timeslice time.Duration) error {
	return r.c.eval(r.c.ctx, call("start", r.id, timeslice.Milliseconds()), nil)
}

func (r *recorder) Stop() error {
	return r.c.eval(r.c.ctx, call("stop", r.id), nil)
}

func (r *recorder) State() ports.RecorderState {
	var state string
	if err := r.c.eval(r.c.ctx, call("state", r.id), &state); err != nil {
		return ports.RecorderInactive
	}
	if state == "inactive" {
		return ports.RecorderInactive
	}
	// "paused" is never entered by this adapter.
	return ports.RecorderRecording
}

var (
	_ ports.RecorderFactory = (*recorderFactory)(nil)
	_ ports.Recorder        = (*recorder)(nil)
)
