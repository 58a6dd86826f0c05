package main

import (
	"testing"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/config"
	"github.com/user/clipforge/pkg/pipeline"
)

func TestMimeFor(t *testing.T) {
	tests := map[string]string{
		"take.webm":  pipeline.MimeWebM,
		"take.MP4":   pipeline.MimeMP4,
		"take.mov":   pipeline.MimeMP4,
		"recording":  pipeline.MimeWebM,
		"/tmp/a.m4v": pipeline.MimeMP4,
	}
	for path, want := range tests {
		if got := mimeFor(path); got != want {
			t.Errorf("mimeFor(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestNewOrchestrator(t *testing.T) {
	cfg := config.Defaults()
	if orch := newOrchestrator(cfg, nil, logger.NewNoop()); orch == nil {
		t.Fatal("expected orchestrator")
	}
	cfg.Remote.BaseURL = "http://localhost:3001"
	if orch := newOrchestrator(cfg, nil, logger.NewNoop()); orch == nil {
		t.Fatal("expected orchestrator with remote stage")
	}
}
