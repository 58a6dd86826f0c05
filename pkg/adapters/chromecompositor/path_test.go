package chromecompositor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveChromePath(t *testing.T) {
	t.Setenv("CHROME_PATH", "/env/chrome")

	if got := ResolveChromePath("/explicit/chrome"); got != "/explicit/chrome" {
		t.Errorf("explicit path should win, got %s", got)
	}
	if got := ResolveChromePath(""); got != "/env/chrome" {
		t.Errorf("expected CHROME_PATH, got %s", got)
	}
}

func TestChromeCandidates(t *testing.T) {
	if got := chromeCandidates("linux"); len(got) == 0 || got[0] != "chromium" {
		t.Errorf("linux candidates = %v, want chromium first", got)
	}
	if got := chromeCandidates("plan9"); got != nil {
		t.Errorf("unknown platform candidates = %v, want none", got)
	}
}

func TestResolveExecutable(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "chrome")
	if err := os.WriteFile(existing, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"existing absolute path", existing, existing},
		{"missing absolute path", filepath.Join(dir, "missing"), ""},
		{"unknown command", "definitely-not-a-browser-12345", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveExecutable(tt.input); got != tt.want {
				t.Errorf("resolveExecutable(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
