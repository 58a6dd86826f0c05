// Package strategy chooses between realtime capture and software transcode.
package strategy

import (
	"fmt"
	"strings"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// Strategy is an export path.
type Strategy string

const (
	// Capture records the compositor surface and the original audio while they play.
	Capture Strategy = "capture"
	// Transcode re-encodes the original media with a snapshot overlay.
	Transcode Strategy = "transcode"
)

// incompatible lists user agent tests for hosts whose realtime capture is
// known to produce unusable output.
var incompatible = []func(ua string) bool{
	isSafari,
}

// isSafari matches WebKit Safari but not the Chromium family, whose user
// agents also contain "safari".
func isSafari(ua string) bool {
	ua = strings.ToLower(ua)
	if !strings.Contains(ua, "safari") {
		return false
	}
	for _, other := range []string{"chrome", "chromium", "android"} {
		if strings.Contains(ua, other) {
			return false
		}
	}
	return true
}

// Select returns Capture when the environment can record in realtime,
// Transcode otherwise.
func Select(env ports.Environment) Strategy {
	if CheckCapture(env) != nil {
		return Transcode
	}
	return Capture
}

// CheckCapture returns pipeline.ErrUnsupportedEnvironment when realtime
// capture cannot run in env.
func CheckCapture(env ports.Environment) error {
	for _, match := range incompatible {
		if match(env.UserAgent) {
			return fmt.Errorf("%w: incompatible user agent", pipeline.ErrUnsupportedEnvironment)
		}
	}
	if !env.ElementCapture {
		return fmt.Errorf("%w: no element capture", pipeline.ErrUnsupportedEnvironment)
	}
	if !env.Recorder {
		return fmt.Errorf("%w: no stream recorder", pipeline.ErrUnsupportedEnvironment)
	}
	return nil
}

// Parse converts a configured name into a Strategy. "auto" and "" return ok=false.
func Parse(s string) (Strategy, bool, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return "", false, nil
	case string(Capture):
		return Capture, true, nil
	case string(Transcode):
		return Transcode, true, nil
	default:
		return "", false, fmt.Errorf("strategy: unknown strategy %q", s)
	}
}
