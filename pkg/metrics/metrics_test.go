package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/user/clipforge/pkg/pipeline"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"ExportsTotal", ExportsTotal},
		{"ExportDuration", ExportDuration},
		{"StrategyFallbacksTotal", StrategyFallbacksTotal},
		{"ArtifactBytes", ArtifactBytes},
		{"ConversionsTotal", ConversionsTotal},
		{"ConversionDuration", ConversionDuration},
		{"EngineLoadsTotal", EngineLoadsTotal},
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, StatusOK},
		{fmt.Errorf("record stage: %w", pipeline.ErrCancelled), StatusCancelled},
		{pipeline.ErrUnsupportedEnvironment, StatusUnsupported},
		{&pipeline.RemoteServiceError{StatusCode: 500, Message: "boom"}, StatusRemote},
		{errors.New("other"), StatusError},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestObserve(t *testing.T) {
	// Observations must not panic on label cardinality mismatches.
	ObserveExport("capture", time.Now(), pipeline.Artifact{Data: []byte("x"), MimeType: pipeline.MimeWebM}, nil)
	ObserveExport("transcode", time.Now(), pipeline.Artifact{}, pipeline.ErrCancelled)
	ObserveConversion("local", time.Now(), nil)
}
