package transcode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/mocks"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 54, 96))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []pipeline.StageName
	values []int
}

func (r *stageRecorder) fn(percent int, stage pipeline.StageName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, percent)
	r.stages = append(r.stages, stage)
}

func TestRun_CleansUpOnSuccess(t *testing.T) {
	eng := &mocks.TranscodeEngine{}
	data, err := Run(context.Background(), eng, Remux([]byte("webm"), DefaultOptions()), logger.NewNoop())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(data) != "output" {
		t.Errorf("unexpected output %q", data)
	}
	job := eng.Jobs()[0]
	if files := job.Files(); len(files) != 0 {
		t.Errorf("expected empty store, got %v", files)
	}
	if !job.Closed() {
		t.Error("expected job closed")
	}
}

func TestRun_CleansUpOnFailure(t *testing.T) {
	execErr := errors.New("exit status 1")
	eng := &mocks.TranscodeEngine{
		ExecFunc: func(ctx context.Context, job *mocks.TranscodeJob, args []string) error {
			job.WriteFile("output.mp4", []byte("partial"))
			return execErr
		},
	}
	_, err := Run(context.Background(), eng, Remux([]byte("webm"), DefaultOptions()), logger.NewNoop())

	var encErr *pipeline.EncodingError
	if !errors.As(err, &encErr) || encErr.Op != "remux" {
		t.Fatalf("expected remux EncodingError, got %v", err)
	}
	if !errors.Is(err, execErr) {
		t.Errorf("expected exec error wrapped, got %v", err)
	}
	job := eng.Jobs()[0]
	if files := job.Files(); len(files) != 0 {
		t.Errorf("expected empty store after failure, got %v", files)
	}
	if !job.Closed() {
		t.Error("expected job closed")
	}
}

func TestRun_MissingOutput(t *testing.T) {
	eng := &mocks.TranscodeEngine{
		ExecFunc: func(ctx context.Context, job *mocks.TranscodeJob, args []string) error { return nil },
	}
	_, err := Run(context.Background(), eng, Remux([]byte("webm"), DefaultOptions()), logger.NewNoop())
	var encErr *pipeline.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func newTestStage(t *testing.T, eng *mocks.TranscodeEngine) (*Stage, *mocks.Compositor) {
	t.Helper()
	comp := mocks.NewCompositor()
	comp.MediaMock.URL = "https://cdn.example.com/video.mp4"
	snapshot := testPNG(t)
	comp.SurfaceMock.SnapshotFunc = func(ctx context.Context) ([]byte, error) {
		return snapshot, nil
	}
	fetcher := &mocks.SourceFetcher{Data: []byte("source")}
	stage := NewStage(&mocks.EngineProvider{Engine: eng}, comp, fetcher, DefaultOptions(), logger.NewNoop()).
		WithSnapshotTiming(time.Second, time.Millisecond)
	return stage, comp
}

func TestStage_Execute(t *testing.T) {
	eng := &mocks.TranscodeEngine{}
	stage, comp := newTestStage(t, eng)

	progress := &stageRecorder{}
	input := pipeline.TranscodeInput{
		Window: pipeline.ClipWindow{Start: 10, End: 20},
		Hooks:  pipeline.Hooks{Progress: progress.fn},
	}
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Artifact.MimeType != pipeline.MimeMP4 {
		t.Errorf("unexpected mime %s", result.Artifact.MimeType)
	}

	if pos, _ := comp.MediaMock.Position(); pos != 15 {
		t.Errorf("expected snapshot at the window midpoint 15, media at %v", pos)
	}

	wantStages := []pipeline.StageName{
		pipeline.StageLoadingFFmpeg, pipeline.StageDownloading, pipeline.StageCapturingSubtitles,
		pipeline.StageProcessing, pipeline.StageFinalizing, pipeline.StageComplete,
	}
	wantValues := []int{10, 20, 30, 50, 90, 100}
	if len(progress.stages) != len(wantStages) {
		t.Fatalf("unexpected progress %v %v", progress.values, progress.stages)
	}
	for i := range wantStages {
		if progress.stages[i] != wantStages[i] || progress.values[i] != wantValues[i] {
			t.Errorf("report %d = %d %s, want %d %s", i, progress.values[i], progress.stages[i], wantValues[i], wantStages[i])
		}
	}

	job := eng.Jobs()[0]
	args := job.Args()[0]
	if got := argValue(args, "-ss"); got != "10" {
		t.Errorf("-ss = %s", got)
	}
	if files := job.Files(); len(files) != 0 {
		t.Errorf("expected empty store, got %v", files)
	}
	if comp.MediaMock.Listeners() != 0 {
		t.Error("expected seeked listener detached")
	}
}

func TestStage_Cancelled(t *testing.T) {
	eng := &mocks.TranscodeEngine{}
	stage, _ := newTestStage(t, eng)

	input := pipeline.TranscodeInput{
		Window: pipeline.ClipWindow{Start: 0, End: 5},
		Hooks:  pipeline.Hooks{Cancel: func() bool { return true }},
	}
	_, err := stage.Execute(context.Background(), input)
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(eng.Jobs()) != 0 {
		t.Error("no job may run after cancellation")
	}
}

func TestStage_EngineUnavailable(t *testing.T) {
	loadErr := errors.New("ffmpeg not found")
	comp := mocks.NewCompositor()
	provider := &mocks.EngineProvider{
		AcquireFunc: func(ctx context.Context) (ports.TranscodeEngine, error) { return nil, loadErr },
	}
	stage := NewStage(provider, comp, &mocks.SourceFetcher{}, DefaultOptions(), logger.NewNoop())

	_, err := stage.Execute(context.Background(), pipeline.TranscodeInput{Window: pipeline.ClipWindow{Start: 0, End: 1}})
	if !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestStage_SeekTimeout(t *testing.T) {
	eng := &mocks.TranscodeEngine{}
	stage, comp := newTestStage(t, eng)
	comp.MediaMock.SeekFunc = func(seconds float64) error { return nil }
	stage.WithSnapshotTiming(20*time.Millisecond, time.Millisecond)

	_, err := stage.Execute(context.Background(), pipeline.TranscodeInput{Window: pipeline.ClipWindow{Start: 0, End: 1}})
	if !errors.Is(err, ErrSeekTimeout) {
		t.Fatalf("expected ErrSeekTimeout, got %v", err)
	}
}

func TestConvertStage_Execute(t *testing.T) {
	eng := &mocks.TranscodeEngine{}
	stage := NewConvertStage(&mocks.EngineProvider{Engine: eng}, DefaultOptions(), logger.NewNoop())

	progress := &stageRecorder{}
	input := pipeline.ConvertInput{
		Artifact: pipeline.Artifact{Data: []byte("webm"), MimeType: "video/webm;codecs=vp8,opus", DurationMs: 3000},
		Hooks:    pipeline.Hooks{Progress: progress.fn},
	}
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Artifact.MimeType != pipeline.MimeMP4 || result.Artifact.DurationMs != 3000 {
		t.Errorf("unexpected artifact %+v", result.Artifact)
	}
	wantValues := []int{0, 40, 60, 70, 90, 100}
	if len(progress.values) != len(wantValues) {
		t.Fatalf("unexpected progress %v", progress.values)
	}
	for i, v := range wantValues {
		if progress.values[i] != v {
			t.Errorf("report %d = %d, want %d", i, progress.values[i], v)
		}
	}

	// MP4 input passes through.
	mp4 := pipeline.Artifact{Data: []byte("mp4"), MimeType: pipeline.MimeMP4}
	result, err = stage.Execute(context.Background(), pipeline.ConvertInput{Artifact: mp4})
	if err != nil || string(result.Artifact.Data) != "mp4" {
		t.Errorf("expected passthrough, got %v %q", err, result.Artifact.Data)
	}
	if len(eng.Jobs()) != 1 {
		t.Errorf("expected one remux job, got %d", len(eng.Jobs()))
	}
}

func TestExtractStage_Execute(t *testing.T) {
	eng := &mocks.TranscodeEngine{}
	var fetched string
	fetcher := &mocks.SourceFetcher{FetchFunc: func(ctx context.Context, location string) ([]byte, error) {
		fetched = location
		return []byte("source"), nil
	}}
	stage := NewExtractStage(&mocks.EngineProvider{Engine: eng}, fetcher, DefaultOptions(), logger.NewNoop())

	progress := &stageRecorder{}
	_, err := stage.Execute(context.Background(), pipeline.ExtractInput{
		SourceURL: "/videos/a.mp4",
		Window:    pipeline.ClipWindow{Start: 10, End: 25},
		Hooks:     pipeline.Hooks{Progress: progress.fn},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if fetched != "/videos/a.mp4" {
		t.Errorf("fetched %q", fetched)
	}
	want := []pipeline.StageName{
		pipeline.StageLoadingFFmpeg, pipeline.StageDownloadingVideo, pipeline.StageProcessing,
		pipeline.StageFinalizing, pipeline.StageComplete,
	}
	if len(progress.stages) != len(want) {
		t.Fatalf("unexpected stages %v", progress.stages)
	}
	for i := range want {
		if progress.stages[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, progress.stages[i], want[i])
		}
	}
	if got := argValue(eng.Jobs()[0].Args()[0], "-t"); got != "15" {
		t.Errorf("-t = %s", got)
	}
}
