package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/adapters/remoteconvert"
	"github.com/user/clipforge/pkg/mocks"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/stages/transcode"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fakeConvert(err error) pipeline.StageFunc[pipeline.ConvertInput, pipeline.ConvertResult] {
	return func(ctx context.Context, in pipeline.ConvertInput) (pipeline.ConvertResult, error) {
		if err != nil {
			return pipeline.ConvertResult{}, err
		}
		data := append([]byte("mp4:"), in.Artifact.Data...)
		return pipeline.ConvertResult{Artifact: pipeline.Artifact{Data: data, MimeType: pipeline.MimeMP4}}, nil
	}
}

func upload(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %s", rec.Body.String())
	}
	return body
}

func TestServer_Health(t *testing.T) {
	s := New(fakeConvert(nil), DefaultOptions(), logger.NewNoop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorMessage(t, rec)["status"]; got != "ok" {
		t.Errorf("status = %q, want ok", got)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := New(fakeConvert(nil), DefaultOptions(), logger.NewNoop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "clipforge_http_requests_in_flight") {
		t.Error("metrics output missing clipforge metrics")
	}
}

func TestServer_Convert(t *testing.T) {
	s := New(fakeConvert(nil), DefaultOptions(), logger.NewNoop())
	body, ct := upload(t, "video", "take.webm", "video/webm", []byte("webm-data"))

	req := httptest.NewRequest(http.MethodPost, "/api/convert-webm-to-mp4", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="take.mp4"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "mp4:webm-data" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestServer_ConvertErrors(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		filename   string
		ctype      string
		convertErr error
		maxUpload  int64
		wantStatus int
		wantError  string
	}{
		{
			name: "missing file", field: "other", filename: "a.webm", ctype: "video/webm",
			wantStatus: http.StatusBadRequest, wantError: "No video file provided",
		},
		{
			name: "not webm", field: "video", filename: "a.mov", ctype: "video/quicktime",
			wantStatus: http.StatusBadRequest, wantError: "Only WebM files are supported",
		},
		{
			name: "conversion failure", field: "video", filename: "a.webm", ctype: "video/webm",
			convertErr: &pipeline.EncodingError{Op: "remux", Err: errors.New("moov atom not found")},
			wantStatus: http.StatusInternalServerError, wantError: "Conversion failed",
		},
		{
			name: "too large", field: "video", filename: "a.webm", ctype: "video/webm", maxUpload: 16,
			wantStatus: http.StatusRequestEntityTooLarge, wantError: "File too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.maxUpload > 0 {
				opts.MaxUploadBytes = tt.maxUpload
			}
			s := New(fakeConvert(tt.convertErr), opts, logger.NewNoop())
			body, ct := upload(t, tt.field, tt.filename, tt.ctype, []byte("0123456789abcdef0123456789"))

			req := httptest.NewRequest(http.MethodPost, "/api/convert-webm-to-mp4", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			msg := errorMessage(t, rec)
			if !strings.HasPrefix(msg["error"], tt.wantError) {
				t.Errorf("error = %q, want prefix %q", msg["error"], tt.wantError)
			}
			if tt.convertErr != nil && !strings.Contains(msg["details"], "moov atom not found") {
				t.Errorf("details = %q", msg["details"])
			}
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	s := New(fakeConvert(nil), DefaultOptions(), logger.NewNoop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/convert-webm-to-mp4", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestServer_CORSAllowList(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowOrigins = []string{"https://a.example", "https://b.example"}
	s := New(fakeConvert(nil), opts, logger.NewNoop())

	tests := []struct {
		origin string
		want   string
	}{
		{"https://a.example", "https://a.example"},
		{"https://b.example", "https://b.example"},
		{"https://evil.example", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/convert-webm-to-mp4", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: allow-origin = %q, want %q", tt.origin, got, tt.want)
		}
		if rec.Header().Get("Vary") != "Origin" {
			t.Errorf("origin %s: missing Vary header", tt.origin)
		}
	}
}

// TestServer_RemoteClientRoundTrip drives the server with the remote
// conversion client and the local convert stage over a mock engine.
func TestServer_RemoteClientRoundTrip(t *testing.T) {
	var fail atomic.Bool
	engine := &mocks.TranscodeEngine{
		ExecFunc: func(ctx context.Context, job *mocks.TranscodeJob, args []string) error {
			if fail.Load() {
				return errors.New("exit status 1")
			}
			return job.WriteFile(args[len(args)-1], []byte("output"))
		},
	}
	stage := transcode.NewConvertStage(&mocks.EngineProvider{Engine: engine}, transcode.DefaultOptions(), logger.NewNoop())
	srv := httptest.NewServer(New(stage, DefaultOptions(), logger.NewNoop()).Handler())
	defer srv.Close()

	client := remoteconvert.New(srv.URL, 10*time.Second, logger.NewNoop())
	out, err := client.Convert(context.Background(), pipeline.Artifact{Data: []byte("webm"), MimeType: pipeline.MimeWebM}, nil)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if out.MimeType != pipeline.MimeMP4 || string(out.Data) != "output" {
		t.Errorf("unexpected artifact: %s %q", out.MimeType, out.Data)
	}
	if len(engine.Jobs()) != 1 {
		t.Errorf("jobs = %d, want 1", len(engine.Jobs()))
	}

	fail.Store(true)
	_, err = client.Convert(context.Background(), pipeline.Artifact{Data: []byte("webm"), MimeType: pipeline.MimeWebM}, nil)
	var remoteErr *pipeline.RemoteServiceError
	if !errors.As(err, &remoteErr) || remoteErr.StatusCode != http.StatusInternalServerError || remoteErr.Message != "Conversion failed" {
		t.Errorf("err = %v, want RemoteServiceError 500 Conversion failed", err)
	}
}
