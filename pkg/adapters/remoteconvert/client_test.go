package remoteconvert

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/pipeline"
)

func TestClient_Convert(t *testing.T) {
	var gotName, gotType string
	var gotData []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ConvertPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile(FieldName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotData, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4-bytes"))
	}))
	defer srv.Close()

	var stages []pipeline.StageName
	var values []int
	progress := func(p int, s pipeline.StageName) {
		values = append(values, p)
		stages = append(stages, s)
	}

	c := New(srv.URL+"/", 0, logger.NewNoop())
	out, err := c.Convert(context.Background(), pipeline.Artifact{Data: []byte("webm-bytes"), MimeType: pipeline.MimeWebM}, progress)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if string(out.Data) != "mp4-bytes" || out.MimeType != pipeline.MimeMP4 {
		t.Errorf("unexpected artifact %q %s", out.Data, out.MimeType)
	}
	if gotName != "clip.webm" || gotType != "video/webm" || string(gotData) != "webm-bytes" {
		t.Errorf("unexpected upload %s %s %q", gotName, gotType, gotData)
	}

	want := []int{10, 30, 80, 100}
	wantStages := []pipeline.StageName{pipeline.StageUploading, pipeline.StageConverting, pipeline.StageDownloading, pipeline.StageComplete}
	if len(values) != len(want) {
		t.Fatalf("unexpected progress %v", values)
	}
	for i := range want {
		if values[i] != want[i] || stages[i] != wantStages[i] {
			t.Errorf("report %d = %d %s, want %d %s", i, values[i], stages[i], want[i], wantStages[i])
		}
	}
}

func TestClient_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"too large", http.StatusRequestEntityTooLarge, `{"error":"too large"}`, "too large"},
		{"server error", http.StatusInternalServerError, `{"error":"too large"}`, "too large"},
		{"details only", http.StatusInternalServerError, `{"details":"ffmpeg exited"}`, "Conversion failed"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Conversion failed"},
		{"empty", http.StatusInternalServerError, ``, "Conversion failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, 0, logger.NewNoop())
			_, err := c.Convert(context.Background(), pipeline.Artifact{Data: []byte("x"), MimeType: pipeline.MimeWebM}, nil)

			var remoteErr *pipeline.RemoteServiceError
			if !errors.As(err, &remoteErr) {
				t.Fatalf("expected RemoteServiceError, got %v", err)
			}
			if remoteErr.Message != tt.wantMsg || err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", remoteErr.Message, tt.wantMsg)
			}
			if remoteErr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", remoteErr.StatusCode, tt.status)
			}
		})
	}
}

func TestClient_ExecuteCancelled(t *testing.T) {
	c := New("http://127.0.0.1:0", 0, logger.NewNoop())
	_, err := c.Execute(context.Background(), pipeline.ConvertInput{
		Artifact: pipeline.Artifact{Data: []byte("x")},
		Hooks:    pipeline.Hooks{Cancel: func() bool { return true }},
	})
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
