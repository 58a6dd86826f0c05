// Package remoteconvert delegates WebM to MP4 conversion to a conversion service.
package remoteconvert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/user/clipforge/pkg/adapters/mp4probe"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// ConvertPath is the conversion endpoint, relative to the service base URL.
const ConvertPath = "/api/convert-webm-to-mp4"

// Multipart field and file name of the upload.
const (
	FieldName  = "video"
	UploadName = "clip.webm"
)

// fallbackMessage is used when the service gives no error text.
const fallbackMessage = "Conversion failed"

// Client talks to a conversion service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  ports.Logger
}

// New creates a Client for the service at baseURL.
func New(baseURL string, timeout time.Duration, logger ports.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithComponent("remote"),
	}
}

// errorBody is the JSON error answer of the service.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Convert uploads artifact and returns the MP4 produced by the service.
func (c *Client) Convert(ctx context.Context, artifact pipeline.Artifact, progress pipeline.ProgressFunc) (pipeline.Artifact, error) {
	progress.Report(10, pipeline.StageUploading)

	body, contentType, err := encodeUpload(artifact)
	if err != nil {
		return pipeline.Artifact{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ConvertPath, body)
	if err != nil {
		return pipeline.Artifact{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	progress.Report(30, pipeline.StageConverting)
	c.logger.Debug("Uploading %.2f MB to %s", artifact.SizeMB(), req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Artifact{}, pipeline.ErrCancelled
		}
		return pipeline.Artifact{}, fmt.Errorf("post %s: %w", ConvertPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pipeline.Artifact{}, decodeError(resp)
	}

	progress.Report(80, pipeline.StageDownloading)
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipeline.Artifact{}, fmt.Errorf("read response: %w", err)
	}

	out := pipeline.Artifact{Data: data, MimeType: pipeline.MimeMP4, DurationMs: artifact.DurationMs}
	if err := mp4probe.Annotate(&out); err != nil {
		c.logger.Debug("Cannot probe converted MP4: %v", err)
	}
	progress.Report(100, pipeline.StageComplete)

	c.logger.Info("Remote conversion: %.2f MB -> %.2f MB", artifact.SizeMB(), out.SizeMB())
	return out, nil
}

// Execute adapts Convert to the conversion stage shape.
func (c *Client) Execute(ctx context.Context, input pipeline.ConvertInput) (pipeline.ConvertResult, error) {
	if err := pipeline.Checkpoint(ctx, input.Hooks.Cancel); err != nil {
		return pipeline.ConvertResult{}, err
	}
	started := time.Now()
	out, err := c.Convert(ctx, input.Artifact, pipeline.MonotonicProgress(input.Hooks.Progress))
	if err != nil {
		return pipeline.ConvertResult{}, err
	}
	return pipeline.ConvertResult{Artifact: out, Elapsed: time.Since(started)}, nil
}

func encodeUpload(artifact pipeline.Artifact) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldName, UploadName))
	h.Set("Content-Type", pipeline.MimeWebM)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(artifact.Data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// decodeError turns a non-2xx answer into a RemoteServiceError.
func decodeError(resp *http.Response) error {
	msg := fallbackMessage
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &pipeline.RemoteServiceError{StatusCode: resp.StatusCode, Message: msg}
}
