package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/clipforge/pkg/adapters/remoteconvert"
	"github.com/user/clipforge/pkg/metrics"
	"github.com/user/clipforge/pkg/pipeline"
)

// handleConvert converts an uploaded WebM recording to MP4 and streams it back.
func (s *Server) handleConvert(c *gin.Context) {
	if s.opts.MaxUploadBytes > 0 {
		if c.Request.ContentLength > s.opts.MaxUploadBytes {
			s.tooLarge(c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	file, err := c.FormFile(remoteconvert.FieldName)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.tooLarge(c)
			return
		}
		s.logger.Warn("Failed to read upload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file provided"})
		return
	}

	if file.Header.Get("Content-Type") != pipeline.MimeWebM && !strings.HasSuffix(file.Filename, ".webm") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only WebM files are supported"})
		return
	}

	data, err := readFormFile(file)
	if err != nil {
		s.logger.Error("Failed to read upload %s: %v", file.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	s.logger.Info("Received WebM file: %s (%.2f MB)", file.Filename, float64(len(data))/1024/1024)

	started := time.Now()
	res, err := s.convert.Execute(c.Request.Context(), pipeline.ConvertInput{
		Artifact: pipeline.Artifact{Data: data, MimeType: pipeline.MimeWebM},
	})
	metrics.ObserveConversion("server", started, err)
	if err != nil {
		s.logger.Error("Conversion failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Conversion failed", "details": err.Error()})
		return
	}

	name := strings.TrimSuffix(file.Filename, ".webm") + ".mp4"
	s.logger.Info("Conversion complete in %s: %.2f MB", time.Since(started).Round(time.Millisecond), res.Artifact.SizeMB())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, pipeline.MimeMP4, res.Artifact.Data)
}

func (s *Server) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("File too large (limit %d MB)", s.opts.MaxUploadBytes>>20),
	})
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
