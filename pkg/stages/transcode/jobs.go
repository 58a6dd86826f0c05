package transcode

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/user/clipforge/pkg/pipeline"
)

// Virtual file names used by the jobs.
const (
	fileInputWebM = "input.webm"
	fileInputMP4  = "input.mp4"
	fileOverlay   = "overlay.png"
	fileOutput    = "output.mp4"
)

// Options holds encoder settings for the jobs.
type Options struct {
	RemuxPreset     string
	RemuxCRF        int
	RemuxAudio      string
	CompositePreset string
	CompositeCRF    int
	CompositeAudio  string
	ExtractPreset   string
	ExtractCRF      int
	ExtractAudio    string
	Width           int // Output frame width of the vertical jobs
	Height          int // Output frame height of the vertical jobs
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		RemuxPreset:     "veryfast",
		RemuxCRF:        23,
		RemuxAudio:      "128k",
		CompositePreset: "medium",
		CompositeCRF:    23,
		CompositeAudio:  "128k",
		ExtractPreset:   "medium",
		ExtractCRF:      18,
		ExtractAudio:    "192k",
		Width:           1080,
		Height:          1920,
	}
}

// Job is a declarative engine run: inputs written to the store, the
// argument list, and the output read back.
type Job struct {
	Name   string
	Inputs map[string][]byte
	Args   []string
	Output string
}

// InputNames returns the input names in a stable order.
func (j Job) InputNames() []string {
	names := make([]string, 0, len(j.Inputs))
	for name := range j.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remux converts a WebM recording to a streamable H.264/AAC MP4.
func Remux(webm []byte, opts Options) Job {
	return Job{
		Name:   "remux",
		Inputs: map[string][]byte{fileInputWebM: webm},
		Args: []string{
			"-i", fileInputWebM,
			"-c:v", "libx264",
			"-preset", opts.RemuxPreset,
			"-crf", strconv.Itoa(opts.RemuxCRF),
			"-c:a", "aac",
			"-b:a", opts.RemuxAudio,
			"-movflags", "+faststart",
			"-pix_fmt", "yuv420p",
			"-threads", "0",
			fileOutput,
		},
		Output: fileOutput,
	}
}

// OverlayComposite cuts the window out of source, scales it to the vertical
// frame and centres the overlay image on top.
func OverlayComposite(source, overlayPNG []byte, w pipeline.ClipWindow, opts Options) Job {
	filter := fmt.Sprintf("[0:v]scale=%d:%d[bg]; [bg][1:v]overlay=(W-w)/2:(H-h)/2[v]", opts.Width, opts.Height)
	return Job{
		Name:   "overlay-composite",
		Inputs: map[string][]byte{fileInputMP4: source, fileOverlay: overlayPNG},
		Args: []string{
			"-ss", seconds(w.Start),
			"-i", fileInputMP4,
			"-i", fileOverlay,
			"-t", seconds(w.Duration()),
			"-filter_complex", filter,
			"-map", "[v]",
			"-map", "0:a?",
			"-c:v", "libx264",
			"-preset", opts.CompositePreset,
			"-crf", strconv.Itoa(opts.CompositeCRF),
			"-c:a", "aac",
			"-b:a", opts.CompositeAudio,
			"-movflags", "+faststart",
			fileOutput,
		},
		Output: fileOutput,
	}
}

// VerticalExtract cuts the window out of source and crops it to the
// vertical frame without any overlay.
func VerticalExtract(source []byte, w pipeline.ClipWindow, opts Options) Job {
	filter := fmt.Sprintf(`scale=-1:%d,crop=min(iw\,%d):%d`, opts.Height, opts.Width, opts.Height)
	return Job{
		Name:   "vertical-extract",
		Inputs: map[string][]byte{fileInputMP4: source},
		Args: []string{
			"-ss", seconds(w.Start),
			"-i", fileInputMP4,
			"-t", seconds(w.Duration()),
			"-vf", filter,
			"-c:v", "libx264",
			"-preset", opts.ExtractPreset,
			"-crf", strconv.Itoa(opts.ExtractCRF),
			"-c:a", "aac",
			"-b:a", opts.ExtractAudio,
			"-movflags", "+faststart",
			fileOutput,
		},
		Output: fileOutput,
	}
}

// seconds formats a position with the shortest exact representation.
func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
