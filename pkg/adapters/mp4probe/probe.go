// Package mp4probe reads container metadata from MP4 artifacts.
package mp4probe

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/clipforge/pkg/pipeline"
)

// ErrNoVideoTrack is returned when the container has no video track.
var ErrNoVideoTrack = errors.New("mp4probe: no video track found")

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

// Info is the metadata of an MP4 file.
type Info struct {
	DurationMs int
	Width      int
	Height     int
	Codec      Codec
	HasAudio   bool
}

// AspectRatio returns width/height, or 0 when unknown.
func (i Info) AspectRatio() float64 {
	if i.Height == 0 {
		return 0
	}
	return float64(i.Width) / float64(i.Height)
}

// Probe decodes the MP4 boxes in data.
func Probe(data []byte) (Info, error) {
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode mp4: %w", err)
	}

	moov := f.Moov
	if moov == nil && f.Init != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		return Info{}, fmt.Errorf("decode mp4: missing moov box")
	}

	var info Info
	if moov.Mvhd != nil && moov.Mvhd.Timescale > 0 {
		info.DurationMs = int(moov.Mvhd.Duration * 1000 / uint64(moov.Mvhd.Timescale))
	}

	video := false
	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
			continue
		}
		switch trak.Mdia.Hdlr.HandlerType {
		case "vide":
			if video {
				continue
			}
			video = true
			if trak.Tkhd != nil {
				info.Width = int(trak.Tkhd.Width >> 16)
				info.Height = int(trak.Tkhd.Height >> 16)
			}
			info.Codec = codecOf(trak)
		case "soun":
			info.HasAudio = true
		}
	}
	if !video {
		return info, ErrNoVideoTrack
	}
	return info, nil
}

func codecOf(trak *mp4.TrakBox) Codec {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "hvc1", "hev1":
			return CodecHEVC
		case "av01":
			return CodecAV1
		}
	}
	return CodecUnknown
}

// Annotate fills the duration and dimensions of an MP4 artifact.
// Artifacts of other types are left unchanged.
func Annotate(a *pipeline.Artifact) error {
	if a.MimeType != pipeline.MimeMP4 {
		return nil
	}
	info, err := Probe(a.Data)
	if err != nil {
		return err
	}
	if info.DurationMs > 0 {
		a.DurationMs = info.DurationMs
	}
	a.Width = info.Width
	a.Height = info.Height
	return nil
}
