package ingest

import (
	"context"

	"github.com/keagan/viddup/internal/ffmpeg"
)

// ffmpegDecoder adapts the ffmpeg executor to the Decoder interface.
type ffmpegDecoder struct {
	exec *ffmpeg.Executor
}

// NewFFmpegDecoder wraps an ffmpeg executor as a Decoder.
func NewFFmpegDecoder(exec *ffmpeg.Executor) Decoder {
	return &ffmpegDecoder{exec: exec}
}

func (d *ffmpegDecoder) Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	return d.exec.ProbeVideo(ctx, path)
}

func (d *ffmpegDecoder) Open(ctx context.Context, path string, info *ffmpeg.VideoInfo) (Frames, error) {
	return d.exec.OpenFrames(ctx, path, info.Width, info.Height)
}
