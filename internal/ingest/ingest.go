// Package ingest walks a directory tree and fingerprints every video file
// the store has not seen yet.
package ingest

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/keagan/viddup/internal/ffmpeg"
	"github.com/keagan/viddup/internal/fingerprint"
	"github.com/keagan/viddup/internal/logging"
	"github.com/keagan/viddup/internal/store"
	"github.com/rs/zerolog"
)

// Frames is a closeable frame stream.
type Frames interface {
	fingerprint.FrameSource
	Close() error
}

// Decoder probes files and opens frame streams. Satisfied by the ffmpeg
// executor through NewFFmpegDecoder; stubbed in tests.
type Decoder interface {
	Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	Open(ctx context.Context, path string, info *ffmpeg.VideoInfo) (Frames, error)
}

// Sink is the slice of the store the controller writes to.
type Sink interface {
	IsIngested(ctx context.Context, path string) (bool, error)
	IngestFile(ctx context.Context, path string, fps, duration float64, brightness []float64, prints []store.Fingerprint) (int64, error)
}

// truncatedMinFingerprints applies when the decoder gave up mid-file: a
// truncated prefix is only worth keeping with this much scene structure.
const truncatedMinFingerprints = 5

// Controller drives the ingest pass: walk, probe, summarize, extract,
// persist. One transaction per file; one file's failure never stops the
// pass.
type Controller struct {
	sink        Sink
	dec         Decoder
	logger      zerolog.Logger
	exts        map[string]bool
	peakSpacing float64
}

// New creates an ingest controller. exts holds lowercased dotted
// extensions; peakSpacing is the minimum scene-peak distance in seconds.
func New(sink Sink, dec Decoder, exts map[string]bool, peakSpacing float64, logger zerolog.Logger) *Controller {
	return &Controller{
		sink:        sink,
		dec:         dec,
		logger:      logging.WithComponent(logger, "ingest"),
		exts:        exts,
		peakSpacing: peakSpacing,
	}
}

// Run ingests every new file under root. Returns the number of files
// ingested. Cancellation aborts the pass; any other per-file failure is
// logged and skipped.
func (c *Controller) Run(ctx context.Context, root string) (int, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return 0, err
	}

	ingested := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("walk error")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !c.exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := c.ingestOne(ctx, path)
		if err != nil {
			return err
		}
		if ok {
			ingested++
		}
		return nil
	})
	return ingested, err
}

// ingestOne handles a single file. The returned error is non-nil only for
// cancellation; everything else is logged and swallowed so the walk
// continues.
func (c *Controller) ingestOne(ctx context.Context, path string) (bool, error) {
	known, err := c.sink.IsIngested(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		c.logger.Warn().Err(err).Str("file", path).Msg("ingest check failed")
		return false, nil
	}
	if known {
		c.logger.Debug().Str("file", path).Msg("already ingested")
		return false, nil
	}

	start := time.Now()

	info, err := c.dec.Probe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.logger.Warn().Err(err).Str("file", path).Msg("unreadable file, skipping")
		return false, nil
	}
	if info.FPS <= 0 {
		c.logger.Warn().Str("file", path).Msg("no frame rate, skipping")
		return false, nil
	}

	frames, err := c.dec.Open(ctx, path, info)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.logger.Warn().Err(err).Str("file", path).Msg("decoder failed to start, skipping")
		return false, nil
	}

	brightness, truncated, err := fingerprint.Summarize(ctx, frames, c.logger)
	frames.Close()
	if err != nil {
		return false, err
	}
	if len(brightness) == 0 {
		c.logger.Warn().Str("file", path).Msg("zero frames decoded, skipping")
		return false, nil
	}

	scenes := fingerprint.ExtractScenes(brightness, info.FPS, c.peakSpacing)
	if truncated && len(scenes) < truncatedMinFingerprints {
		c.logger.Warn().
			Str("file", path).
			Int("fingerprints", len(scenes)).
			Msg("truncated decode left too little structure, skipping")
		return false, nil
	}

	prints := make([]store.Fingerprint, len(scenes))
	for i, sc := range scenes {
		prints[i] = store.Fingerprint{Frame: sc.Frame, Value: sc.Gap}
	}

	if _, err := c.sink.IngestFile(ctx, path, info.FPS, info.Duration, brightness, prints); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.logger.Warn().Err(err).Str("file", path).Msg("insert failed, rolled back")
		return false, nil
	}

	c.logger.Info().
		Str("file", path).
		Int("frames", len(brightness)).
		Int("fingerprints", len(prints)).
		Dur("elapsed", time.Since(start)).
		Msg("ingested")
	return true, nil
}
