// Package search builds fingerprint windows, runs them through an ANN
// index and reduces the neighborhoods to duplicate clusters.
package search

import (
	"context"
	"math"

	"github.com/keagan/viddup/internal/store"
	"github.com/rs/zerolog"
)

// Params configures the window assembly.
type Params struct {
	WindowLen int     // vector length handed to the ANN index
	SceneCap  float64 // max cumulative scene-gap seconds per window
	TrimStart float64 // seconds ignored at the head of every file
	TrimEnd   float64 // seconds ignored at the tail of every file
}

// Window is one fixed-length slice of a file's fingerprint values, tagged
// with where it came from.
type Window struct {
	FileID     int64
	FirstFrame int
	Vec        []float64
}

// Source is the slice of the store the assembler reads.
type Source interface {
	Files(ctx context.Context) ([]store.FileRecord, error)
	Fingerprints(ctx context.Context, fileID int64, minFrame, maxFrame int) ([]store.Fingerprint, error)
}

// minFingerprints is the floor below which a file carries too little scene
// structure to match against.
const minFingerprints = 5

// Assemble projects every file's fingerprints into ANN query windows.
// Files with fewer than five in-range fingerprints are excluded. The
// returned map carries the file records the reducer needs for offsets.
func Assemble(ctx context.Context, src Source, p Params, logger zerolog.Logger) ([]Window, map[int64]store.FileRecord, error) {
	files, err := src.Files(ctx)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[int64]store.FileRecord, len(files))
	var windows []Window

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if f.FPS <= 0 {
			logger.Warn().Str("file", f.Path).Msg("missing fps, skipping (run fix-metadata)")
			continue
		}

		minFrame := int(math.Floor(p.TrimStart * f.FPS))
		maxFrame := int(math.Floor((f.Duration - p.TrimEnd) * f.FPS))
		if maxFrame < minFrame {
			continue
		}

		prints, err := src.Fingerprints(ctx, f.ID, minFrame, maxFrame)
		if err != nil {
			return nil, nil, err
		}
		if len(prints) < minFingerprints {
			logger.Debug().Str("file", f.Path).Int("fingerprints", len(prints)).Msg("too few fingerprints, skipping")
			continue
		}

		byID[f.ID] = f
		for i := 0; i+p.WindowLen <= len(prints); i++ {
			vec := make([]float64, p.WindowLen)
			for j := 0; j < p.WindowLen; j++ {
				vec[j] = prints[i+j].Value
			}
			applySceneCap(vec, p.SceneCap)
			windows = append(windows, Window{
				FileID:     f.ID,
				FirstFrame: prints[i].Frame,
				Vec:        vec,
			})
		}
	}

	return windows, byID, nil
}

// applySceneCap zeroes every entry after the running sum of gaps passes the
// cap. The sum is tested before each entry is added, so the entry that
// first pushes the total over the cap is itself kept; only the entries
// after it are zeroed.
func applySceneCap(vec []float64, capSeconds float64) {
	total := 0.0
	for j := range vec {
		if total > capSeconds {
			vec[j] = 0
			continue
		}
		total += vec[j]
	}
}
