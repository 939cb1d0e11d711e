package fingerprint

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// Summarize consumes a frame stream and emits one mean-brightness value per
// frame. A plain arithmetic mean over all pixel samples keeps the value
// bit-exact across decoders given the same decoded pixels.
//
// A mid-stream decode failure truncates the sequence: the prefix collected so
// far is returned with truncated=true and a nil error. Only context
// cancellation aborts with an error.
func Summarize(ctx context.Context, src FrameSource, logger zerolog.Logger) (values []float64, truncated bool, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		pix, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return values, false, nil
			}
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			logger.Warn().Err(err).Int("frames", len(values)).Msg("decode stopped mid-stream, keeping prefix")
			return values, true, nil
		}

		values = append(values, meanBrightness(pix))
	}
}

func meanBrightness(pix []byte) float64 {
	if len(pix) == 0 {
		return 0
	}
	var sum uint64
	for _, p := range pix {
		sum += uint64(p)
	}
	return float64(sum) / float64(len(pix))
}
