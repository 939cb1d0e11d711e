package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// FrameStream yields decoded video frames as raw 8-bit luminance planes.
// The returned buffer is reused between calls; consume it before the next Next.
type FrameStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    []byte
	waited bool
}

// OpenFrames starts decoding filePath into a stream of gray frames.
// Frame dimensions come from a prior ProbeVideo call.
func (e *Executor) OpenFrames(ctx context.Context, filePath string, width, height int) (*FrameStream, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	args := []string{"-v", "error", "-nostdin"}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	args = append(args,
		"-i", filePath,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("decoding frames")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &FrameStream{
		cmd:    cmd,
		stdout: stdout,
		buf:    make([]byte, width*height),
	}, nil
}

// Next returns the next frame's pixel samples. io.EOF signals a clean end
// of stream; any other error means the decoder gave up mid-file.
func (s *FrameStream) Next() ([]byte, error) {
	_, err := io.ReadFull(s.stdout, s.buf)
	if err == nil {
		return s.buf, nil
	}

	if err == io.EOF {
		// Decoder finished; a non-zero exit still counts as a truncated
		// stream so the partial prefix is kept.
		if werr := s.wait(); werr != nil {
			return nil, fmt.Errorf("decoder exited: %w", werr)
		}
		return nil, io.EOF
	}

	if err == io.ErrUnexpectedEOF {
		_ = s.wait()
		return nil, fmt.Errorf("truncated frame from decoder")
	}

	return nil, fmt.Errorf("failed to read frame: %w", err)
}

// Close terminates the decoder if it is still running.
func (s *FrameStream) Close() error {
	s.stdout.Close()
	return s.wait()
}

func (s *FrameStream) wait() error {
	if s.waited {
		return nil
	}
	s.waited = true
	return s.cmd.Wait()
}
