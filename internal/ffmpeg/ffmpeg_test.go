package ffmpeg

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

// makeTestVideo renders a 2-second synthetic clip at 30 fps.
func makeTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg", "-f", "lavfi",
		"-i", "testsrc=duration=2:size=320x240:rate=30",
		"-pix_fmt", "yuv420p", "-y", path)
	if err := cmd.Run(); err != nil {
		t.Skipf("could not generate test video: %v", err)
	}
	return path
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	logger := zerolog.New(os.Stderr)
	exec, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	if exec.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if exec.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
}

func TestProbeVideo(t *testing.T) {
	skipIfNoFFmpeg(t)
	video := makeTestVideo(t)

	logger := zerolog.New(os.Stderr)
	exec, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	info, err := exec.ProbeVideo(context.Background(), video)
	if err != nil {
		t.Fatalf("ProbeVideo failed: %v", err)
	}

	if info.Width != 320 || info.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", info.Width, info.Height)
	}
	if info.FPS < 29.9 || info.FPS > 30.1 {
		t.Errorf("expected ~30 fps, got %v", info.FPS)
	}
	if info.Duration < 1.5 || info.Duration > 2.5 {
		t.Errorf("expected ~2 s duration, got %v", info.Duration)
	}
	t.Logf("probed: %dx%d @ %.2f fps, %.2f s", info.Width, info.Height, info.FPS, info.Duration)
}

func TestOpenFramesDecodesWholeStream(t *testing.T) {
	skipIfNoFFmpeg(t)
	video := makeTestVideo(t)

	logger := zerolog.New(os.Stderr)
	exec, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	ctx := context.Background()
	info, err := exec.ProbeVideo(ctx, video)
	if err != nil {
		t.Fatalf("ProbeVideo failed: %v", err)
	}

	stream, err := exec.OpenFrames(ctx, video, info.Width, info.Height)
	if err != nil {
		t.Fatalf("OpenFrames failed: %v", err)
	}
	defer stream.Close()

	frames := 0
	for {
		pix, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed at frame %d: %v", frames, err)
		}
		if len(pix) != info.Width*info.Height {
			t.Fatalf("frame %d has %d samples, want %d", frames, len(pix), info.Width*info.Height)
		}
		frames++
	}

	// 2 s at 30 fps.
	if frames < 58 || frames > 62 {
		t.Errorf("expected ~60 frames, got %d", frames)
	}
	t.Logf("decoded %d frames", frames)
}

func TestProbeVideoInvalidFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	logger := zerolog.New(os.Stderr)
	exec, err := New(logger, 2)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}

	ctx := context.Background()
	if _, err := exec.ProbeVideo(ctx, "nonexistent.mp4"); err == nil {
		t.Error("ProbeVideo should fail for non-existent file")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.txt")
	os.WriteFile(invalid, []byte("not a video"), 0644)
	if _, err := exec.ProbeVideo(ctx, invalid); err == nil {
		t.Error("ProbeVideo should fail for invalid video file")
	}
}
