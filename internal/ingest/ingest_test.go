package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/keagan/viddup/internal/ffmpeg"
	"github.com/keagan/viddup/internal/store"
	"github.com/keagan/viddup/pkg/util"
	"github.com/rs/zerolog"
)

// stubFrames replays single-pixel frames whose value is the brightness.
type stubFrames struct {
	values   []byte
	finalErr error
	pos      int
}

func (s *stubFrames) Next() ([]byte, error) {
	if s.pos >= len(s.values) {
		return nil, s.finalErr
	}
	v := s.values[s.pos]
	s.pos++
	return []byte{v}, nil
}

func (s *stubFrames) Close() error { return nil }

// stubDecoder serves canned metadata and frames per path.
type stubDecoder struct {
	infos  map[string]*ffmpeg.VideoInfo
	frames map[string]func() Frames
	probed []string
}

func (d *stubDecoder) Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	d.probed = append(d.probed, path)
	info, ok := d.infos[path]
	if !ok {
		return nil, fmt.Errorf("unreadable file %s", path)
	}
	return info, nil
}

func (d *stubDecoder) Open(ctx context.Context, path string, info *ffmpeg.VideoInfo) (Frames, error) {
	return d.frames[path](), nil
}

// peakSignal builds a flat signal with spikes, sized so every spike has a
// full peak window on both sides.
func peakSignal(n int, peaks ...int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 10
	}
	for _, p := range peaks {
		b[p] = 200
	}
	return b
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunIngestsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "a.mp4")
	writeFile(t, dir, "notes.txt")

	// fps 5, spacing 1 s -> order 5; peaks at 10, 30, 60.
	dec := &stubDecoder{
		infos: map[string]*ffmpeg.VideoInfo{
			video: {Path: video, FPS: 5, Duration: 20, Width: 1, Height: 1},
		},
		frames: map[string]func() Frames{
			video: func() Frames { return &stubFrames{values: peakSignal(100, 10, 30, 60), finalErr: io.EOF} },
		},
	}

	st := store.OpenMemory(t)
	ctl := New(st, dec, util.NormalizeExts([]string{".mp4"}), 1, zerolog.Nop())

	n, err := ctl.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 file ingested, got %d", n)
	}

	ctx := context.Background()
	ok, err := st.IsIngested(ctx, video)
	if err != nil || !ok {
		t.Fatalf("IsIngested = %v, %v", ok, err)
	}

	rec, err := st.FileByPath(ctx, video)
	if err != nil || rec == nil {
		t.Fatalf("FileByPath = %+v, %v", rec, err)
	}
	prints, err := st.Fingerprints(ctx, rec.ID, 0, 1000)
	if err != nil {
		t.Fatalf("Fingerprints: %v", err)
	}
	if len(prints) != 3 {
		t.Fatalf("expected 3 fingerprints, got %d", len(prints))
	}
	// Gaps in seconds at 5 fps: 10/5, 20/5, 30/5.
	wantGaps := []float64{2, 4, 6}
	for i, p := range prints {
		if p.Value != wantGaps[i] {
			t.Errorf("fingerprint %d gap = %v, want %v", i, p.Value, wantGaps[i])
		}
	}
}

func TestRunSkipsIngestedFiles(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "a.mp4")

	dec := &stubDecoder{
		infos: map[string]*ffmpeg.VideoInfo{
			video: {Path: video, FPS: 5, Duration: 20, Width: 1, Height: 1},
		},
		frames: map[string]func() Frames{
			video: func() Frames { return &stubFrames{values: peakSignal(100, 10, 30, 60), finalErr: io.EOF} },
		},
	}

	st := store.OpenMemory(t)
	ctl := New(st, dec, util.NormalizeExts([]string{".mp4"}), 1, zerolog.Nop())

	if _, err := ctl.Run(context.Background(), dir); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	probes := len(dec.probed)

	n, err := ctl.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("re-ingest must be a no-op, got %d", n)
	}
	if len(dec.probed) != probes {
		t.Error("already-ingested file was probed again")
	}
}

func TestRunContinuesPastUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.mp4")
	good := writeFile(t, dir, "good.mp4")

	dec := &stubDecoder{
		infos: map[string]*ffmpeg.VideoInfo{
			// bad.mp4 missing: probe fails.
			good: {Path: good, FPS: 5, Duration: 20, Width: 1, Height: 1},
		},
		frames: map[string]func() Frames{
			good: func() Frames { return &stubFrames{values: peakSignal(100, 10, 30, 60), finalErr: io.EOF} },
		},
	}

	st := store.OpenMemory(t)
	ctl := New(st, dec, util.NormalizeExts([]string{".mp4"}), 1, zerolog.Nop())

	n, err := ctl.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 ingested despite bad file, got %d", n)
	}

	ok, _ := st.IsIngested(context.Background(), bad)
	if ok {
		t.Error("unreadable file must not be ingested")
	}
}

func TestRunTruncatedDecodeNeedsStructure(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "a.mp4")

	// One peak, then the decoder dies: below the 5-fingerprint floor.
	dec := &stubDecoder{
		infos: map[string]*ffmpeg.VideoInfo{
			video: {Path: video, FPS: 5, Duration: 20, Width: 1, Height: 1},
		},
		frames: map[string]func() Frames{
			video: func() Frames {
				return &stubFrames{values: peakSignal(100, 50), finalErr: fmt.Errorf("truncated frame from decoder")}
			},
		},
	}

	st := store.OpenMemory(t)
	ctl := New(st, dec, util.NormalizeExts([]string{".mp4"}), 1, zerolog.Nop())

	n, err := ctl.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("truncated decode with 1 fingerprint must be skipped, got %d", n)
	}
}

func TestRunCleanDecodeFewPeaksStillIngests(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "a.mp4")

	dec := &stubDecoder{
		infos: map[string]*ffmpeg.VideoInfo{
			video: {Path: video, FPS: 5, Duration: 20, Width: 1, Height: 1},
		},
		frames: map[string]func() Frames{
			video: func() Frames { return &stubFrames{values: peakSignal(100, 50), finalErr: io.EOF} },
		},
	}

	st := store.OpenMemory(t)
	ctl := New(st, dec, util.NormalizeExts([]string{".mp4"}), 1, zerolog.Nop())

	n, err := ctl.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("clean decode must ingest regardless of peak count, got %d", n)
	}
}

func TestRunCancellationAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := store.OpenMemory(t)
	ctl := New(st, &stubDecoder{}, util.NormalizeExts([]string{".mp4"}), 1, zerolog.Nop())

	if _, err := ctl.Run(ctx, dir); err == nil {
		t.Fatal("expected cancellation to abort the pass")
	}
}
