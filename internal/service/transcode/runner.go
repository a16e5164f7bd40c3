package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

type ffmpegRunner struct {
	binPath string
}

func NewFFmpegRunner(binPath string) *ffmpegRunner {
	return &ffmpegRunner{binPath: binPath}
}

// Probe checks the binary is invocable. The engine calls it once and
// caches the result.
func (r *ffmpegRunner) Probe() error {
	if err := exec.Command(r.binPath, "-version").Run(); err != nil {
		return fmt.Errorf("transcoder binary %q is not invocable, install ffmpeg or point --ffmpeg-path at it: %w", r.binPath, err)
	}

	return nil
}

// Run converts the input into a segmented hls stream under outputDir
// and returns the tail of the engine's stderr.
func (r *ffmpegRunner) Run(ctx context.Context, inputUrl, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	args := []string{
		"-y",
		"-i", inputUrl,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ac", "2",
		"-f", "hls",
		"-hls_time", "4",
		"-hls_playlist_type", "event",
		"-hls_segment_filename", filepath.Join(outputDir, "segment_%05d.ts"),
		filepath.Join(outputDir, ManifestName),
	}

	cmd := exec.CommandContext(ctx, r.binPath, args...)
	tail := &tailBuffer{limit: maxFailureMessage}
	cmd.Stderr = tail

	err := cmd.Run()

	return tail.String(), err
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}

	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
