package transcode

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	probeErr error
	runErr   error
	tail     string
	manifest bool

	runs    atomic.Int64
	release chan struct{}
}

func (r *fakeRunner) Probe() error { return r.probeErr }

func (r *fakeRunner) Run(_ context.Context, _ string, outputDir string) (string, error) {
	r.runs.Add(1)
	if r.release != nil {
		<-r.release
	}
	if r.manifest {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(outputDir, ManifestName), []byte("#EXTM3U\n"), 0o644); err != nil {
			return "", err
		}
	}
	return r.tail, r.runErr
}

func newTestEngine(t *testing.T, runner *fakeRunner) (*Engine, clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	engine := NewEngine(runner, clock, slog.Default(), &Config{
		OutputRoot:      t.TempDir(),
		FailureCooldown: 30 * time.Second,
		JobTTL:          2 * time.Hour,
	})

	return engine, clock
}

func waitForStatus(t *testing.T, e *Engine, key string, want Status) Job {
	t.Helper()

	var job Job
	require.Eventually(t, func() bool {
		got, ok := e.Get(key)
		if !ok {
			return false
		}
		job = got
		return got.Status == want
	}, 2*time.Second, 5*time.Millisecond)

	return job
}

func TestConcurrentCallersShareOneJob(t *testing.T) {
	runner := &fakeRunner{manifest: true, release: make(chan struct{})}
	e, _ := newTestEngine(t, runner)
	ctx := context.Background()

	const callers = 8
	jobs := make([]Job, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jobs[i] = e.GetOrStart(ctx, "https://x/movie.mkv")
		}(i)
	}
	wg.Wait()
	close(runner.release)

	key := Key("https://x/movie.mkv")
	for _, job := range jobs {
		assert.Equal(t, key, job.Key)
		assert.Equal(t, StatusPending, job.Status)
	}

	waitForStatus(t, e, key, StatusReady)
	assert.Equal(t, int64(1), runner.runs.Load(), "racing callers must not spawn a second run")

	// a later caller reuses the completed job
	job := e.GetOrStart(ctx, "https://x/movie.mkv")
	assert.Equal(t, StatusReady, job.Status)
	assert.Equal(t, int64(1), runner.runs.Load())
}

func TestFailureCooldownThenRetry(t *testing.T) {
	runner := &fakeRunner{runErr: errors.New("exit status 1"), tail: "Invalid data found"}
	e, clock := newTestEngine(t, runner)
	ctx := context.Background()

	key := Key("https://x/bad.mkv")
	first := e.GetOrStart(ctx, "https://x/bad.mkv")
	require.Equal(t, StatusPending, first.Status)

	job := waitForStatus(t, e, key, StatusFailed)
	assert.Contains(t, job.Message, "exit status 1")
	assert.Contains(t, job.Message, "Invalid data found")

	// within the cool-down the failure is returned as-is
	job = e.GetOrStart(ctx, "https://x/bad.mkv")
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, int64(1), runner.runs.Load())

	// past the cool-down the job is retried as new
	clock.Advance(31 * time.Second)
	job = e.GetOrStart(ctx, "https://x/bad.mkv")
	assert.Equal(t, StatusPending, job.Status)
	waitForStatus(t, e, key, StatusFailed)
	assert.Equal(t, int64(2), runner.runs.Load())
}

func TestManifestOnDiskCountsAsReady(t *testing.T) {
	runner := &fakeRunner{}
	e, _ := newTestEngine(t, runner)
	ctx := context.Background()

	key := Key("https://x/old.mkv")
	dir := filepath.Join(e.outputRoot, key)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("#EXTM3U\n"), 0o644))

	job := e.GetOrStart(ctx, "https://x/old.mkv")
	assert.Equal(t, StatusReady, job.Status)
	assert.Equal(t, dir, job.OutputDir)
	assert.Equal(t, int64(0), runner.runs.Load())
}

func TestProbeFailureFailsFast(t *testing.T) {
	runner := &fakeRunner{probeErr: errors.New("ffmpeg not found in PATH")}
	e, _ := newTestEngine(t, runner)
	ctx := context.Background()

	job := e.GetOrStart(ctx, "https://x/movie.mkv")
	assert.Equal(t, StatusFailed, job.Status)
	assert.Contains(t, job.Message, "ffmpeg not found")
	assert.Equal(t, int64(0), runner.runs.Load())
}

func TestMissingManifestIsFailure(t *testing.T) {
	runner := &fakeRunner{} // exits cleanly but writes nothing
	e, _ := newTestEngine(t, runner)
	ctx := context.Background()

	key := Key("https://x/empty.mkv")
	e.GetOrStart(ctx, "https://x/empty.mkv")

	job := waitForStatus(t, e, key, StatusFailed)
	assert.Contains(t, job.Message, "without producing a manifest")
}

func TestSweepReclaimsIdleJobs(t *testing.T) {
	runner := &fakeRunner{manifest: true}
	e, clock := newTestEngine(t, runner)
	ctx := context.Background()

	key := Key("https://x/movie.mkv")
	e.GetOrStart(ctx, "https://x/movie.mkv")
	job := waitForStatus(t, e, key, StatusReady)

	// fresh jobs survive a sweep
	e.sweep()
	_, ok := e.Get(key)
	require.True(t, ok)

	clock.Advance(3 * time.Hour)
	e.sweep()

	_, ok = e.Get(key)
	assert.False(t, ok)
	_, err := os.Stat(job.OutputDir)
	assert.True(t, os.IsNotExist(err))

	// a later request starts over
	fresh := e.GetOrStart(ctx, "https://x/movie.mkv")
	assert.Equal(t, StatusPending, fresh.Status)
	waitForStatus(t, e, key, StatusReady)
}

func TestKeyIsStableHexDigest(t *testing.T) {
	key := Key("https://x/movie.mkv")
	assert.Len(t, key, 40)
	assert.Equal(t, key, Key("https://x/movie.mkv"))
	assert.NotEqual(t, key, Key("https://x/other.mkv"))
}
