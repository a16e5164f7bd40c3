package transcode

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

const ManifestName = "index.m3u8"

// Job is a snapshot of one transcode job keyed by a content hash of its
// exact input url.
type Job struct {
	Key       string `json:"key"`
	InputUrl  string `json:"input_url"`
	Status    Status `json:"status"`
	Message   string `json:"message"`
	OutputDir string `json:"output_dir"`
	UpdatedAt int64  `json:"updated_at"`
}

type iRunner interface {
	Probe() error
	Run(ctx context.Context, inputUrl, outputDir string) (string, error)
}

type Config struct {
	OutputRoot      string
	FailureCooldown time.Duration
	JobTTL          time.Duration
}

type Engine struct {
	runner iRunner
	clock  clockwork.Clock
	logger *slog.Logger

	outputRoot      string
	failureCooldown time.Duration
	jobTTL          time.Duration

	mu   sync.Mutex
	jobs map[string]*Job

	probeOnce sync.Once
	probeErr  error
}

func NewEngine(runner iRunner, clock clockwork.Clock, logger *slog.Logger, cfg *Config) *Engine {
	failureCooldown := cfg.FailureCooldown
	if failureCooldown == 0 {
		failureCooldown = 30 * time.Second
	}
	jobTTL := cfg.JobTTL
	if jobTTL == 0 {
		jobTTL = 2 * time.Hour
	}

	return &Engine{
		runner:          runner,
		clock:           clock,
		logger:          logger,
		outputRoot:      cfg.OutputRoot,
		failureCooldown: failureCooldown,
		jobTTL:          jobTTL,
		jobs:            make(map[string]*Job),
	}
}

// Key returns the stable content key for an input url.
func Key(inputUrl string) string {
	sum := sha1.Sum([]byte(inputUrl))
	return hex.EncodeToString(sum[:])
}

func (e *Engine) jobDir(key string) string {
	return filepath.Join(e.outputRoot, key)
}

func (e *Engine) manifestPath(key string) string {
	return filepath.Join(e.jobDir(key), ManifestName)
}

// GetOrStart returns the job for the input url, starting it if needed.
// Concurrent callers for the same url share one job: the pending entry
// is recorded before the engine process is spawned, so a racing caller
// observes pending instead of triggering a second spawn.
func (e *Engine) GetOrStart(ctx context.Context, inputUrl string) Job {
	key := Key(inputUrl)
	now := e.clock.Now().UnixMilli()

	e.mu.Lock()
	defer e.mu.Unlock()

	if job, ok := e.jobs[key]; ok {
		switch job.Status {
		case StatusReady, StatusPending:
			return *job
		case StatusFailed:
			if now-job.UpdatedAt < e.failureCooldown.Milliseconds() {
				return *job
			}
			// cool-down elapsed, retry as new below
		}
	}

	// Output surviving a restart counts as ready without re-invoking
	// the engine.
	if _, err := os.Stat(e.manifestPath(key)); err == nil {
		job := &Job{
			Key:       key,
			InputUrl:  inputUrl,
			Status:    StatusReady,
			OutputDir: e.jobDir(key),
			UpdatedAt: now,
		}
		e.jobs[key] = job
		return *job
	}

	if err := e.probe(); err != nil {
		job := &Job{
			Key:       key,
			InputUrl:  inputUrl,
			Status:    StatusFailed,
			Message:   err.Error(),
			OutputDir: e.jobDir(key),
			UpdatedAt: now,
		}
		e.jobs[key] = job
		return *job
	}

	job := &Job{
		Key:       key,
		InputUrl:  inputUrl,
		Status:    StatusPending,
		Message:   "transcoding started",
		OutputDir: e.jobDir(key),
		UpdatedAt: now,
	}
	e.jobs[key] = job

	go e.run(key, inputUrl, job.OutputDir)

	return *job
}

// Get returns the job for a key without starting anything.
func (e *Engine) Get(key string) (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.jobs[key]
	if !ok {
		return Job{}, false
	}

	return *job, true
}

func (e *Engine) probe() error {
	e.probeOnce.Do(func() {
		e.probeErr = e.runner.Probe()
	})

	return e.probeErr
}

func (e *Engine) run(key, inputUrl, outputDir string) {
	tail, err := e.runner.Run(context.Background(), inputUrl, outputDir)

	_, statErr := os.Stat(e.manifestPath(key))
	ready := err == nil && statErr == nil

	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.jobs[key]
	if !ok {
		// swept while running
		return
	}

	job.UpdatedAt = e.clock.Now().UnixMilli()
	if ready {
		job.Status = StatusReady
		job.Message = ""
		e.logger.Info("transcode ready", "key", key, "input_url", inputUrl)
		return
	}

	job.Status = StatusFailed
	job.Message = failureMessage(err, statErr, tail)
	e.logger.Warn("transcode failed", "key", key, "input_url", inputUrl, "message", job.Message)
}

const maxFailureMessage = 1000

func failureMessage(runErr, statErr error, tail string) string {
	var msg string
	switch {
	case runErr != nil:
		msg = fmt.Sprintf("transcoder exited with error: %v", runErr)
	case statErr != nil:
		msg = "transcoder exited without producing a manifest"
	}

	if tail != "" {
		msg = msg + ": " + tail
	}
	if len(msg) > maxFailureMessage {
		msg = msg[len(msg)-maxFailureMessage:]
	}

	return msg
}
