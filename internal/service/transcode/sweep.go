package transcode

import (
	"context"
	"os"
	"time"

	"golang.org/x/exp/maps"
)

// RunSweeper periodically reclaims jobs idle past the job ttl, deleting
// their output and registry entry. A later request restarts them as new.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.sweep()
		}
	}
}

func (e *Engine) sweep() {
	now := e.clock.Now().UnixMilli()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, key := range maps.Keys(e.jobs) {
		job := e.jobs[key]
		if job.Status == StatusPending {
			continue
		}
		if now-job.UpdatedAt < e.jobTTL.Milliseconds() {
			continue
		}

		if err := os.RemoveAll(job.OutputDir); err != nil {
			e.logger.Warn("failed to remove job output", "key", key, "error", err)
			continue
		}

		delete(e.jobs, key)
		e.logger.Info("swept idle transcode job", "key", key, "input_url", job.InputUrl)
	}
}
