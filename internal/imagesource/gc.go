package imagesource

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/openfirewatch/firewatch/internal/data"
)

const gcCheckInterval = 2 * time.Minute

// GC reaps archive images older than MaxAge from disk and from the
// archive table. It must only run from the scheduler goroutine after
// the worker barrier, so no consumer still holds a path being deleted.
type GC struct {
	Archive data.ArchiveModel
	Dir     string
	MaxAge  time.Duration

	lastRun time.Time
}

func NewGC(archive data.ArchiveModel, dir string, maxAge time.Duration) *GC {
	if maxAge == 0 {
		maxAge = time.Hour
	}
	return &GC{Archive: archive, Dir: dir, MaxAge: maxAge}
}

// Run deletes stale files and rows. Rows referenced by live detections
// or alerts are skipped by the store query. Throttled to one pass per
// two minutes; passes more frequent than that return immediately.
func (g *GC) Run(ctx context.Context, now time.Time) {
	if now.Sub(g.lastRun) < gcCheckInterval {
		return
	}
	g.lastRun = now

	cutoff := now.Add(-g.MaxAge).Unix()
	paths, err := g.Archive.StalePaths(ctx, cutoff)
	if err != nil {
		log.Printf("[ArchiveGC] Error listing stale files: %v", err)
		return
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("[ArchiveGC] Error deleting %s: %v", p, err)
			continue
		}
		removed++
	}
	n, err := g.Archive.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[ArchiveGC] Error deleting rows: %v", err)
		return
	}
	if removed > 0 || n > 0 {
		log.Printf("[ArchiveGC] Removed %d files, %d rows", removed, n)
	}
}

// PurgeDir removes every remaining file in the archive directory. Used
// by the daily post-work task after detection has been idle long enough
// for the row-gated reaper to have caught up.
func PurgeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			log.Printf("[ArchiveGC] Error purging %s: %v", e.Name(), err)
		}
	}
	log.Printf("[ArchiveGC] Purged %d entries from %s", len(entries), dir)
	return nil
}
