package query

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"codedup/internal/models"
)

// DupCache holds fingerprint → member count, loaded from the duplicate-group
// listing on disk and keyed by that file's modification time. Reloads build
// a fresh map and swap it in under the lock, so concurrent readers never see
// a half-populated generation.
type DupCache struct {
	path string

	mu      sync.RWMutex
	modTime time.Time
	counts  map[string]int
}

func NewDupCache(path string) *DupCache {
	return &DupCache{path: path}
}

// Counts returns the current fingerprint → count map. The returned map must
// be treated as read-only; it is shared between callers of one generation.
func (c *DupCache) Counts() map[string]int {
	info, err := os.Stat(c.path)
	if err != nil {
		return map[string]int{}
	}
	mtime := info.ModTime()

	c.mu.RLock()
	if c.counts != nil && c.modTime.Equal(mtime) {
		counts := c.counts
		c.mu.RUnlock()
		return counts
	}
	c.mu.RUnlock()

	counts := make(map[string]int)
	forEachGroup(c.path, func(g *models.DuplicateGroup) bool {
		if g.Fingerprint != "" {
			counts[g.Fingerprint] = g.Count
		}
		return true
	})

	c.mu.Lock()
	c.modTime = mtime
	c.counts = counts
	c.mu.Unlock()
	return counts
}

// forEachGroup streams the duplicate-group JSONL file, skipping blank and
// malformed lines. Missing file means no groups.
func forEachGroup(path string, fn func(*models.DuplicateGroup) bool) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var g models.DuplicateGroup
		if err := json.Unmarshal(line, &g); err != nil {
			continue
		}
		if !fn(&g) {
			return
		}
	}
}
