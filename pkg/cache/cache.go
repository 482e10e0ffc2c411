// Package cache persists one full collection snapshot to disk with a TTL
// and an integrity marker. Every failure mode here degrades to a cache
// miss: a broken cache file must never block report generation, only force
// a slower fresh collection.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/awsmap/awsmap/pkg/dataset"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// entryVersion guards the on-disk schema. A version mismatch is treated
// the same as corruption: miss, refetch, overwrite.
const entryVersion = "1"

type (
	Cache struct {
		// Path of the cache file. Parent directories are created on save.
		Path string
		// TTLHours is the wall-clock validity window. Fractional hours are
		// allowed. The window is fixed at save time, not sliding: hits do
		// not extend it.
		TTLHours float64

		// now is swappable for tests.
		now func() time.Time
	}

	Entry struct {
		Version     string           `json:"version"`
		CollectedAt time.Time        `json:"collected_at"`
		TTLHours    float64          `json:"ttl_hours"`
		Checksum    string           `json:"checksum"`
		Payload     *dataset.Dataset `json:"payload"`
	}

	Stats struct {
		Exists      bool
		Corrupt     bool
		Valid       bool
		AgeHours    float64
		SizeBytes   int64
		CollectedAt time.Time
		Regions     int
		Services    int
		Edges       int
	}
)

func New(path string, ttlHours float64) *Cache {
	return &Cache{Path: path, TTLHours: ttlHours, now: time.Now}
}

func (c *Cache) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Load reads the persisted entry. Any read, parse, schema, or checksum
// problem is logged and reported as absent, never returned as an error.
func (c *Cache) Load() (*Entry, bool) {
	buf, err := os.ReadFile(c.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.S().Warnf("cache: unreadable file %s: %v", c.Path, err)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(buf, &entry); err != nil {
		zap.S().Warnf("cache: corrupt file %s: %v", c.Path, err)
		return nil, false
	}
	if err := c.verify(&entry); err != nil {
		zap.S().Warnf("cache: rejecting %s: %v", c.Path, err)
		return nil, false
	}
	return &entry, true
}

func (c *Cache) verify(entry *Entry) error {
	if entry.Version != entryVersion {
		return errors.Errorf("schema version %q, want %q", entry.Version, entryVersion)
	}
	if entry.Payload == nil {
		return errors.New("missing payload")
	}
	if entry.CollectedAt.IsZero() {
		return errors.New("missing collection timestamp")
	}
	sum, err := checksum(entry.Payload)
	if err != nil {
		return errors.Wrap(err, "computing checksum")
	}
	if sum != entry.Checksum {
		return errors.New("checksum mismatch")
	}
	if err := entry.Payload.Validate(); err != nil {
		return errors.Wrap(err, "inconsistent payload")
	}
	return nil
}

// Valid reports whether the loaded entry is still within its TTL window.
func (c *Cache) Valid(entry *Entry) bool {
	if entry == nil {
		return false
	}
	age := c.clock().Sub(entry.CollectedAt)
	ttl := time.Duration(entry.TTLHours * float64(time.Hour))
	return age <= ttl
}

// Save writes the payload with a fresh timestamp and checksum. The write
// goes to a temp file in the same directory and is renamed into place so a
// crash mid-write never leaves a half-written file at the final path.
func (c *Cache) Save(payload *dataset.Dataset) error {
	sum, err := checksum(payload)
	if err != nil {
		return errors.Wrap(err, "computing checksum")
	}
	entry := Entry{
		Version:     entryVersion,
		CollectedAt: c.clock(),
		TTLHours:    c.TTLHours,
		Checksum:    sum,
		Payload:     payload,
	}
	buf, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding cache entry")
	}

	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating cache directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.Path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp cache file")
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()          // nolint:errcheck
		os.Remove(tmp.Name()) // nolint:errcheck
		return errors.Wrap(err, "writing cache entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) // nolint:errcheck
		return errors.Wrap(err, "closing temp cache file")
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		os.Remove(tmp.Name()) // nolint:errcheck
		return errors.Wrap(err, "replacing cache file")
	}
	zap.S().Debugf("cache: saved %s (%d bytes)", c.Path, len(buf))
	return nil
}

// Clear deletes the cache file. Clearing an absent cache is not an error.
func (c *Cache) Clear() error {
	err := os.Remove(c.Path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing cache file %s", c.Path)
	}
	return nil
}

// GetStats reports on the cache without ever failing: absent and corrupt
// caches produce a Stats value saying so.
func (c *Cache) GetStats() Stats {
	info, err := os.Stat(c.Path)
	if err != nil {
		return Stats{}
	}
	stats := Stats{Exists: true, SizeBytes: info.Size()}

	entry, ok := c.Load()
	if !ok {
		stats.Corrupt = true
		return stats
	}
	stats.Valid = c.Valid(entry)
	stats.CollectedAt = entry.CollectedAt
	stats.AgeHours = c.clock().Sub(entry.CollectedAt).Hours()
	stats.Regions = len(entry.Payload.Regions)
	stats.Services = len(entry.Payload.Services)
	stats.Edges = entry.Payload.Availability.Len()
	return stats
}

// checksum hashes the canonical JSON encoding of the payload. Map keys are
// sorted by the encoder and the edge set marshals sorted, so the encoding
// is deterministic.
func checksum(payload *dataset.Dataset) (string, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}
