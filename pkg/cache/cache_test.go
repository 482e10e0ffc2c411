package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/awsmap/awsmap/pkg/dataset"
	"github.com/stretchr/testify/assert"
)

func testPayload() *dataset.Dataset {
	d := dataset.New()
	d.Regions["r1"] = dataset.Region{Code: "r1", Name: "Region One", Partition: "aws", AZCount: 3, LaunchDateSource: dataset.SourceUnknown}
	d.Regions["r2"] = dataset.Region{Code: "r2", Name: "Region Two", Partition: "aws", AZCount: 2, LaunchDateSource: dataset.SourceUnknown}
	d.Services["svcA"] = dataset.Service{Code: "svcA", Name: "Service A"}
	d.Services["svcB"] = dataset.Service{Code: "svcB", Name: "Service B"}
	d.Availability.Add(
		dataset.Edge{Region: "r1", Service: "svcA"},
		dataset.Edge{Region: "r2", Service: "svcA"},
		dataset.Edge{Region: "r2", Service: "svcB"},
	)
	return d
}

func newTestCache(t *testing.T, ttlHours float64) *Cache {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "cache", "data.json"), ttlHours)
}

func Test_SaveLoadRoundTrip(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, 24)
	payload := testPayload()
	if !assert.NoError(c.Save(payload)) {
		return
	}

	entry, ok := c.Load()
	if !assert.True(ok) {
		return
	}
	assert.Equal(payload, entry.Payload)
	assert.True(c.Valid(entry))
}

func Test_EmptyPayloadRoundTrip(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, 1)
	if !assert.NoError(c.Save(dataset.New())) {
		return
	}
	entry, ok := c.Load()
	if assert.True(ok) {
		assert.Equal(0, entry.Payload.Availability.Len())
		assert.Empty(entry.Payload.Regions)
	}
}

func Test_LoadAbsent(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, 24)
	_, ok := c.Load()
	assert.False(ok)
}

func Test_TTLExpiry(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, 1)
	now := time.Now()
	c.now = func() time.Time { return now }
	if !assert.NoError(c.Save(testPayload())) {
		return
	}

	entry, ok := c.Load()
	if !assert.True(ok) {
		return
	}
	// within the window, including fractional hours
	c.now = func() time.Time { return now.Add(30 * time.Minute) }
	assert.True(c.Valid(entry))

	// repeated hits do not slide the window
	c.now = func() time.Time { return now.Add(61 * time.Minute) }
	assert.False(c.Valid(entry))
}

func Test_CorruptionDetected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(buf []byte) []byte
	}{
		{
			name:   "truncated file",
			mutate: func(buf []byte) []byte { return buf[:len(buf)/2] },
		},
		{
			name:   "not json",
			mutate: func(buf []byte) []byte { return []byte("not a cache") },
		},
		{
			name: "payload byte flipped",
			mutate: func(buf []byte) []byte {
				out := append([]byte(nil), buf...)
				// flip a byte inside the payload section, past the header fields
				for i := len(out) - 2; i > 0; i-- {
					if out[i] == '1' {
						out[i] = '7'
						break
					}
				}
				return out
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			c := newTestCache(t, 24)
			if !assert.NoError(c.Save(testPayload())) {
				return
			}
			buf, err := os.ReadFile(c.Path)
			if !assert.NoError(err) {
				return
			}
			if !assert.NoError(os.WriteFile(c.Path, tt.mutate(buf), 0644)) {
				return
			}

			_, ok := c.Load()
			assert.False(ok, "corrupted cache must load as absent")

			stats := c.GetStats()
			assert.True(stats.Exists)
			assert.True(stats.Corrupt)
			assert.False(stats.Valid)
		})
	}
}

func Test_SchemaVersionMismatch(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, 24)
	if !assert.NoError(c.Save(testPayload())) {
		return
	}
	buf, err := os.ReadFile(c.Path)
	if !assert.NoError(err) {
		return
	}
	mutated := strings.Replace(string(buf), `"version": "1"`, `"version": "0"`, 1)
	if !assert.NoError(os.WriteFile(c.Path, []byte(mutated), 0644)) {
		return
	}
	_, ok := c.Load()
	assert.False(ok)
}

func Test_ClearIdempotent(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, 24)
	if !assert.NoError(c.Save(testPayload())) {
		return
	}
	assert.NoError(c.Clear())
	// clearing again is a no-op
	assert.NoError(c.Clear())

	stats := c.GetStats()
	assert.False(stats.Exists)
}

func Test_StatsOnValidCache(t *testing.T) {
	assert := assert.New(t)

	c := newTestCache(t, 24)
	now := time.Now()
	c.now = func() time.Time { return now }
	if !assert.NoError(c.Save(testPayload())) {
		return
	}

	c.now = func() time.Time { return now.Add(2 * time.Hour) }
	stats := c.GetStats()
	assert.True(stats.Exists)
	assert.True(stats.Valid)
	assert.False(stats.Corrupt)
	assert.InDelta(2.0, stats.AgeHours, 0.01)
	assert.Equal(2, stats.Regions)
	assert.Equal(2, stats.Services)
	assert.Equal(3, stats.Edges)
	assert.Greater(stats.SizeBytes, int64(0))
}
