// Package output turns a collected dataset into report artifacts. Every
// generator is a pure mapping from dataset to files; none of them mutate
// the dataset or talk to the network.
package output

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/awsmap/awsmap/pkg/dataset"
)

// Metadata describes the collection run a report was generated from.
type Metadata struct {
	CollectedAt   time.Time `json:"collected_at"`
	FromCache     bool      `json:"from_cache"`
	Duration      string    `json:"duration"`
	FailedRegions []string  `json:"failed_regions,omitempty"`
}

// Generator writes one report format into dir and returns the paths of
// the files it produced.
type Generator interface {
	Name() string
	Generate(dir string, d *dataset.Dataset, meta Metadata) ([]string, error)
}

// registry is fixed at compile time. Formats are code, not plugins.
var registry = map[string]Generator{
	"csv":             csvGenerator{},
	"json":            jsonGenerator{},
	"excel":           excelGenerator{},
	"xml":             xmlGenerator{},
	"region-summary":  regionSummaryGenerator{},
	"service-summary": serviceSummaryGenerator{},
}

// Formats returns every registered format name, sorted.
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Get(name string) (Generator, error) {
	gen, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown output format %q (available: %v)", name, Formats())
	}
	return gen, nil
}

func ensureDir(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, 0755), "creating output directory %s", dir)
}

// formatDate renders a launch date for reports; absent dates render as
// "Unknown" rather than an empty cell.
func formatDate(t *time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return t.Format("2006-01-02")
}
