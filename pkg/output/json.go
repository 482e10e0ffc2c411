package output

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/awsmap/awsmap/pkg/dataset"
)

// jsonGenerator writes the full dataset plus run metadata as one document.
type jsonGenerator struct{}

func (jsonGenerator) Name() string { return "json" }

func (jsonGenerator) Generate(dir string, d *dataset.Dataset, meta Metadata) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	doc := struct {
		Metadata Metadata         `json:"metadata"`
		Dataset  *dataset.Dataset `json:"dataset"`
	}{Metadata: meta, Dataset: d}

	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshalling report")
	}

	path := filepath.Join(dir, "awsmap_report.json")
	if err := os.WriteFile(path, append(buf, '\n'), 0644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", path)
	}
	return []string{path}, nil
}
