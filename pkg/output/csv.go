package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/awsmap/awsmap/pkg/dataset"
)

// csvGenerator writes two files: a flat region/service row listing and a
// service-by-region availability matrix.
type csvGenerator struct{}

func (csvGenerator) Name() string { return "csv" }

func (g csvGenerator) Generate(dir string, d *dataset.Dataset, meta Metadata) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	rowsPath := filepath.Join(dir, "regions_services.csv")
	if err := writeCSV(rowsPath, g.rows(d)); err != nil {
		return nil, err
	}
	matrixPath := filepath.Join(dir, "services_regions_matrix.csv")
	if err := writeCSV(matrixPath, g.matrix(d)); err != nil {
		return nil, err
	}
	return []string{rowsPath, matrixPath}, nil
}

func (csvGenerator) rows(d *dataset.Dataset) [][]string {
	records := [][]string{{"region_code", "region_name", "partition", "service_code", "service_name"}}
	for _, e := range d.Availability.ToSlice() {
		region := d.Regions[e.Region]
		svc := d.Services[e.Service]
		records = append(records, []string{region.Code, region.Name, region.Partition, svc.Code, svc.Name})
	}
	return records
}

func (csvGenerator) matrix(d *dataset.Dataset) [][]string {
	regions := d.RegionCodes()

	header := append([]string{"service"}, regions...)
	records := [][]string{header}
	for _, svc := range d.ServiceCodes() {
		row := make([]string, 0, len(regions)+1)
		row = append(row, svc)
		for _, region := range regions {
			cell := ""
			if d.Availability.Contains(dataset.Edge{Region: region, Service: svc}) {
				cell = "Y"
			}
			row = append(row, cell)
		}
		records = append(records, row)
	}
	return records
}

// regionSummaryGenerator writes one row per region with its metadata and
// service count.
type regionSummaryGenerator struct{}

func (regionSummaryGenerator) Name() string { return "region-summary" }

func (regionSummaryGenerator) Generate(dir string, d *dataset.Dataset, meta Metadata) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	counts := d.RegionServiceCounts()
	records := [][]string{{"region_code", "region_name", "partition", "launch_date", "launch_date_source", "availability_zones", "service_count"}}
	for _, code := range d.RegionCodes() {
		region := d.Regions[code]
		records = append(records, []string{
			region.Code,
			region.Name,
			region.Partition,
			formatDate(region.LaunchDate),
			string(region.LaunchDateSource),
			strconv.Itoa(region.AZCount),
			strconv.Itoa(counts[code]),
		})
	}

	path := filepath.Join(dir, "region_summary.csv")
	if err := writeCSV(path, records); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// serviceSummaryGenerator writes one row per service with its region count.
type serviceSummaryGenerator struct{}

func (serviceSummaryGenerator) Name() string { return "service-summary" }

func (serviceSummaryGenerator) Generate(dir string, d *dataset.Dataset, meta Metadata) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	counts := d.ServiceRegionCounts()
	records := [][]string{{"service_code", "service_name", "region_count"}}
	for _, code := range d.ServiceCodes() {
		svc := d.Services[code]
		records = append(records, []string{svc.Code, svc.Name, strconv.Itoa(counts[code])})
	}

	path := filepath.Join(dir, "service_summary.csv")
	if err := writeCSV(path, records); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}
