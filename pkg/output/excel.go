package output

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/awsmap/awsmap/pkg/dataset"
)

// excelGenerator writes a three-sheet workbook: region summary, service
// summary, and the availability matrix.
type excelGenerator struct{}

func (excelGenerator) Name() string { return "excel" }

func (g excelGenerator) Generate(dir string, d *dataset.Dataset, meta Metadata) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	if err := g.regionsSheet(wb, d); err != nil {
		return nil, err
	}
	if err := g.servicesSheet(wb, d); err != nil {
		return nil, err
	}
	if err := g.matrixSheet(wb, d); err != nil {
		return nil, err
	}
	// the workbook starts with a default sheet that the named ones replace
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "removing default sheet")
	}

	path := filepath.Join(dir, "awsmap_report.xlsx")
	if err := wb.SaveAs(path); err != nil {
		return nil, errors.Wrapf(err, "writing %s", path)
	}
	return []string{path}, nil
}

func (excelGenerator) regionsSheet(wb *excelize.File, d *dataset.Dataset) error {
	const sheet = "Regions"
	if _, err := wb.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "creating sheet %s", sheet)
	}

	counts := d.RegionServiceCounts()
	rows := [][]interface{}{
		{"Region Code", "Region Name", "Partition", "Launch Date", "Launch Date Source", "Availability Zones", "Service Count"},
	}
	for _, code := range d.RegionCodes() {
		region := d.Regions[code]
		rows = append(rows, []interface{}{
			region.Code, region.Name, region.Partition,
			formatDate(region.LaunchDate), string(region.LaunchDateSource),
			region.AZCount, counts[code],
		})
	}
	return writeSheet(wb, sheet, rows)
}

func (excelGenerator) servicesSheet(wb *excelize.File, d *dataset.Dataset) error {
	const sheet = "Services"
	if _, err := wb.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "creating sheet %s", sheet)
	}

	counts := d.ServiceRegionCounts()
	rows := [][]interface{}{{"Service Code", "Service Name", "Region Count"}}
	for _, code := range d.ServiceCodes() {
		svc := d.Services[code]
		rows = append(rows, []interface{}{svc.Code, svc.Name, counts[code]})
	}
	return writeSheet(wb, sheet, rows)
}

func (excelGenerator) matrixSheet(wb *excelize.File, d *dataset.Dataset) error {
	const sheet = "Matrix"
	if _, err := wb.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "creating sheet %s", sheet)
	}

	regions := d.RegionCodes()
	header := make([]interface{}, 0, len(regions)+1)
	header = append(header, "Service")
	for _, region := range regions {
		header = append(header, region)
	}

	rows := [][]interface{}{header}
	for _, svc := range d.ServiceCodes() {
		row := make([]interface{}, 0, len(regions)+1)
		row = append(row, svc)
		for _, region := range regions {
			cell := ""
			if d.Availability.Contains(dataset.Edge{Region: region, Service: svc}) {
				cell = "Y"
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return writeSheet(wb, sheet, rows)
}

func writeSheet(wb *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrapf(err, "addressing row %d of %s", i+1, sheet)
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d of %s", i+1, sheet)
		}
	}
	return nil
}
