package output

import (
	"path/filepath"
	"strconv"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/awsmap/awsmap/pkg/dataset"
)

type xmlGenerator struct{}

func (xmlGenerator) Name() string { return "xml" }

func (xmlGenerator) Generate(dir string, d *dataset.Dataset, meta Metadata) ([]string, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("awsmap")
	root.CreateAttr("collected_at", meta.CollectedAt.Format("2006-01-02T15:04:05Z07:00"))
	root.CreateAttr("from_cache", strconv.FormatBool(meta.FromCache))

	regions := root.CreateElement("regions")
	for _, code := range d.RegionCodes() {
		region := d.Regions[code]
		el := regions.CreateElement("region")
		el.CreateAttr("code", region.Code)
		el.CreateAttr("name", region.Name)
		if region.Partition != "" {
			el.CreateAttr("partition", region.Partition)
		}
		el.CreateAttr("launch_date", formatDate(region.LaunchDate))
		el.CreateAttr("launch_date_source", string(region.LaunchDateSource))
		if region.AZCount > 0 {
			el.CreateAttr("availability_zones", strconv.Itoa(region.AZCount))
		}
		for _, svc := range d.ServicesInRegion(code) {
			el.CreateElement("service").CreateAttr("code", svc)
		}
	}

	services := root.CreateElement("services")
	counts := d.ServiceRegionCounts()
	for _, code := range d.ServiceCodes() {
		svc := d.Services[code]
		el := services.CreateElement("service")
		el.CreateAttr("code", svc.Code)
		el.CreateAttr("name", svc.Name)
		el.CreateAttr("region_count", strconv.Itoa(counts[code]))
	}

	doc.Indent(2)
	path := filepath.Join(dir, "awsmap_report.xml")
	if err := doc.WriteToFile(path); err != nil {
		return nil, errors.Wrapf(err, "writing %s", path)
	}
	return []string{path}, nil
}
