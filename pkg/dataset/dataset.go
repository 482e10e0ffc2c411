package dataset

import (
	"fmt"
	"sort"
	"time"
)

// LaunchDateSource records which upstream supplied a region's launch date.
type LaunchDateSource string

const (
	SourceRSS     LaunchDateSource = "RSS"
	SourceSSM     LaunchDateSource = "SSM"
	SourceUnknown LaunchDateSource = "Unknown"
)

type (
	// Region is one AWS region as described by the global-infrastructure
	// namespace, identified by its code (eg "us-east-1").
	Region struct {
		Code             string           `json:"code"`
		Name             string           `json:"name"`
		Partition        string           `json:"partition,omitempty"`
		AZCount          int              `json:"az_count"`
		LaunchDate       *time.Time       `json:"launch_date,omitempty"`
		LaunchDateSource LaunchDateSource `json:"launch_date_source"`
		AnnouncementURL  string           `json:"announcement_url,omitempty"`
	}

	// Service is one AWS service, identified by its code (eg "ec2").
	Service struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}

	// Dataset is one complete collection snapshot. Snapshots are immutable
	// once built; a fresh collection produces a new Dataset rather than
	// mutating an old one.
	Dataset struct {
		Regions      map[string]Region  `json:"regions"`
		Services     map[string]Service `json:"services"`
		Availability EdgeSet            `json:"availability"`
	}
)

func New() *Dataset {
	return &Dataset{
		Regions:      make(map[string]Region),
		Services:     make(map[string]Service),
		Availability: make(EdgeSet),
	}
}

// Validate checks the snapshot invariant that every availability edge
// references a region and service present in the same snapshot.
func (d *Dataset) Validate() error {
	for e := range d.Availability {
		if _, ok := d.Regions[e.Region]; !ok {
			return fmt.Errorf("availability edge %s references unknown region %q", e, e.Region)
		}
		if _, ok := d.Services[e.Service]; !ok {
			return fmt.Errorf("availability edge %s references unknown service %q", e, e.Service)
		}
	}
	return nil
}

// RegionCodes returns the region codes in sorted order.
func (d *Dataset) RegionCodes() []string {
	codes := make([]string, 0, len(d.Regions))
	for c := range d.Regions {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// ServiceCodes returns the service codes in sorted order.
func (d *Dataset) ServiceCodes() []string {
	codes := make([]string, 0, len(d.Services))
	for c := range d.Services {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// ServicesInRegion returns the sorted service codes offered in the region.
func (d *Dataset) ServicesInRegion(regionCode string) []string {
	var codes []string
	for e := range d.Availability {
		if e.Region == regionCode {
			codes = append(codes, e.Service)
		}
	}
	sort.Strings(codes)
	return codes
}

// ServiceRegionCounts returns, per service code, the number of regions the
// service is offered in.
func (d *Dataset) ServiceRegionCounts() map[string]int {
	counts := make(map[string]int, len(d.Services))
	for e := range d.Availability {
		counts[e.Service]++
	}
	return counts
}

// RegionServiceCounts returns, per region code, the number of services
// offered there.
func (d *Dataset) RegionServiceCounts() map[string]int {
	counts := make(map[string]int, len(d.Regions))
	for e := range d.Availability {
		counts[e.Region]++
	}
	return counts
}

// ResolveLaunchDate merges the two launch date sources with RSS taking
// precedence over SSM. The reduction is pure and order independent: it only
// looks at presence, never at collection order.
func ResolveLaunchDate(ssmDate, rssDate *time.Time) (*time.Time, LaunchDateSource) {
	switch {
	case rssDate != nil && !rssDate.IsZero():
		return rssDate, SourceRSS
	case ssmDate != nil && !ssmDate.IsZero():
		return ssmDate, SourceSSM
	default:
		return nil, SourceUnknown
	}
}
