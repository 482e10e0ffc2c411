// Package filters narrows a collected dataset by region and service
// patterns before report generation. Filtering always yields a snapshot
// that still satisfies the no-dangling-edge invariant.
package filters

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/awsmap/awsmap/pkg/dataset"
)

type Options struct {
	IncludeRegions  []string
	ExcludeRegions  []string
	IncludeServices []string
	ExcludeServices []string
	// MinServices drops regions offering fewer services than this,
	// evaluated after the service filters.
	MinServices int
}

func (o Options) empty() bool {
	return len(o.IncludeRegions) == 0 && len(o.ExcludeRegions) == 0 &&
		len(o.IncludeServices) == 0 && len(o.ExcludeServices) == 0 &&
		o.MinServices == 0
}

// Apply returns a filtered copy of the dataset. The input is never mutated.
func Apply(d *dataset.Dataset, opts Options) *dataset.Dataset {
	if opts.empty() {
		return d
	}

	keepService := make(map[string]bool, len(d.Services))
	for code, svc := range d.Services {
		keepService[code] = matchEither(code, svc.Name, opts.IncludeServices, opts.ExcludeServices)
	}
	keepRegion := make(map[string]bool, len(d.Regions))
	for code, region := range d.Regions {
		keepRegion[code] = matchEither(code, region.Name, opts.IncludeRegions, opts.ExcludeRegions)
	}

	if opts.MinServices > 0 {
		counts := make(map[string]int)
		for e := range d.Availability {
			if keepService[e.Service] {
				counts[e.Region]++
			}
		}
		for code := range keepRegion {
			if counts[code] < opts.MinServices {
				keepRegion[code] = false
			}
		}
	}

	out := dataset.New()
	for code, region := range d.Regions {
		if keepRegion[code] {
			out.Regions[code] = region
		}
	}
	for code, svc := range d.Services {
		if keepService[code] {
			out.Services[code] = svc
		}
	}
	for e := range d.Availability {
		if keepRegion[e.Region] && keepService[e.Service] {
			out.Availability.Add(e)
		}
	}

	zap.S().Infof("filters: %d/%d regions, %d/%d services retained",
		len(out.Regions), len(d.Regions), len(out.Services), len(d.Services))
	return out
}

// matchEither keeps an entry when it matches any include pattern (or no
// includes are given) and matches no exclude pattern. Patterns match the
// code or the display name, case-insensitively.
func matchEither(code, name string, includes, excludes []string) bool {
	if len(includes) > 0 && !matchAny(code, name, includes) {
		return false
	}
	return !matchAny(code, name, excludes)
}

func matchAny(code, name string, patterns []string) bool {
	code = strings.ToLower(code)
	name = strings.ToLower(name)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if ok, err := doublestar.Match(p, code); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
