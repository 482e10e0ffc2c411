// Package collector produces a complete availability snapshot, either from
// the cache or by a fresh bounded fan-out over the Parameter Store
// namespace. One run is one pass: there is no resumable partial state
// across invocations.
package collector

import (
	"context"
	"io"
	"time"

	"github.com/alitto/pond"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/awsmap/awsmap/pkg/cache"
	"github.com/awsmap/awsmap/pkg/dataset"
	"github.com/awsmap/awsmap/pkg/rss"
)

// Source is the upstream the collector fans out over. *ssm.Client
// implements it; tests substitute fakes.
type Source interface {
	ListRegions(ctx context.Context) ([]string, error)
	ListServices(ctx context.Context) ([]string, error)
	RegionDetail(ctx context.Context, regionCode string) (dataset.Region, error)
	RegionServices(ctx context.Context, regionCode string) ([]string, error)
	ServiceName(ctx context.Context, serviceCode string) string
}

// LaunchDateProvider supplies announcement-feed launch dates. *rss.Client
// implements it.
type LaunchDateProvider interface {
	LaunchDates() (map[string]rss.LaunchInfo, error)
}

type Options struct {
	// MaxWorkers bounds the number of in-flight fan-out units.
	MaxWorkers int
	// Cache enables read-through caching when non-nil.
	Cache *cache.Cache
	// RSS enables feed-sourced launch dates when non-nil.
	RSS LaunchDateProvider
	// ProgressWriter receives a progress bar during the fan-out; nil
	// disables progress output.
	ProgressWriter io.Writer
}

type Collector struct {
	source Source
	opts   Options
}

// RegionFailure records one region whose fetch unit exhausted its retries.
// The run continues without that region's availability data.
type RegionFailure struct {
	Region string
	Err    error
}

type Result struct {
	Dataset   *dataset.Dataset
	Failed    []RegionFailure
	FromCache bool
	Duration  time.Duration
}

func New(source Source, opts Options) *Collector {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	return &Collector{source: source, opts: opts}
}

// Collect returns the cached snapshot when it is present and inside its
// TTL, otherwise performs a fresh collection and writes through to the
// cache. Only an authentication failure or the loss of both base lists is
// fatal; per-region failures degrade that region's data and nothing else.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	start := time.Now()

	if c.opts.Cache != nil {
		if entry, ok := c.opts.Cache.Load(); ok && c.opts.Cache.Valid(entry) {
			zap.S().Debug("collector: using cached snapshot")
			return &Result{Dataset: entry.Payload, FromCache: true, Duration: time.Since(start)}, nil
		}
		zap.S().Debug("collector: cache miss, collecting fresh data")
	}

	ds, failed, err := c.collectFresh(ctx)
	if err != nil {
		return nil, err
	}

	if c.opts.Cache != nil {
		// best effort: a failed save only costs the next run a refetch
		if err := c.opts.Cache.Save(ds); err != nil {
			zap.S().Warnf("collector: could not save cache: %v", err)
		}
	}
	return &Result{Dataset: ds, Failed: failed, Duration: time.Since(start)}, nil
}

// regionResult is one fan-out unit's output. Each unit owns its slot;
// aggregation happens in a single pass after the pool drains, so no
// result state is ever shared between workers.
type regionResult struct {
	region   dataset.Region
	services []string
	err      error
}

func (c *Collector) collectFresh(ctx context.Context) (*dataset.Dataset, []RegionFailure, error) {
	// the base lists are prerequisites for the fan-out and their loss is
	// fatal: without them there is nothing to report on
	regionCodes, err := c.source.ListRegions(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching region list")
	}
	serviceCodes, err := c.source.ListServices(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching service list")
	}
	zap.S().Infof("collector: %d regions, %d services to collect", len(regionCodes), len(serviceCodes))

	launches := c.fetchLaunchDates()

	regionResults := make([]regionResult, len(regionCodes))
	serviceNames := make([]string, len(serviceCodes))

	bar := c.newProgress(len(regionCodes) + len(serviceCodes))
	pool := pond.New(c.opts.MaxWorkers, len(regionCodes)+len(serviceCodes), pond.Strategy(pond.Lazy()))

	for i, code := range regionCodes {
		i, code := i, code
		pool.Submit(func() {
			defer barAdd(bar)
			regionResults[i] = c.fetchRegion(ctx, code)
		})
	}
	for i, code := range serviceCodes {
		i, code := i, code
		pool.Submit(func() {
			defer barAdd(bar)
			serviceNames[i] = c.source.ServiceName(ctx, code)
		})
	}
	pool.StopAndWait()
	barFinish(bar)

	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "collection aborted")
	}

	ds, failed := merge(regionCodes, serviceCodes, serviceNames, regionResults, launches)
	for _, f := range failed {
		zap.S().Warnf("collector: region %s failed: %v", f.Region, f.Err)
	}
	return ds, failed, nil
}

// fetchRegion is one fan-out unit: region metadata plus the services
// available there. A unit converts its own failure into an error marker
// instead of propagating, so one bad region never cancels its siblings.
func (c *Collector) fetchRegion(ctx context.Context, code string) regionResult {
	res := regionResult{}
	res.region, res.err = c.source.RegionDetail(ctx, code)
	if res.err != nil {
		res.region = dataset.Region{}
		return res
	}
	res.services, res.err = c.source.RegionServices(ctx, code)
	return res
}

func (c *Collector) fetchLaunchDates() map[string]rss.LaunchInfo {
	if c.opts.RSS == nil {
		return nil
	}
	launches, err := c.opts.RSS.LaunchDates()
	if err != nil {
		// degrade to SSM-sourced dates
		zap.S().Warnf("collector: announcement feed unavailable: %v", err)
		return nil
	}
	zap.S().Infof("collector: launch dates for %d regions from announcement feed", len(launches))
	return launches
}

// merge is a pure, order-independent reduction of the fan-out results
// into one consistent snapshot.
func merge(
	regionCodes, serviceCodes, serviceNames []string,
	regionResults []regionResult,
	launches map[string]rss.LaunchInfo,
) (*dataset.Dataset, []RegionFailure) {
	ds := dataset.New()
	var failed []RegionFailure

	for i, code := range serviceCodes {
		name := serviceNames[i]
		if name == "" {
			name = code
		}
		ds.Services[code] = dataset.Service{Code: code, Name: name}
	}

	for i, code := range regionCodes {
		res := regionResults[i]
		if res.err != nil {
			failed = append(failed, RegionFailure{Region: code, Err: res.err})
			if res.region.Code == "" {
				continue
			}
		}

		region := res.region
		var rssDate *time.Time
		if launch, ok := launches[code]; ok {
			d := launch.Date
			rssDate = &d
			region.AnnouncementURL = launch.AnnouncementURL
		}
		date, source := dataset.ResolveLaunchDate(region.LaunchDate, rssDate)
		region.LaunchDate = date
		region.LaunchDateSource = source
		if source != dataset.SourceRSS {
			region.AnnouncementURL = ""
		}
		ds.Regions[region.Code] = region

		for _, svc := range res.services {
			// the namespace occasionally lists a service under a region
			// before publishing it in the service list; backfill it so the
			// snapshot stays internally consistent
			if _, ok := ds.Services[svc]; !ok {
				ds.Services[svc] = dataset.Service{Code: svc, Name: svc}
			}
			ds.Availability.Add(dataset.Edge{Region: region.Code, Service: svc})
		}
	}
	return ds, failed
}

func (c *Collector) newProgress(total int) *progressbar.ProgressBar {
	if c.opts.ProgressWriter == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.opts.ProgressWriter),
		progressbar.OptionSetDescription("collecting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func barAdd(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func barFinish(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
