// Package ssm reads the public global-infrastructure namespace in AWS
// Systems Manager Parameter Store: region codes and metadata, service
// codes and names, and per-region service availability. All calls are
// read-only.
package ssm

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/awsmap/awsmap/pkg/dataset"
	"github.com/awsmap/awsmap/pkg/retry"
)

// Namespace is the fixed Parameter Store prefix for AWS global
// infrastructure metadata.
const Namespace = "/aws/service/global-infrastructure"

// pageSize is a hard limit of the public parameters API, not a tunable.
const pageSize = 10

const defaultCallTimeout = 30 * time.Second

// API is the Parameter Store surface the client depends on, narrowed for
// substitution in tests.
type API interface {
	GetParameter(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *awsssm.GetParametersByPathInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParametersByPathOutput, error)
}

type Client struct {
	api         API
	policy      retry.Policy
	callTimeout time.Duration
}

func NewClient(cfg aws.Config, policy retry.Policy) *Client {
	return NewClientWithAPI(awsssm.NewFromConfig(cfg), policy)
}

func NewClientWithAPI(api API, policy retry.Policy) *Client {
	return &Client{api: api, policy: policy, callTimeout: defaultCallTimeout}
}

// ListRegions returns every region code published in the namespace.
func (c *Client) ListRegions(ctx context.Context) ([]string, error) {
	values, err := c.listPath(ctx, Namespace+"/regions")
	if err != nil {
		return nil, errors.Wrap(err, "listing regions")
	}
	return values, nil
}

// ListServices returns every service code published in the namespace.
func (c *Client) ListServices(ctx context.Context) ([]string, error) {
	values, err := c.listPath(ctx, Namespace+"/services")
	if err != nil {
		return nil, errors.Wrap(err, "listing services")
	}
	return values, nil
}

// RegionServices returns the service codes available in the region.
func (c *Client) RegionServices(ctx context.Context, regionCode string) ([]string, error) {
	values, err := c.listPath(ctx, fmt.Sprintf("%s/regions/%s/services", Namespace, regionCode))
	if err != nil {
		return nil, errors.Wrapf(err, "listing services for region %s", regionCode)
	}
	return values, nil
}

// RegionDetail fetches region metadata. Individual attributes degrade to
// fallbacks when unavailable; the whole lookup fails only when the context
// dies, since a region with partial metadata is still worth reporting.
func (c *Client) RegionDetail(ctx context.Context, regionCode string) (dataset.Region, error) {
	region := dataset.Region{
		Code:             regionCode,
		Name:             regionCode,
		LaunchDateSource: dataset.SourceUnknown,
	}

	prefix := fmt.Sprintf("%s/regions/%s", Namespace, regionCode)

	if name, ok, err := c.getParameter(ctx, prefix+"/longName"); err != nil {
		if ctx.Err() != nil {
			return region, err
		}
		zap.S().Debugf("ssm: no display name for region %s: %v", regionCode, err)
	} else if ok {
		region.Name = name
	}

	if partition, ok, err := c.getParameter(ctx, prefix+"/partition"); err != nil {
		if ctx.Err() != nil {
			return region, err
		}
		zap.S().Debugf("ssm: no partition for region %s: %v", regionCode, err)
	} else if ok {
		region.Partition = partition
	}

	if raw, ok, err := c.getParameter(ctx, prefix+"/launchDate"); err != nil {
		if ctx.Err() != nil {
			return region, err
		}
		zap.S().Debugf("ssm: no launch date for region %s: %v", regionCode, err)
	} else if ok {
		if date, perr := time.Parse("2006-01-02", raw); perr == nil {
			region.LaunchDate = &date
			region.LaunchDateSource = dataset.SourceSSM
		} else {
			zap.S().Debugf("ssm: unparseable launch date %q for region %s", raw, regionCode)
		}
	}

	if azs, err := c.listPath(ctx, prefix+"/availability-zones"); err != nil {
		if ctx.Err() != nil {
			return region, err
		}
		zap.S().Debugf("ssm: no AZ list for region %s: %v", regionCode, err)
	} else {
		region.AZCount = len(azs)
	}

	return region, nil
}

// ServiceName returns the service display name, falling back to the code.
func (c *Client) ServiceName(ctx context.Context, serviceCode string) string {
	name, ok, err := c.getParameter(ctx, fmt.Sprintf("%s/services/%s/longName", Namespace, serviceCode))
	if err != nil || !ok {
		if err != nil {
			zap.S().Debugf("ssm: no display name for service %s: %v", serviceCode, err)
		}
		return serviceCode
	}
	return name
}

// listPath pages through every parameter directly under path, returning
// their values. Each page fetch carries its own timeout and retry budget.
func (c *Client) listPath(ctx context.Context, path string) ([]string, error) {
	var values []string
	var nextToken *string

	for {
		input := &awsssm.GetParametersByPathInput{
			Path:       aws.String(path),
			Recursive:  aws.Bool(false),
			MaxResults: aws.Int32(pageSize),
			NextToken:  nextToken,
		}

		var out *awsssm.GetParametersByPathOutput
		err := c.policy.Do(ctx, IsTransient, func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()
			var callErr error
			out, callErr = c.api.GetParametersByPath(callCtx, input)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, p := range out.Parameters {
			if p.Value != nil {
				values = append(values, *p.Value)
			}
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return values, nil
		}
		nextToken = out.NextToken
	}
}

// getParameter fetches one parameter value. A missing parameter is not an
// error: the namespace legitimately omits attributes for some entries.
func (c *Client) getParameter(ctx context.Context, name string) (string, bool, error) {
	var out *awsssm.GetParameterOutput
	err := c.policy.Do(ctx, IsTransient, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
		var callErr error
		out, callErr = c.api.GetParameter(callCtx, &awsssm.GetParameterInput{Name: aws.String(name)})
		return callErr
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", false, nil
	}
	return *out.Parameter.Value, true, nil
}
