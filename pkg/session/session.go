// Package session builds the authenticated AWS API configuration from
// profile, region, and environment credentials.
package session

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/pkg/errors"
)

// ErrNoCredentials marks the one failure that aborts a run outright: no
// provider in the default chain produced usable credentials.
var ErrNoCredentials = errors.New("no usable AWS credentials found")

// Load resolves the AWS configuration and probes the credential chain so
// that a credential problem surfaces before any work is scheduled.
func Load(ctx context.Context, profile, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "loading AWS configuration")
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return aws.Config{}, errors.Wrapf(ErrNoCredentials, "%v", err)
	}
	return cfg, nil
}
