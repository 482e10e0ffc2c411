package ssm

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/awsmap/awsmap/pkg/retry"
)

// fakeAPI serves a parameter tree from memory. throttleRemaining injects
// that many Throttling failures before calls start succeeding.
type fakeAPI struct {
	mu sync.Mutex
	// params maps a full parameter name to its value
	params map[string]string
	// children maps a path to the child values listed under it
	children map[string][]string

	throttleRemaining int
	calls             int
}

func (f *fakeAPI) throttle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.throttleRemaining > 0 {
		f.throttleRemaining--
		return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	}
	return nil
}

func (f *fakeAPI) GetParameter(ctx context.Context, in *awsssm.GetParameterInput, _ ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error) {
	if err := f.throttle(); err != nil {
		return nil, err
	}
	val, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{}
	}
	return &awsssm.GetParameterOutput{
		Parameter: &types.Parameter{Name: in.Name, Value: aws.String(val)},
	}, nil
}

func (f *fakeAPI) GetParametersByPath(ctx context.Context, in *awsssm.GetParametersByPathInput, _ ...func(*awsssm.Options)) (*awsssm.GetParametersByPathOutput, error) {
	if err := f.throttle(); err != nil {
		return nil, err
	}
	values := f.children[aws.ToString(in.Path)]

	start := 0
	if tok := aws.ToString(in.NextToken); tok != "" {
		start, _ = strconv.Atoi(tok)
	}
	end := start + int(aws.ToInt32(in.MaxResults))
	if end > len(values) {
		end = len(values)
	}

	out := &awsssm.GetParametersByPathOutput{}
	for _, v := range values[start:end] {
		out.Parameters = append(out.Parameters, types.Parameter{Value: aws.String(v)})
	}
	if end < len(values) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func fastClient(api API) *Client {
	c := NewClientWithAPI(api, retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2})
	return c
}

func Test_ListRegionsPaginates(t *testing.T) {
	assert := assert.New(t)

	var regions []string
	for i := 0; i < 25; i++ {
		regions = append(regions, fmt.Sprintf("region-%02d", i))
	}
	api := &fakeAPI{children: map[string][]string{Namespace + "/regions": regions}}

	got, err := fastClient(api).ListRegions(context.Background())
	if !assert.NoError(err) {
		return
	}
	sort.Strings(got)
	assert.Equal(regions, got)
	// 25 values at the API's 10-per-page limit means 3 calls
	assert.Equal(3, api.calls)
}

func Test_ListRegionsRecoversFromThrottling(t *testing.T) {
	assert := assert.New(t)

	api := &fakeAPI{
		children:          map[string][]string{Namespace + "/regions": {"us-east-1"}},
		throttleRemaining: 2,
	}
	got, err := fastClient(api).ListRegions(context.Background())
	if assert.NoError(err) {
		assert.Equal([]string{"us-east-1"}, got)
	}
}

func Test_ListRegionsExhaustsRetries(t *testing.T) {
	assert := assert.New(t)

	api := &fakeAPI{
		children:          map[string][]string{Namespace + "/regions": {"us-east-1"}},
		throttleRemaining: 10,
	}
	_, err := fastClient(api).ListRegions(context.Background())
	assert.Error(err)
	assert.Equal(3, api.calls)
}

func Test_RegionDetail(t *testing.T) {
	assert := assert.New(t)

	prefix := Namespace + "/regions/us-east-1"
	api := &fakeAPI{
		params: map[string]string{
			prefix + "/longName":   "US East (N. Virginia)",
			prefix + "/partition":  "aws",
			prefix + "/launchDate": "2006-08-25",
		},
		children: map[string][]string{
			prefix + "/availability-zones": {"use1-az1", "use1-az2", "use1-az3"},
		},
	}

	region, err := fastClient(api).RegionDetail(context.Background(), "us-east-1")
	if !assert.NoError(err) {
		return
	}
	assert.Equal("us-east-1", region.Code)
	assert.Equal("US East (N. Virginia)", region.Name)
	assert.Equal("aws", region.Partition)
	assert.Equal(3, region.AZCount)
	if assert.NotNil(region.LaunchDate) {
		assert.Equal("2006-08-25", region.LaunchDate.Format("2006-01-02"))
	}
	assert.Equal("SSM", string(region.LaunchDateSource))
}

func Test_RegionDetailDegradesOnMissingAttributes(t *testing.T) {
	assert := assert.New(t)

	// nothing published for this region at all
	api := &fakeAPI{}
	region, err := fastClient(api).RegionDetail(context.Background(), "xx-test-1")
	if !assert.NoError(err) {
		return
	}
	assert.Equal("xx-test-1", region.Code)
	assert.Equal("xx-test-1", region.Name, "name falls back to the code")
	assert.Empty(region.Partition)
	assert.Zero(region.AZCount)
	assert.Nil(region.LaunchDate)
	assert.Equal("Unknown", string(region.LaunchDateSource))
}

func Test_ServiceNameFallsBack(t *testing.T) {
	assert := assert.New(t)

	api := &fakeAPI{params: map[string]string{
		Namespace + "/services/ec2/longName": "Amazon Elastic Compute Cloud (EC2)",
	}}
	c := fastClient(api)

	assert.Equal("Amazon Elastic Compute Cloud (EC2)", c.ServiceName(context.Background(), "ec2"))
	assert.Equal("nosuchsvc", c.ServiceName(context.Background(), "nosuchsvc"))
}

func Test_IsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "throttling", err: &smithy.GenericAPIError{Code: "Throttling"}, want: true},
		{name: "throttling exception", err: &smithy.GenericAPIError{Code: "ThrottlingException"}, want: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDeniedException"}, want: false},
		{name: "call timeout", err: fmt.Errorf("op: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "plain error", err: fmt.Errorf("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.want, IsTransient(tt.err))
		})
	}
}
