package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.GetMetricDataInput
	pages  []*cloudwatch.GetMetricDataOutput
	calls  int
}

func (f *fakeCloudWatch) GetMetricData(ctx context.Context, in *cloudwatch.GetMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.calls >= len(f.pages) {
		return &cloudwatch.GetMetricDataOutput{}, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func result(id string, values ...float64) cwtypes.MetricDataResult {
	ts := make([]time.Time, len(values))
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := range values {
		ts[i] = base.Add(time.Duration(i) * 5 * time.Minute)
	}
	return cwtypes.MetricDataResult{Id: aws.String(id), Timestamps: ts, Values: values}
}

func TestGetMetricsBuildsQueries(t *testing.T) {
	cw := &fakeCloudWatch{pages: []*cloudwatch.GetMetricDataOutput{{}}}
	_, err := getMetricsTool(Deps{CloudWatch: cw}).Execute(context.Background(), map[string]any{
		"function_name": "orders-fn",
	})
	require.NoError(t, err)

	require.Len(t, cw.inputs, 1)
	queries := cw.inputs[0].MetricDataQueries
	require.Len(t, queries, len(metricSpecs))

	first := queries[0]
	assert.Equal(t, "AWS/Lambda", aws.ToString(first.MetricStat.Metric.Namespace))
	assert.Equal(t, "orders-fn", aws.ToString(first.MetricStat.Metric.Dimensions[0].Value))
	assert.Equal(t, int32(300), aws.ToInt32(first.MetricStat.Period))
}

func TestGetMetricsRendersTable(t *testing.T) {
	cw := &fakeCloudWatch{pages: []*cloudwatch.GetMetricDataOutput{{
		MetricDataResults: []cwtypes.MetricDataResult{
			result("invocations", 10, 20, 30),
			result("errors", 0, 1, 0),
			result("duration_p99", 120.5, 180.25, 150),
		},
	}}}

	out, err := getMetricsTool(Deps{CloudWatch: cw}).Execute(context.Background(), map[string]any{
		"function_name": "orders-fn",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Metrics for orders-fn")
	assert.Contains(t, out, "60") // invocations summed over the window
	assert.Contains(t, out, "180.25")
	// Metrics with no datapoints render as dashes, not zeroes.
	assert.Contains(t, out, "Iterator age (ms)")
	assert.Regexp(t, `Iterator age \(ms\)\s+-\s+-`, out)
}

func TestGetMetricsSubset(t *testing.T) {
	cw := &fakeCloudWatch{pages: []*cloudwatch.GetMetricDataOutput{{
		MetricDataResults: []cwtypes.MetricDataResult{result("throttles", 2)},
	}}}

	out, err := getMetricsTool(Deps{CloudWatch: cw}).Execute(context.Background(), map[string]any{
		"function_name": "orders-fn",
		"metrics":       []any{"throttles"},
	})
	require.NoError(t, err)
	require.Len(t, cw.inputs[0].MetricDataQueries, 1)
	assert.Contains(t, out, "Throttles")
	assert.NotContains(t, out, "Invocations")
}

func TestGetMetricsUnknownMetric(t *testing.T) {
	_, err := getMetricsTool(Deps{CloudWatch: &fakeCloudWatch{}}).Execute(context.Background(), map[string]any{
		"function_name": "orders-fn",
		"metrics":       []any{"latency"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown metric")
}

func TestGetMetricsPaginates(t *testing.T) {
	cw := &fakeCloudWatch{pages: []*cloudwatch.GetMetricDataOutput{
		{
			MetricDataResults: []cwtypes.MetricDataResult{result("invocations", 5)},
			NextToken:         aws.String("more"),
		},
		{
			MetricDataResults: []cwtypes.MetricDataResult{result("invocations", 7)},
		},
	}}

	out, err := getMetricsTool(Deps{CloudWatch: cw}).Execute(context.Background(), map[string]any{
		"function_name": "orders-fn",
		"metrics":       []any{"invocations"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cw.calls)
	assert.Contains(t, out, "12") // both pages folded into the window sum
}

func TestGetMetricsValidatesPeriod(t *testing.T) {
	_, err := getMetricsTool(Deps{CloudWatch: &fakeCloudWatch{}}).Execute(context.Background(), map[string]any{
		"function_name": "orders-fn",
		"period":        45,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 60")
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, 6.0, aggregate("Sum", []float64{1, 2, 3}))
	assert.Equal(t, 3.0, aggregate("Maximum", []float64{1, 3, 2}))
	assert.Equal(t, 0.0, aggregate("Sum", nil))
}
