// Package metrics surfaces CloudWatch metrics for deployed Lambda
// functions as tabular text.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"serverless-mcp/internal/tools"
)

// CloudWatchAPI is the slice of the CloudWatch client get_metrics uses.
type CloudWatchAPI interface {
	GetMetricData(ctx context.Context, in *cloudwatch.GetMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// Deps bundles what the metrics tools depend on.
type Deps struct {
	CloudWatch CloudWatchAPI
}

// metricSpec describes one queryable Lambda metric.
type metricSpec struct {
	id     string
	metric string
	stat   string
	label  string
}

// metricSpecs is the full set get_metrics knows, in display order.
// IteratorAge only reports for stream-fed functions; CloudWatch returns
// an empty series otherwise.
var metricSpecs = []metricSpec{
	{"invocations", "Invocations", "Sum", "Invocations"},
	{"errors", "Errors", "Sum", "Errors"},
	{"throttles", "Throttles", "Sum", "Throttles"},
	{"duration_avg", "Duration", "Average", "Duration avg (ms)"},
	{"duration_p99", "Duration", "p99", "Duration p99 (ms)"},
	{"concurrent", "ConcurrentExecutions", "Maximum", "Concurrent executions"},
	{"iterator_age", "IteratorAge", "Maximum", "Iterator age (ms)"},
}

func specsFor(names []string) ([]metricSpec, error) {
	if len(names) == 0 {
		return metricSpecs, nil
	}
	byID := map[string]metricSpec{}
	for _, s := range metricSpecs {
		byID[s.id] = s
	}
	var out []metricSpec
	for _, n := range names {
		s, ok := byID[strings.ToLower(n)]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q; known: %s", n, strings.Join(metricIDs(), ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

func metricIDs() []string {
	ids := make([]string, 0, len(metricSpecs))
	for _, s := range metricSpecs {
		ids = append(ids, s.id)
	}
	sort.Strings(ids)
	return ids
}

func getMetricsTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "get_metrics",
		Description: "Fetch CloudWatch metrics for a Lambda function: invocations, errors, throttles, duration, concurrency, iterator age",
		Category:    tools.CategoryMetrics,
		ReadOnly:    true,
		Sensitive:   true,
		Schema: tools.Schema{
			Required: []string{"function_name"},
			Properties: map[string]tools.Property{
				"function_name": {Type: "string", Description: "Physical function name"},
				"period":        {Type: "integer", Description: "Aggregation period in seconds (default 300)", Default: 300},
				"start_time":    {Type: "string", Description: "RFC 3339 start of the window (default: 3 hours ago)"},
				"end_time":      {Type: "string", Description: "RFC 3339 end of the window (default: now)"},
				"metrics": {
					Type:        "array",
					Description: "Subset of metrics to fetch",
					Items:       &tools.PropertyItems{Type: "string", Enum: metricIDsAny()},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fnName, err := tools.RequiredString(args, "function_name")
			if err != nil {
				return "", err
			}
			specs, err := specsFor(tools.StringSlice(args, "metrics"))
			if err != nil {
				return "", err
			}
			period := tools.Int(args, "period", 300)
			if period < 60 || period%60 != 0 {
				return "", fmt.Errorf("period must be a multiple of 60 seconds, got %d", period)
			}

			now := time.Now().UTC()
			start, err := tools.Time(args, "start_time", now.Add(-3*time.Hour))
			if err != nil {
				return "", err
			}
			end, err := tools.Time(args, "end_time", now)
			if err != nil {
				return "", err
			}
			if !end.After(start) {
				return "", fmt.Errorf("end_time must be after start_time")
			}

			queries := make([]cwtypes.MetricDataQuery, 0, len(specs))
			for _, s := range specs {
				queries = append(queries, cwtypes.MetricDataQuery{
					Id:    aws.String(s.id),
					Label: aws.String(s.label),
					MetricStat: &cwtypes.MetricStat{
						Metric: &cwtypes.Metric{
							Namespace:  aws.String("AWS/Lambda"),
							MetricName: aws.String(s.metric),
							Dimensions: []cwtypes.Dimension{{
								Name:  aws.String("FunctionName"),
								Value: aws.String(fnName),
							}},
						},
						Period: aws.Int32(int32(period)),
						Stat:   aws.String(s.stat),
					},
					ReturnData: aws.Bool(true),
				})
			}

			results := map[string]cwtypes.MetricDataResult{}
			input := &cloudwatch.GetMetricDataInput{
				StartTime:         aws.Time(start),
				EndTime:           aws.Time(end),
				MetricDataQueries: queries,
				ScanBy:            cwtypes.ScanByTimestampAscending,
			}
			for {
				resp, err := d.CloudWatch.GetMetricData(ctx, input)
				if err != nil {
					return "", fmt.Errorf("fetch metrics for %s: %w", fnName, err)
				}
				for _, r := range resp.MetricDataResults {
					id := aws.ToString(r.Id)
					merged := results[id]
					merged.Id = r.Id
					merged.Label = r.Label
					merged.Timestamps = append(merged.Timestamps, r.Timestamps...)
					merged.Values = append(merged.Values, r.Values...)
					results[id] = merged
				}
				if resp.NextToken == nil {
					break
				}
				input.NextToken = resp.NextToken
			}

			return renderTable(fnName, start, end, period, specs, results), nil
		},
	}
}

// renderTable formats one row per metric: total or peak over the window
// plus the most recent datapoint.
func renderTable(fnName string, start, end time.Time, period int, specs []metricSpec, results map[string]cwtypes.MetricDataResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Metrics for %s, %s to %s (period %ds)\n\n",
		fnName, start.Format(time.RFC3339), end.Format(time.RFC3339), period)
	fmt.Fprintf(&b, "%-24s %14s %14s\n", "metric", "window", "latest")

	for _, s := range specs {
		r, ok := results[s.id]
		if !ok || len(r.Values) == 0 {
			fmt.Fprintf(&b, "%-24s %14s %14s\n", s.label, "-", "-")
			continue
		}
		fmt.Fprintf(&b, "%-24s %14s %14s\n",
			s.label, formatValue(aggregate(s.stat, r.Values)), formatValue(r.Values[len(r.Values)-1]))
	}
	return b.String()
}

// aggregate folds datapoints the way the stat suggests: sums stay sums,
// everything else reports the peak.
func aggregate(stat string, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if stat == "Sum" {
		var total float64
		for _, v := range values {
			total += v
		}
		return total
	}
	maxv := values[0]
	for _, v := range values[1:] {
		if v > maxv {
			maxv = v
		}
	}
	return maxv
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func metricIDsAny() []any {
	ids := metricIDs()
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Register adds the metrics tools to the registry.
func Register(reg *tools.Registry, d Deps) error {
	return reg.Register(getMetricsTool(d))
}
