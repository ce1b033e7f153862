package esm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"serverless-mcp/internal/tools"
)

// tuning holds the target mapping parameters for one optimization goal.
type tuning struct {
	batchSize       int32
	batchingWindow  int32
	parallelization int32 // stream sources only
	advice          string
}

// tuningFor returns the recommended parameters for a goal and source.
// Values follow the service limits: SQS batches cap at 10 with no window
// and 10000 with one, stream parallelization caps at 10.
func tuningFor(goal string, kind sourceKind) (tuning, error) {
	switch goal {
	case "latency":
		t := tuning{batchSize: 10, batchingWindow: 0, parallelization: 10,
			advice: "small batches and no batching window minimize time-to-invoke; stream sources fan out per shard with a higher parallelization factor"}
		return t, nil
	case "throughput":
		t := tuning{batchSize: 1000, batchingWindow: 1, parallelization: 10,
			advice: "large batches with a short window keep invocations full; watch IteratorAge to confirm the consumer keeps up"}
		if kind == sourceSQS {
			t.batchSize = 100
		}
		return t, nil
	case "cost":
		t := tuning{batchSize: 1000, batchingWindow: 30, parallelization: 1,
			advice: "maximal batching amortizes the per-invocation overhead; acceptable only when records tolerate up to the window in added latency"}
		if kind == sourceSQS {
			t.batchSize = 1000
		}
		return t, nil
	}
	return tuning{}, fmt.Errorf("goal must be latency, throughput or cost, got %q", goal)
}

func optimizeTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "esm_optimize",
		Description: "Recommend (and optionally apply) event source mapping parameters for a latency, throughput or cost goal",
		Category:    tools.CategoryESM,
		Schema: tools.Schema{
			Required: []string{"goal"},
			Properties: map[string]tools.Property{
				"function_name": {Type: "string", Description: "Function whose mapping to tune (when it has exactly one)"},
				"uuid":          {Type: "string", Description: "Mapping uuid; disambiguates functions with several mappings"},
				"goal": {
					Type:        "string",
					Description: "What to optimize for",
					Enum:        []any{"latency", "throughput", "cost"},
				},
				"apply": {
					Type:        "boolean",
					Description: "Apply the recommendation via UpdateEventSourceMapping instead of only reporting it",
					Default:     false,
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			goal, err := tools.RequiredString(args, "goal")
			if err != nil {
				return "", err
			}
			m, err := d.findMapping(ctx,
				tools.String(args, "function_name", ""),
				tools.String(args, "uuid", ""))
			if err != nil {
				return "", err
			}

			kind := classifySource(m)
			if kind == sourceUnknown {
				return "", fmt.Errorf("mapping %s has an unrecognized event source", aws.ToString(m.UUID))
			}
			rec, err := tuningFor(goal, kind)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			b.WriteString(describeMapping(m))
			fmt.Fprintf(&b, "\nRecommendation for %s:\n", goal)

			changes := recommendChanges(m, kind, rec)
			if len(changes) == 0 {
				fmt.Fprintf(&b, "  already tuned for %s, nothing to change\n", goal)
			}
			for _, c := range changes {
				fmt.Fprintf(&b, "  %s\n", c)
			}
			if kind.isStream() && failureDestination(m) == "" {
				b.WriteString("  configure an on-failure destination (SQS or SNS) so poison records do not block the shard\n")
			}
			fmt.Fprintf(&b, "\n%s\n", rec.advice)

			if !tools.Bool(args, "apply", false) || len(changes) == 0 {
				return b.String(), nil
			}

			in := &lambda.UpdateEventSourceMappingInput{
				UUID:                           m.UUID,
				BatchSize:                      aws.Int32(rec.batchSize),
				MaximumBatchingWindowInSeconds: aws.Int32(rec.batchingWindow),
			}
			if kind.isStream() {
				in.ParallelizationFactor = aws.Int32(rec.parallelization)
			}
			if _, err := d.Lambda.UpdateEventSourceMapping(ctx, in); err != nil {
				return "", fmt.Errorf("update event source mapping %s: %w", aws.ToString(m.UUID), err)
			}
			b.WriteString("\nApplied. The mapping updates asynchronously; its state shows Updating until done.\n")
			return b.String(), nil
		},
	}
}

// recommendChanges diffs the current mapping against the target tuning.
func recommendChanges(m *lambdatypes.EventSourceMappingConfiguration, kind sourceKind, rec tuning) []string {
	var out []string
	if cur := aws.ToInt32(m.BatchSize); cur != rec.batchSize {
		out = append(out, fmt.Sprintf("batch size %d -> %d", cur, rec.batchSize))
	}
	if cur := aws.ToInt32(m.MaximumBatchingWindowInSeconds); cur != rec.batchingWindow {
		out = append(out, fmt.Sprintf("batching window %ds -> %ds", cur, rec.batchingWindow))
	}
	if kind.isStream() {
		if cur := aws.ToInt32(m.ParallelizationFactor); cur != rec.parallelization {
			out = append(out, fmt.Sprintf("parallelization factor %d -> %d", cur, rec.parallelization))
		}
	}
	return out
}

func failureDestination(m *lambdatypes.EventSourceMappingConfiguration) string {
	if m.DestinationConfig == nil || m.DestinationConfig.OnFailure == nil {
		return ""
	}
	return aws.ToString(m.DestinationConfig.OnFailure.Destination)
}
