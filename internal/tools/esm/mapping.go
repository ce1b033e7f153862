package esm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// sourceKind classifies an event source mapping by its source service.
type sourceKind string

const (
	sourceKinesis  sourceKind = "kinesis"
	sourceDynamoDB sourceKind = "dynamodb"
	sourceSQS      sourceKind = "sqs"
	sourceKafka    sourceKind = "kafka"
	sourceUnknown  sourceKind = "unknown"
)

// isStream reports whether the source is sharded and supports
// ParallelizationFactor.
func (k sourceKind) isStream() bool {
	return k == sourceKinesis || k == sourceDynamoDB
}

func classifySource(m *lambdatypes.EventSourceMappingConfiguration) sourceKind {
	if m.SelfManagedEventSource != nil {
		return sourceKafka
	}
	arn := aws.ToString(m.EventSourceArn)
	switch {
	case strings.Contains(arn, ":kinesis:"):
		return sourceKinesis
	case strings.Contains(arn, ":dynamodb:"):
		return sourceDynamoDB
	case strings.Contains(arn, ":sqs:"):
		return sourceSQS
	case strings.Contains(arn, ":kafka:"):
		return sourceKafka
	}
	return sourceUnknown
}

// findMapping resolves a mapping by uuid, or by the function it feeds when
// only function_name is given. A function with several mappings is an
// error that lists the candidates.
func (d Deps) findMapping(ctx context.Context, functionName, mappingUUID string) (*lambdatypes.EventSourceMappingConfiguration, error) {
	if mappingUUID != "" {
		resp, err := d.Lambda.GetEventSourceMapping(ctx, &lambda.GetEventSourceMappingInput{
			UUID: aws.String(mappingUUID),
		})
		if err != nil {
			return nil, fmt.Errorf("get event source mapping %s: %w", mappingUUID, err)
		}
		cfg := lambdatypes.EventSourceMappingConfiguration{
			UUID:                           resp.UUID,
			EventSourceArn:                 resp.EventSourceArn,
			FunctionArn:                    resp.FunctionArn,
			State:                          resp.State,
			StateTransitionReason:          resp.StateTransitionReason,
			LastProcessingResult:           resp.LastProcessingResult,
			BatchSize:                      resp.BatchSize,
			MaximumBatchingWindowInSeconds: resp.MaximumBatchingWindowInSeconds,
			ParallelizationFactor:          resp.ParallelizationFactor,
			DestinationConfig:              resp.DestinationConfig,
			SelfManagedEventSource:         resp.SelfManagedEventSource,
			Topics:                         resp.Topics,
		}
		return &cfg, nil
	}

	if functionName == "" {
		return nil, fmt.Errorf("one of function_name or uuid is required")
	}
	resp, err := d.Lambda.ListEventSourceMappings(ctx, &lambda.ListEventSourceMappingsInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		return nil, fmt.Errorf("list event source mappings of %s: %w", functionName, err)
	}
	switch len(resp.EventSourceMappings) {
	case 0:
		return nil, fmt.Errorf("function %s has no event source mappings", functionName)
	case 1:
		return &resp.EventSourceMappings[0], nil
	}
	var ids []string
	for _, m := range resp.EventSourceMappings {
		ids = append(ids, aws.ToString(m.UUID))
	}
	return nil, fmt.Errorf("function %s has %d event source mappings; pass uuid as one of: %s",
		functionName, len(resp.EventSourceMappings), strings.Join(ids, ", "))
}

func describeMapping(m *lambdatypes.EventSourceMappingConfiguration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mapping %s (%s)\n", aws.ToString(m.UUID), classifySource(m))
	fmt.Fprintf(&b, "  state: %s", aws.ToString(m.State))
	if reason := aws.ToString(m.StateTransitionReason); reason != "" {
		fmt.Fprintf(&b, " (%s)", reason)
	}
	b.WriteByte('\n')
	if r := aws.ToString(m.LastProcessingResult); r != "" {
		fmt.Fprintf(&b, "  last processing result: %s\n", r)
	}
	if m.BatchSize != nil {
		fmt.Fprintf(&b, "  batch size: %d\n", *m.BatchSize)
	}
	if m.MaximumBatchingWindowInSeconds != nil {
		fmt.Fprintf(&b, "  batching window: %ds\n", *m.MaximumBatchingWindowInSeconds)
	}
	if m.ParallelizationFactor != nil {
		fmt.Fprintf(&b, "  parallelization factor: %d\n", *m.ParallelizationFactor)
	}
	return b.String()
}
