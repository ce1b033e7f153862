// Package esm inspects and tunes Lambda event source mappings for stream
// and queue sources: Kinesis, DynamoDB streams, SQS and Kafka (MSK or
// self-managed).
package esm

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/kafka"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"serverless-mcp/internal/guidance"
)

// LambdaAPI covers the event source mapping calls on the Lambda client.
type LambdaAPI interface {
	GetEventSourceMapping(ctx context.Context, in *lambda.GetEventSourceMappingInput, opts ...func(*lambda.Options)) (*lambda.GetEventSourceMappingOutput, error)
	ListEventSourceMappings(ctx context.Context, in *lambda.ListEventSourceMappingsInput, opts ...func(*lambda.Options)) (*lambda.ListEventSourceMappingsOutput, error)
	UpdateEventSourceMapping(ctx context.Context, in *lambda.UpdateEventSourceMappingInput, opts ...func(*lambda.Options)) (*lambda.UpdateEventSourceMappingOutput, error)
}

// KafkaAPI covers the MSK control-plane call the troubleshooter issues.
type KafkaAPI interface {
	DescribeClusterV2(ctx context.Context, in *kafka.DescribeClusterV2Input, opts ...func(*kafka.Options)) (*kafka.DescribeClusterV2Output, error)
}

// Deps bundles what the esm tools depend on.
type Deps struct {
	Lambda LambdaAPI
	Kafka  KafkaAPI
	Guide  *guidance.Library
}
