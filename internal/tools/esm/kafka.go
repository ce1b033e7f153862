package esm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kafka"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"serverless-mcp/internal/tools"
)

func kafkaTroubleshootTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "esm_kafka_troubleshoot",
		Description: "Diagnose a Kafka event source mapping: mapping state, cluster health and the usual auth/networking suspects",
		Category:    tools.CategoryESM,
		ReadOnly:    true,
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"function_name": {Type: "string", Description: "Function consuming from Kafka"},
				"uuid":          {Type: "string", Description: "Mapping uuid, when the function has several mappings"},
				"cluster_arn":   {Type: "string", Description: "MSK cluster ARN; defaults to the mapping's event source"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			m, err := d.findMapping(ctx,
				tools.String(args, "function_name", ""),
				tools.String(args, "uuid", ""))
			if err != nil {
				return "", err
			}
			if classifySource(m) != sourceKafka {
				return "", fmt.Errorf("mapping %s is not a Kafka event source mapping", aws.ToString(m.UUID))
			}

			var b strings.Builder
			b.WriteString(describeMapping(m))
			if len(m.Topics) > 0 {
				fmt.Fprintf(&b, "  topics: %s\n", strings.Join(m.Topics, ", "))
			}

			b.WriteString("\nFindings:\n")
			healthy := true
			for _, f := range mappingFindings(m) {
				healthy = false
				fmt.Fprintf(&b, "  - %s\n", f)
			}

			clusterARN := tools.String(args, "cluster_arn", "")
			if clusterARN == "" && strings.Contains(aws.ToString(m.EventSourceArn), ":kafka:") {
				clusterARN = aws.ToString(m.EventSourceArn)
			}
			if clusterARN != "" && d.Kafka != nil {
				resp, err := d.Kafka.DescribeClusterV2(ctx, &kafka.DescribeClusterV2Input{
					ClusterArn: aws.String(clusterARN),
				})
				if err != nil {
					healthy = false
					fmt.Fprintf(&b, "  - cluster lookup failed: %v\n", err)
				} else if state := resp.ClusterInfo.State; state != "ACTIVE" {
					healthy = false
					fmt.Fprintf(&b, "  - MSK cluster is %s, not ACTIVE; the poller cannot consume until it recovers\n", state)
				}
			}
			if healthy {
				b.WriteString("  - nothing wrong detected; mapping is enabled and processing\n")
			}

			b.WriteString(`
Checklist when records still do not arrive:
  consumer group   the mapping's uuid is its consumer group id; a lag of zero with no invocations means no new records
  authentication   SASL/SCRAM secret ARN in SourceAccessConfigurations must be readable by the execution role
  networking       subnets need a route to the brokers and security groups must allow the broker port (9092/9094/9096)
  topic access     the cluster ACLs must allow the consumer group to read the topic
`)
			return b.String(), nil
		},
	}
}

// mappingFindings flags the mapping-level states that stop consumption.
func mappingFindings(m *lambdatypes.EventSourceMappingConfiguration) []string {
	var out []string
	switch state := aws.ToString(m.State); state {
	case "Enabled", "Enabling", "Updating":
	case "Disabled", "Disabling":
		out = append(out, fmt.Sprintf("mapping is %s; enable it to resume consumption", state))
	default:
		reason := aws.ToString(m.StateTransitionReason)
		if reason == "" {
			reason = "no reason reported"
		}
		out = append(out, fmt.Sprintf("mapping state is %s (%s)", state, reason))
	}

	switch result := aws.ToString(m.LastProcessingResult); result {
	case "", "OK", "No records processed":
	case "PROBLEM: Connection error. Your VPC must be able to connect to Lambda":
		out = append(out, "connection problem: the poller cannot reach the brokers, check subnets and security groups")
	default:
		if strings.HasPrefix(result, "PROBLEM") {
			out = append(out, "last processing result: "+result)
		}
	}
	return out
}
