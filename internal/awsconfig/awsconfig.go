// Package awsconfig builds the shared AWS configuration and the service
// clients the tools use. All clients share one aws.Config so profile and
// region resolution happens exactly once per process.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/kafka"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"serverless-mcp/internal/logging"
)

// Options selects the credential source and region.
type Options struct {
	Profile     string
	Region      string
	EndpointURL string // overrides every service endpoint when set
}

// Clients bundles the service clients used across the tool packages.
type Clients struct {
	cfg aws.Config

	endpointURL string

	Lambda         *lambda.Client
	CloudWatch     *cloudwatch.Client
	CloudWatchLogs *cloudwatchlogs.Client
	S3             *s3.Client
	CloudFront     *cloudfront.Client
	Route53        *route53.Client
	ACM            *acm.Client
	CloudFormation *cloudformation.Client
	Kafka          *kafka.Client
	STS            *sts.Client
}

// New resolves the shared aws.Config and constructs every service client.
func New(ctx context.Context, opts Options) (*Clients, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	logging.For(logging.CategoryAWS).Info("AWS config resolved",
		zap.String("region", cfg.Region),
		zap.String("profile", opts.Profile))

	c := &Clients{cfg: cfg, endpointURL: opts.EndpointURL}

	c.Lambda = lambda.NewFromConfig(cfg, func(o *lambda.Options) { c.override(&o.BaseEndpoint) })
	c.CloudWatch = cloudwatch.NewFromConfig(cfg, func(o *cloudwatch.Options) { c.override(&o.BaseEndpoint) })
	c.CloudWatchLogs = cloudwatchlogs.NewFromConfig(cfg, func(o *cloudwatchlogs.Options) { c.override(&o.BaseEndpoint) })
	c.S3 = s3.NewFromConfig(cfg, func(o *s3.Options) {
		c.override(&o.BaseEndpoint)
		if opts.EndpointURL != "" {
			o.UsePathStyle = true
		}
	})
	c.CloudFront = cloudfront.NewFromConfig(cfg, func(o *cloudfront.Options) { c.override(&o.BaseEndpoint) })
	c.Route53 = route53.NewFromConfig(cfg, func(o *route53.Options) { c.override(&o.BaseEndpoint) })
	c.ACM = acm.NewFromConfig(cfg, func(o *acm.Options) {
		c.override(&o.BaseEndpoint)
		// CloudFront only serves certificates issued in us-east-1.
		if opts.EndpointURL == "" {
			o.Region = "us-east-1"
		}
	})
	c.CloudFormation = cloudformation.NewFromConfig(cfg, func(o *cloudformation.Options) { c.override(&o.BaseEndpoint) })
	c.Kafka = kafka.NewFromConfig(cfg, func(o *kafka.Options) { c.override(&o.BaseEndpoint) })
	c.STS = sts.NewFromConfig(cfg, func(o *sts.Options) { c.override(&o.BaseEndpoint) })

	return c, nil
}

func (c *Clients) override(base **string) {
	if c.endpointURL != "" {
		*base = aws.String(c.endpointURL)
	}
}

// Region returns the resolved region.
func (c *Clients) Region() string { return c.cfg.Region }

// Preflight verifies that credentials work by calling sts:GetCallerIdentity
// and maps the common failure modes onto actionable messages.
func (c *Clients) Preflight(ctx context.Context) error {
	out, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return ClassifyCredentialError(err)
	}
	logging.For(logging.CategoryAWS).Info("credentials verified",
		zap.String("account", aws.ToString(out.Account)),
		zap.String("arn", aws.ToString(out.Arn)))
	return nil
}
