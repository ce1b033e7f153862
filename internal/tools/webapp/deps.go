// Package webapp deploys web applications to serverless AWS
// infrastructure: static frontends to S3 behind CloudFront, backends as
// Lambda functions fronted by API Gateway via a generated SAM template.
package webapp

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/guidance"
	"serverless-mcp/internal/samcli"
)

// Uploader is the slice of manager.Uploader the asset sync needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// BucketAPI covers the bucket lifecycle calls on the S3 client.
type BucketAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketWebsite(ctx context.Context, in *s3.PutBucketWebsiteInput, opts ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error)
}

// CDNAPI covers the CloudFront calls the tools issue.
type CDNAPI interface {
	CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, opts ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
	GetDistribution(ctx context.Context, in *cloudfront.GetDistributionInput, opts ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error)
}

// CertAPI covers the ACM calls for configure_domain. Certificates for
// CloudFront must live in us-east-1; callers wire a client pinned there.
type CertAPI interface {
	ListCertificates(ctx context.Context, in *acm.ListCertificatesInput, opts ...func(*acm.Options)) (*acm.ListCertificatesOutput, error)
	RequestCertificate(ctx context.Context, in *acm.RequestCertificateInput, opts ...func(*acm.Options)) (*acm.RequestCertificateOutput, error)
	DescribeCertificate(ctx context.Context, in *acm.DescribeCertificateInput, opts ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error)
}

// DNSAPI covers the Route53 calls for configure_domain.
type DNSAPI interface {
	ListHostedZonesByName(ctx context.Context, in *route53.ListHostedZonesByNameInput, opts ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Deps bundles everything the webapp tools depend on.
type Deps struct {
	CLI      *samcli.CLI
	Uploader Uploader
	Buckets  BucketAPI
	CDN      CDNAPI
	Certs    CertAPI
	DNS      DNSAPI
	Store    *deploystore.Store
	Guide    *guidance.Library
	Region   string
}
