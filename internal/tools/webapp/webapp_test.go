package webapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	acmtypes "github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/samcli"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string // key -> content type
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &manager.UploadOutput{}, nil
}

type fakeBuckets struct {
	exists  bool
	created []string
	website bool
}

func (f *fakeBuckets) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.exists {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, errors.New("NotFound")
}

func (f *fakeBuckets) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = append(f.created, aws.ToString(in.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeBuckets) PutBucketWebsite(ctx context.Context, in *s3.PutBucketWebsiteInput, _ ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error) {
	f.website = true
	return &s3.PutBucketWebsiteOutput{}, nil
}

type fakeCDN struct {
	invalidated []string
	domain      string
}

func (f *fakeCDN) CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.invalidated = append(f.invalidated, aws.ToString(in.DistributionId))
	return &cloudfront.CreateInvalidationOutput{}, nil
}

func (f *fakeCDN) GetDistribution(ctx context.Context, in *cloudfront.GetDistributionInput, _ ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error) {
	return &cloudfront.GetDistributionOutput{Distribution: &cftypes.Distribution{
		Id:         in.Id,
		DomainName: aws.String(f.domain),
	}}, nil
}

type fakeCerts struct {
	issued    []string // domain names of issued certificates
	requested []string
}

func (f *fakeCerts) ListCertificates(ctx context.Context, in *acm.ListCertificatesInput, _ ...func(*acm.Options)) (*acm.ListCertificatesOutput, error) {
	out := &acm.ListCertificatesOutput{}
	for i, d := range f.issued {
		out.CertificateSummaryList = append(out.CertificateSummaryList, acmtypes.CertificateSummary{
			CertificateArn: aws.String(fmt.Sprintf("arn:aws:acm:us-east-1:123:certificate/%d", i)),
			DomainName:     aws.String(d),
		})
	}
	return out, nil
}

func (f *fakeCerts) RequestCertificate(ctx context.Context, in *acm.RequestCertificateInput, _ ...func(*acm.Options)) (*acm.RequestCertificateOutput, error) {
	f.requested = append(f.requested, aws.ToString(in.DomainName))
	return &acm.RequestCertificateOutput{CertificateArn: aws.String("arn:aws:acm:us-east-1:123:certificate/new")}, nil
}

func (f *fakeCerts) DescribeCertificate(ctx context.Context, in *acm.DescribeCertificateInput, _ ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error) {
	return &acm.DescribeCertificateOutput{Certificate: &acmtypes.CertificateDetail{
		CertificateArn: in.CertificateArn,
		DomainValidationOptions: []acmtypes.DomainValidation{{
			ResourceRecord: &acmtypes.ResourceRecord{
				Name:  aws.String("_abc.app.example.com."),
				Type:  acmtypes.RecordTypeCname,
				Value: aws.String("_xyz.acm-validations.aws."),
			},
		}},
	}}, nil
}

type fakeDNS struct {
	zones   map[string]string // zone name (with trailing dot) -> id
	changes []*route53.ChangeResourceRecordSetsInput
}

func (f *fakeDNS) ListHostedZonesByName(ctx context.Context, in *route53.ListHostedZonesByNameInput, _ ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error) {
	name := aws.ToString(in.DNSName)
	if id, ok := f.zones[name]; ok {
		return &route53.ListHostedZonesByNameOutput{HostedZones: []r53types.HostedZone{{
			Id:   aws.String("/hostedzone/" + id),
			Name: aws.String(name),
		}}}, nil
	}
	return &route53.ListHostedZonesByNameOutput{}, nil
}

func (f *fakeDNS) ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	f.changes = append(f.changes, in)
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

type fakeRunner struct {
	commands []samcli.Command
	output   string
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, cmd samcli.Command) (string, error) {
	f.commands = append(f.commands, cmd)
	return f.output, f.err
}

func assetsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static"), 0o755))
	for path, body := range map[string]string{
		"index.html":      "<html></html>",
		"static/app.js":   "console.log(1)",
		"static/app.css":  "body{}",
		"static/logo.svg": "<svg/>",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, path), []byte(body), 0o644))
	}
	return dir
}

func testDeps(t *testing.T) (Deps, *fakeUploader, *fakeBuckets, *fakeCDN) {
	t.Helper()
	store, err := deploystore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	up := &fakeUploader{}
	buckets := &fakeBuckets{}
	cdn := &fakeCDN{domain: "d111abc.cloudfront.net"}
	return Deps{
		Uploader: up,
		Buckets:  buckets,
		CDN:      cdn,
		Store:    store,
		Region:   "eu-west-1",
	}, up, buckets, cdn
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"index.html":    "text/html; charset=utf-8",
		"app.JS":        "application/javascript",
		"font.woff2":    "font/woff2",
		"data.unknown7": "application/octet-stream",
	}
	for path, want := range tests {
		assert.Equal(t, want, contentType(path), path)
	}
}

func TestSiteBucketName(t *testing.T) {
	assert.Equal(t, "my-shop-site-eu-west-1", siteBucketName("My_Shop", "eu-west-1"))
}

func TestLogicalID(t *testing.T) {
	assert.Equal(t, "MyShopFunction", logicalID("my-shop")+"Function")
	assert.Equal(t, "App", logicalID("---"))
}

func TestDeployFrontendCreatesBucketAndSyncs(t *testing.T) {
	d, up, buckets, cdn := testDeps(t)

	out, err := deployTool(d).Execute(context.Background(), map[string]any{
		"deployment_type": "frontend",
		"project_name":    "shop",
		"project_root":    t.TempDir(),
		"frontend": map[string]any{
			"built_assets_path": assetsDir(t),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"shop-site-eu-west-1"}, buckets.created)
	assert.True(t, buckets.website)
	assert.Len(t, up.objects, 4)
	assert.Equal(t, "application/javascript", up.objects["static/app.js"])
	assert.Empty(t, cdn.invalidated, "no distribution recorded yet")
	assert.Contains(t, out, "4 files to s3://shop-site-eu-west-1")

	latest, err := d.Store.Latest(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop-site-eu-west-1", latest.Bucket)
}

func TestDeployFrontendInvalidatesKnownDistribution(t *testing.T) {
	d, _, buckets, cdn := testDeps(t)
	buckets.exists = true

	_, err := deployTool(d).Execute(context.Background(), map[string]any{
		"deployment_type": "frontend",
		"project_name":    "shop",
		"project_root":    t.TempDir(),
		"frontend": map[string]any{
			"built_assets_path": assetsDir(t),
			"distribution_id":   "E2EXAMPLE",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, buckets.created, "existing bucket is reused")
	assert.Equal(t, []string{"E2EXAMPLE"}, cdn.invalidated)
}

func TestDeployFrontendRequiresAssets(t *testing.T) {
	d, _, _, _ := testDeps(t)
	_, err := deployTool(d).Execute(context.Background(), map[string]any{
		"deployment_type": "frontend",
		"project_name":    "shop",
		"project_root":    t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "built_assets_path")
}

func TestDeployBackendGeneratesTemplateAndDeploys(t *testing.T) {
	d, _, _, _ := testDeps(t)
	runner := &fakeRunner{output: "Successfully created/updated stack"}
	d.CLI = samcli.NewWithRunner(samcli.Config{}, runner)

	root := t.TempDir()
	artifacts := filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(artifacts, 0o755))

	out, err := deployTool(d).Execute(context.Background(), map[string]any{
		"deployment_type": "backend",
		"project_name":    "shop",
		"project_root":    root,
		"backend": map[string]any{
			"built_artifacts_path": artifacts,
			"runtime":              "nodejs22.x",
			"port":                 3000,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "stack shop-backend")

	// Generated template carries the web adapter wiring.
	body, readErr := os.ReadFile(filepath.Join(root, "template.yaml"))
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "AWS::Serverless::Function")
	assert.Contains(t, string(body), "PORT: '3000'")
	assert.Contains(t, string(body), "nodejs22.x")

	require.NotEmpty(t, runner.commands)
	deploy := runner.commands[len(runner.commands)-1]
	assert.Equal(t, "sam", deploy.Binary)
	assert.Contains(t, deploy.Args, "shop-backend")
	assert.Equal(t, root, deploy.Dir)
}

func TestWriteBackendTemplateKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("Resources: {}\n"), 0o644))

	path, err := writeBackendTemplate(dir, backendParams{Project: "shop", Runtime: "go1.x", ArtifactsPath: "."})
	require.NoError(t, err)
	assert.Equal(t, existing, path)
	body, _ := os.ReadFile(existing)
	assert.Equal(t, "Resources: {}\n", string(body))
}

func TestUpdateFrontendUsesRecordedBucket(t *testing.T) {
	d, up, _, cdn := testDeps(t)
	_, err := d.Store.Record(context.Background(), deploystore.Deployment{
		Project:      "shop",
		Tool:         "deploy_webapp",
		Bucket:       "shop-site-eu-west-1",
		Distribution: "E2EXAMPLE",
		Status:       "succeeded",
	})
	require.NoError(t, err)

	out, err := updateFrontendTool(d).Execute(context.Background(), map[string]any{
		"project_name":      "shop",
		"built_assets_path": assetsDir(t),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "s3://shop-site-eu-west-1")
	assert.Len(t, up.objects, 4)
	assert.Equal(t, []string{"E2EXAMPLE"}, cdn.invalidated)
}

func TestUpdateFrontendWithoutDeployment(t *testing.T) {
	d, _, _, _ := testDeps(t)
	_, err := updateFrontendTool(d).Execute(context.Background(), map[string]any{
		"project_name":      "ghost",
		"built_assets_path": assetsDir(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run deploy_webapp first")
}

func TestConfigureDomainWithExistingWildcardCert(t *testing.T) {
	d, _, _, _ := testDeps(t)
	certs := &fakeCerts{issued: []string{"*.example.com"}}
	dns := &fakeDNS{zones: map[string]string{"example.com.": "Z123"}}
	d.Certs = certs
	d.DNS = dns

	_, err := d.Store.Record(context.Background(), deploystore.Deployment{
		Project:      "shop",
		Distribution: "E2EXAMPLE",
		Status:       "succeeded",
	})
	require.NoError(t, err)

	out, err := configureDomainTool(d).Execute(context.Background(), map[string]any{
		"project_name": "shop",
		"domain_name":  "app.example.com",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Using existing issued certificate")
	assert.Empty(t, certs.requested)

	require.Len(t, dns.changes, 1)
	change := dns.changes[0]
	assert.Equal(t, "Z123", aws.ToString(change.HostedZoneId))
	rrs := change.ChangeBatch.Changes[0].ResourceRecordSet
	assert.Equal(t, "app.example.com", aws.ToString(rrs.Name))
	assert.Equal(t, "d111abc.cloudfront.net", aws.ToString(rrs.AliasTarget.DNSName))
	assert.Equal(t, cloudFrontHostedZoneID, aws.ToString(rrs.AliasTarget.HostedZoneId))

	latest, err := d.Store.Latest(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", latest.DomainName)
}

func TestConfigureDomainRequestsCertificate(t *testing.T) {
	d, _, _, _ := testDeps(t)
	certs := &fakeCerts{}
	d.Certs = certs
	d.DNS = &fakeDNS{zones: map[string]string{"example.com.": "Z123"}}

	_, err := d.Store.Record(context.Background(), deploystore.Deployment{
		Project:      "shop",
		Distribution: "E2EXAMPLE",
		Status:       "succeeded",
	})
	require.NoError(t, err)

	out, err := configureDomainTool(d).Execute(context.Background(), map[string]any{
		"project_name": "shop",
		"domain_name":  "app.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.example.com"}, certs.requested)
	assert.Contains(t, out, "Validation record")
}

func TestConfigureDomainWithoutDistribution(t *testing.T) {
	d, _, _, _ := testDeps(t)
	_, err := d.Store.Record(context.Background(), deploystore.Deployment{
		Project: "shop",
		Bucket:  "shop-site-eu-west-1",
		Status:  "succeeded",
	})
	require.NoError(t, err)

	_, err = configureDomainTool(d).Execute(context.Background(), map[string]any{
		"project_name": "shop",
		"domain_name":  "app.example.com",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CloudFront distribution recorded")
}

func TestCertificateCovers(t *testing.T) {
	tests := []struct {
		cert, domain string
		want         bool
	}{
		{"app.example.com", "app.example.com", true},
		{"APP.example.com", "app.example.com", true},
		{"*.example.com", "app.example.com", true},
		{"*.example.com", "deep.app.example.com", false},
		{"*.example.com", "example.com", false},
		{"other.com", "app.example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, certificateCovers(tt.cert, tt.domain), "%s vs %s", tt.cert, tt.domain)
	}
}

func TestSyncAssetsEmptyDir(t *testing.T) {
	_, err := syncAssets(context.Background(), &fakeUploader{}, "bucket", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build the frontend first")
}

func TestSyncAssetsPropagatesUploadFailure(t *testing.T) {
	up := &fakeUploader{err: errors.New("access denied")}
	_, err := syncAssets(context.Background(), up, "bucket", assetsDir(t))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "access denied"))
}
