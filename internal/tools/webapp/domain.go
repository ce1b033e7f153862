package webapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	acmtypes "github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/tools"
)

// cloudFrontHostedZoneID is the fixed Route53 hosted zone every CloudFront
// distribution aliases through.
const cloudFrontHostedZoneID = "Z2FDTNDATAQYW2"

func configureDomainTool(d Deps) *tools.Tool {
	return &tools.Tool{
		Name:        "configure_domain",
		Description: "Point a custom domain at a deployed web application: ACM certificate plus Route53 alias record",
		Category:    tools.CategoryWebapp,
		Schema: tools.Schema{
			Required: []string{"project_name", "domain_name"},
			Properties: map[string]tools.Property{
				"project_name": {Type: "string", Description: "Project the site was deployed under"},
				"domain_name":  {Type: "string", Description: "Fully qualified domain, e.g. app.example.com"},
				"create_certificate": {
					Type:        "boolean",
					Description: "Request a DNS-validated ACM certificate when none covers the domain",
					Default:     true,
				},
				"create_route53_record": {
					Type:        "boolean",
					Description: "Upsert the alias record in the matching hosted zone",
					Default:     true,
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			project, err := tools.RequiredString(args, "project_name")
			if err != nil {
				return "", err
			}
			domain, err := tools.RequiredString(args, "domain_name")
			if err != nil {
				return "", err
			}

			prior, err := d.Store.Latest(ctx, project)
			if errors.Is(err, deploystore.ErrNotFound) {
				return "", fmt.Errorf("no deployment recorded for %s; run deploy_webapp first", project)
			}
			if err != nil {
				return "", err
			}
			if prior.Distribution == "" {
				return "", fmt.Errorf("no CloudFront distribution recorded for %s; custom domains need one in front of the site bucket", project)
			}

			dist, err := d.CDN.GetDistribution(ctx, &cloudfront.GetDistributionInput{
				Id: aws.String(prior.Distribution),
			})
			if err != nil {
				return "", fmt.Errorf("look up distribution %s: %w", prior.Distribution, err)
			}
			target := aws.ToString(dist.Distribution.DomainName)

			var b strings.Builder

			certARN, certNote, err := d.ensureCertificate(ctx, domain, tools.Bool(args, "create_certificate", true))
			if err != nil {
				return "", err
			}
			b.WriteString(certNote)
			if certARN != "" {
				fmt.Fprintf(&b, "Certificate: %s\n", certARN)
			}

			if tools.Bool(args, "create_route53_record", true) {
				zoneID, err := d.findHostedZone(ctx, domain)
				if err != nil {
					return "", err
				}
				if err := d.upsertAlias(ctx, zoneID, domain, target); err != nil {
					return "", fmt.Errorf("upsert alias record: %w", err)
				}
				fmt.Fprintf(&b, "Alias record %s -> %s upserted in zone %s.\n", domain, target, zoneID)
			}

			if err := d.Store.UpdateDomain(ctx, prior.ID, domain); err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "\nAdd %s to the distribution's alternate domain names with the certificate above to finish.", domain)
			return b.String(), nil
		},
	}
}

// ensureCertificate finds an issued us-east-1 certificate covering the
// domain, or requests one. Returns the ARN and a human note; a freshly
// requested certificate also reports its pending DNS validation records.
func (d Deps) ensureCertificate(ctx context.Context, domain string, create bool) (string, string, error) {
	list, err := d.Certs.ListCertificates(ctx, &acm.ListCertificatesInput{
		CertificateStatuses: []acmtypes.CertificateStatus{acmtypes.CertificateStatusIssued},
	})
	if err != nil {
		return "", "", fmt.Errorf("list certificates: %w", err)
	}
	for _, c := range list.CertificateSummaryList {
		if certificateCovers(aws.ToString(c.DomainName), domain) {
			return aws.ToString(c.CertificateArn), "Using existing issued certificate.\n", nil
		}
	}

	if !create {
		return "", "No issued certificate covers the domain; pass create_certificate to request one.\n", nil
	}

	req, err := d.Certs.RequestCertificate(ctx, &acm.RequestCertificateInput{
		DomainName:       aws.String(domain),
		ValidationMethod: acmtypes.ValidationMethodDns,
	})
	if err != nil {
		return "", "", fmt.Errorf("request certificate for %s: %w", domain, err)
	}
	arn := aws.ToString(req.CertificateArn)

	var b strings.Builder
	b.WriteString("Requested a new DNS-validated certificate; it issues once the validation record exists.\n")
	desc, err := d.Certs.DescribeCertificate(ctx, &acm.DescribeCertificateInput{CertificateArn: req.CertificateArn})
	if err == nil {
		for _, opt := range desc.Certificate.DomainValidationOptions {
			if rr := opt.ResourceRecord; rr != nil {
				fmt.Fprintf(&b, "Validation record: %s %s %s\n",
					aws.ToString(rr.Name), rr.Type, aws.ToString(rr.Value))
			}
		}
	}
	return arn, b.String(), nil
}

// certificateCovers reports whether a certificate domain (possibly a
// wildcard) covers the requested domain.
func certificateCovers(certDomain, domain string) bool {
	if strings.EqualFold(certDomain, domain) {
		return true
	}
	if rest, ok := strings.CutPrefix(certDomain, "*."); ok {
		_, sub, found := strings.Cut(domain, ".")
		return found && strings.EqualFold(sub, rest)
	}
	return false
}

// findHostedZone locates the public hosted zone whose name is the longest
// suffix of the domain.
func (d Deps) findHostedZone(ctx context.Context, domain string) (string, error) {
	fqdn := domain + "."
	// Walk candidate suffixes from most to least specific so
	// app.eu.example.com prefers a eu.example.com zone over example.com.
	for candidate := fqdn; strings.Count(candidate, ".") > 1; {
		resp, err := d.DNS.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
			DNSName:  aws.String(candidate),
			MaxItems: aws.Int32(1),
		})
		if err != nil {
			return "", fmt.Errorf("list hosted zones: %w", err)
		}
		if len(resp.HostedZones) > 0 && aws.ToString(resp.HostedZones[0].Name) == candidate {
			return strings.TrimPrefix(aws.ToString(resp.HostedZones[0].Id), "/hostedzone/"), nil
		}
		_, rest, _ := strings.Cut(candidate, ".")
		candidate = rest
	}
	return "", fmt.Errorf("no hosted zone found for %s; create one in Route53 or set create_route53_record to false", domain)
}

func (d Deps) upsertAlias(ctx context.Context, zoneID, domain, target string) error {
	_, err := d.DNS.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Comment: aws.String("serverless-mcp configure_domain"),
			Changes: []r53types.Change{{
				Action: r53types.ChangeActionUpsert,
				ResourceRecordSet: &r53types.ResourceRecordSet{
					Name: aws.String(domain),
					Type: r53types.RRTypeA,
					AliasTarget: &r53types.AliasTarget{
						DNSName:              aws.String(target),
						HostedZoneId:         aws.String(cloudFrontHostedZoneID),
						EvaluateTargetHealth: false,
					},
				},
			}},
		},
	})
	return err
}
