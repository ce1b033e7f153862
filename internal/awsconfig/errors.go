package awsconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrNoCredentials reports that no usable credential source was found.
var ErrNoCredentials = errors.New("AWS credentials not configured: run `aws configure`, set AWS_PROFILE, or provide environment credentials")

// ErrExpiredCredentials reports a credential source that needs refreshing.
var ErrExpiredCredentials = errors.New("AWS credentials expired: refresh your SSO session or rotate the access key")

// ClassifyCredentialError maps SDK credential failures onto the errors
// above so tool output tells the operator what to do instead of echoing an
// SDK stack.
func ClassifyCredentialError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ExpiredToken", "ExpiredTokenException", "RequestExpired":
			return fmt.Errorf("%w (%s)", ErrExpiredCredentials, apiErr.ErrorCode())
		case "InvalidClientTokenId", "UnrecognizedClientException", "SignatureDoesNotMatch":
			return fmt.Errorf("%w (%s)", ErrNoCredentials, apiErr.ErrorCode())
		case "AccessDenied", "AccessDeniedException":
			return fmt.Errorf("credentials lack permission for sts:GetCallerIdentity: %w", err)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "failed to retrieve credentials") ||
		strings.Contains(msg, "no EC2 IMDS role found") ||
		strings.Contains(msg, "failed to refresh cached credentials") {
		return fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	return fmt.Errorf("verify AWS credentials: %w", err)
}
