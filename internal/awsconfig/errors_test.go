package awsconfig

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCredentialErrorNil(t *testing.T) {
	require.NoError(t, ClassifyCredentialError(nil))
}

func TestClassifyCredentialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "expired token",
			err:  &smithy.GenericAPIError{Code: "ExpiredToken", Message: "token expired"},
			want: ErrExpiredCredentials,
		},
		{
			name: "invalid token id",
			err:  &smithy.GenericAPIError{Code: "InvalidClientTokenId", Message: "bad key"},
			want: ErrNoCredentials,
		},
		{
			name: "missing credential chain",
			err:  fmt.Errorf("operation error STS: GetCallerIdentity, failed to retrieve credentials"),
			want: ErrNoCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCredentialError(tt.err)
			require.Error(t, got)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestClassifyCredentialErrorPassthrough(t *testing.T) {
	got := ClassifyCredentialError(errors.New("connection reset"))
	require.Error(t, got)
	assert.False(t, errors.Is(got, ErrNoCredentials))
	assert.Contains(t, got.Error(), "connection reset")
}
