package storage

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/careteam/internal/config"
)

func TestMapS3Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied", Message: "policy"}, ErrForbidden},
		{"bad key id", &smithy.GenericAPIError{Code: "InvalidAccessKeyId"}, ErrForbidden},
		{"no such key code", &smithy.GenericAPIError{Code: "NoSuchKey"}, ErrNotFound},
		{"typed no such key", &types.NoSuchKey{}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapS3Error(tt.err), tt.want)
		})
	}

	other := errors.New("dial tcp: timeout")
	assert.Equal(t, other, mapS3Error(other))
}

func TestS3Store_SignedURL(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", t.TempDir()+"/none")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", t.TempDir()+"/none")

	s, err := NewS3Store(context.Background(), config.StorageConfig{
		Bucket:          "message-attachments",
		Region:          "eu-central-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	raw, err := s.SignedURL(context.Background(), "u/1-scan.pdf", URLOptions{
		TTL:         time.Hour,
		Disposition: DispositionPreview,
		FileName:    "scan.pdf",
	})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/message-attachments/u/1-scan.pdf", u.Path)
	q := u.Query()
	assert.Equal(t, "3600", q.Get("X-Amz-Expires"))
	assert.Equal(t, "inline; filename=scan.pdf", q.Get("response-content-disposition"))

	_, err = s.SignedURL(context.Background(), "k", URLOptions{})
	assert.Error(t, err)
}
