package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://exports/runs/2024/items.csv")
	require.NoError(t, err)
	assert.Equal(t, "exports", bucket)
	assert.Equal(t, "runs/2024/items.csv", key)

	for _, bad := range []string{"s3://exports", "s3://exports/", "s3:///items.csv", "/tmp/items.csv", "s3://exports/dir/"} {
		_, _, err := ParseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsS3URL(t *testing.T) {
	assert.True(t, IsS3URL("S3://bucket/key"))
	assert.False(t, IsS3URL("out/items.csv"))
}

func TestNewS3Uploader_RequiresCredentials(t *testing.T) {
	_, err := NewS3Uploader(S3Config{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewS3Uploader(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")

	u, err := NewS3Uploader(S3Config{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", u.region)
}
