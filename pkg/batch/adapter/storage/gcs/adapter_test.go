package gcs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	storage "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage"
	storageconfig "github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/config"
	"github.com/kangwooc/spring-batch/pkg/batch/adapter/storage/gcs"
)

func TestGCSAdapter_RequiresBucket(t *testing.T) {
	_, err := gcs.NewGCSAdapter(context.Background(), storageconfig.StorageConfig{Type: "gcs"}, "archive")
	assert.ErrorContains(t, err, "bucket_name")
}

func TestGCSAdapter_RejectsAppend(t *testing.T) {
	conn, err := gcs.NewGCSAdapter(context.Background(),
		storageconfig.StorageConfig{Type: "gcs", BucketName: "death-notes"}, "archive",
		option.WithoutAuthentication())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Create(context.Background(), "death_note_001.txt", true)
	assert.ErrorIs(t, err, storage.ErrAppendNotSupported)
	assert.Equal(t, gcs.ProviderType, conn.Type())
}
