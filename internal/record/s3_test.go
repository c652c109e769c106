package record

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps record objects in memory, keyed by object key.
type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_ReadMissing(t *testing.T) {
	store := NewS3Store(newFakeS3(), "deploy-bucket", "")

	rec, err := store.Read(context.Background(), "prod")

	require.NoError(t, err)
	assert.Empty(t, rec)
}

func TestS3Store_ReadWrite(t *testing.T) {
	os.Unsetenv(EncryptionKeyEnvVar)
	api := newFakeS3()
	store := NewS3Store(api, "deploy-bucket", "records")
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "prod", sampleRecord()))

	// Objects land under the configured prefix.
	assert.Contains(t, api.objects, "records/prod.json")

	rec, err := store.Read(ctx, "prod")
	require.NoError(t, err)
	require.Len(t, rec, 1)
	assert.Equal(t, "app", rec["arn:aws:lambda:eu-west-1:111:function:app"].ResourceName)
}

func TestS3Store_NoPrefix(t *testing.T) {
	os.Unsetenv(EncryptionKeyEnvVar)
	api := newFakeS3()
	store := NewS3Store(api, "deploy-bucket", "")

	require.NoError(t, store.Write(context.Background(), "app-bundle/prod", sampleRecord()))

	assert.Contains(t, api.objects, "app-bundle/prod.json")
}

func TestS3Store_Delete(t *testing.T) {
	os.Unsetenv(EncryptionKeyEnvVar)
	api := newFakeS3()
	store := NewS3Store(api, "deploy-bucket", "records")
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "prod", sampleRecord()))
	require.NoError(t, store.Delete(ctx, "prod"))

	assert.Empty(t, api.objects)
}

func TestS3Store_EncryptedRoundTrip(t *testing.T) {
	os.Setenv(EncryptionKeyEnvVar, "record-store-test-key!!!!!!!!!!!")
	defer os.Unsetenv(EncryptionKeyEnvVar)

	api := newFakeS3()
	store := NewS3Store(api, "deploy-bucket", "records")
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "prod", sampleRecord()))
	assert.True(t, IsEncrypted(api.objects["records/prod.json"]))

	rec, err := store.Read(ctx, "prod")
	require.NoError(t, err)
	assert.Len(t, rec, 1)
}
