package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client the facade uses.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetBucketNotificationConfiguration(ctx context.Context, params *s3.GetBucketNotificationConfigurationInput, optFns ...func(*s3.Options)) (*s3.GetBucketNotificationConfigurationOutput, error)
	PutBucketNotificationConfiguration(ctx context.Context, params *s3.PutBucketNotificationConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketNotificationConfigurationOutput, error)
}

// BucketService wraps the S3 operations the engine needs: artifact
// existence checks and bucket notification wiring.
type BucketService struct {
	api S3API
}

func NewBucketService(api S3API) *BucketService {
	return &BucketService{api: api}
}

// Exists reports whether the bucket exists and is accessible.
func (s *BucketService) Exists(ctx context.Context, bucket string) (bool, error) {
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &bucket}); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head bucket %s: %w", bucket, err)
	}
	return true, nil
}

// ObjectExists reports whether the object exists in the bucket.
func (s *BucketService) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object s3://%s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// AddFunctionNotification appends a notification that invokes the
// function for the given bucket events, preserving the configurations
// already present on the bucket.
func (s *BucketService) AddFunctionNotification(ctx context.Context, bucket, functionARN string, events []string) error {
	current, err := s.api.GetBucketNotificationConfiguration(ctx, &s3.GetBucketNotificationConfigurationInput{Bucket: &bucket})
	if err != nil {
		return fmt.Errorf("failed to get notification configuration for %s: %w", bucket, err)
	}

	eventTypes := make([]types.Event, 0, len(events))
	for _, e := range events {
		eventTypes = append(eventTypes, types.Event(e))
	}
	id := uuid.NewString()
	cfg := &types.NotificationConfiguration{
		LambdaFunctionConfigurations: append(current.LambdaFunctionConfigurations, types.LambdaFunctionConfiguration{
			Id:                &id,
			LambdaFunctionArn: &functionARN,
			Events:            eventTypes,
		}),
		QueueConfigurations:      current.QueueConfigurations,
		TopicConfigurations:      current.TopicConfigurations,
		EventBridgeConfiguration: current.EventBridgeConfiguration,
	}

	_, err = s.api.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket:                    &bucket,
		NotificationConfiguration: cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to put notification configuration for %s: %w", bucket, err)
	}
	return nil
}
