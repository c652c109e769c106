package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
)

// Stream statuses reported by DescribeStream that the engine reacts to.
const (
	StreamStatusActive   = "ACTIVE"
	StreamStatusDeleting = "DELETING"
)

// KinesisAPI is the subset of the Kinesis client the facade uses.
type KinesisAPI interface {
	DescribeStream(ctx context.Context, params *kinesis.DescribeStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.DescribeStreamOutput, error)
	CreateStream(ctx context.Context, params *kinesis.CreateStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.CreateStreamOutput, error)
	DeleteStream(ctx context.Context, params *kinesis.DeleteStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.DeleteStreamOutput, error)
}

// StreamService wraps the Kinesis operations the engine needs.
type StreamService struct {
	api KinesisAPI
}

func NewStreamService(api KinesisAPI) *StreamService {
	return &StreamService{api: api}
}

// StreamDescription is the provider's view of a stream. Status is split
// out because the engine branches on it.
type StreamDescription struct {
	ARN         string
	Status      string
	Description map[string]any
}

// Get looks up a stream by name. A missing stream is reported as
// found=false, not as an error.
func (s *StreamService) Get(ctx context.Context, name string) (*StreamDescription, bool, error) {
	out, err := s.api.DescribeStream(ctx, &kinesis.DescribeStreamInput{StreamName: &name})
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to describe stream %s: %w", name, err)
	}

	d := out.StreamDescription
	desc := map[string]any{
		"StreamName":           awssdk.ToString(d.StreamName),
		"StreamStatus":         string(d.StreamStatus),
		"Shards":               len(d.Shards),
		"RetentionPeriodHours": awssdk.ToInt32(d.RetentionPeriodHours),
	}
	return &StreamDescription{
		ARN:         awssdk.ToString(d.StreamARN),
		Status:      string(d.StreamStatus),
		Description: desc,
	}, true, nil
}

// Create provisions a stream with the given shard count.
func (s *StreamService) Create(ctx context.Context, name string, shardCount int32) error {
	_, err := s.api.CreateStream(ctx, &kinesis.CreateStreamInput{
		StreamName: &name,
		ShardCount: &shardCount,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	return nil
}

// Delete removes the stream along with any registered consumers.
// NotFound is returned as-is so callers can decide whether a missing
// stream matters.
func (s *StreamService) Delete(ctx context.Context, name string) error {
	_, err := s.api.DeleteStream(ctx, &kinesis.DeleteStreamInput{
		StreamName:              &name,
		EnforceConsumerDeletion: awssdk.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete stream %s: %w", name, err)
	}
	return nil
}
