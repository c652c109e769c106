package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of the SQS client the facade uses.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

// QueueService wraps the SQS operations the engine needs.
type QueueService struct {
	api SQSAPI
}

func NewQueueService(api SQSAPI) *QueueService {
	return &QueueService{api: api}
}

// URL resolves the queue URL for name, optionally in another account.
// A missing queue is reported as found=false, not as an error.
func (s *QueueService) URL(ctx context.Context, name, ownerAccountID string) (string, bool, error) {
	input := &sqs.GetQueueUrlInput{QueueName: &name}
	if ownerAccountID != "" {
		input.QueueOwnerAWSAccountId = &ownerAccountID
	}
	out, err := s.api.GetQueueUrl(ctx, input)
	if err != nil {
		var notExist *sqstypes.QueueDoesNotExist
		if errors.As(err, &notExist) || IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get queue url for %s: %w", name, err)
	}
	return awssdk.ToString(out.QueueUrl), true, nil
}

// SNSAPI is the subset of the SNS client the facade uses.
type SNSAPI interface {
	CreateTopic(ctx context.Context, params *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
	Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
}

// TopicService wraps the SNS operations the engine needs.
type TopicService struct {
	api SNSAPI
}

func NewTopicService(api SNSAPI) *TopicService {
	return &TopicService{api: api}
}

// SubscribeFunction subscribes the function to the named topic and
// returns the topic ARN. CreateTopic is idempotent, so an existing
// topic is resolved rather than duplicated. A non-empty region
// overrides the client region for cross-region topics.
func (s *TopicService) SubscribeFunction(ctx context.Context, topic, functionARN, region string) (string, error) {
	var optFns []func(*sns.Options)
	if region != "" {
		optFns = append(optFns, func(o *sns.Options) { o.Region = region })
	}

	created, err := s.api.CreateTopic(ctx, &sns.CreateTopicInput{Name: &topic}, optFns...)
	if err != nil {
		return "", fmt.Errorf("failed to resolve topic %s: %w", topic, err)
	}

	protocol := "lambda"
	_, err = s.api.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: created.TopicArn,
		Protocol: &protocol,
		Endpoint: &functionARN,
	}, optFns...)
	if err != nil {
		return "", fmt.Errorf("failed to subscribe %s to topic %s: %w", functionARN, topic, err)
	}
	return awssdk.ToString(created.TopicArn), nil
}
