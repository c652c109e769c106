// Package aws wraps the AWS SDK service clients behind the narrow
// facades the deployment engine consumes. Each facade takes its client
// as an interface, so tests substitute fakes without touching the
// network, and nothing in the package holds global state.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Config carries the account scope the facades operate in.
type Config struct {
	Region    string
	AccountID string
	Profile   string
}

// Clients bundles the service facades for one configured account and
// region.
type Clients struct {
	Functions *FunctionService
	Streams   *StreamService
	Tables    *TableService
	Queues    *QueueService
	Topics    *TopicService
	Buckets   *BucketService
	Rules     *RuleService
	Roles     *RoleService
	Logs      *LogsService
	RestApis  *RestApiService

	// S3 is the raw object client, for callers that read and write
	// whole objects (deployment record storage).
	S3 *s3.Client
}

// NewClients resolves credentials through the default AWS configuration
// chain and constructs the service facades.
func NewClients(ctx context.Context, cfg Config) (*Clients, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	sdkCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &Clients{
		Functions: NewFunctionService(lambda.NewFromConfig(sdkCfg)),
		Streams:   NewStreamService(kinesis.NewFromConfig(sdkCfg)),
		Tables:    NewTableService(dynamodb.NewFromConfig(sdkCfg)),
		Queues:    NewQueueService(sqs.NewFromConfig(sdkCfg)),
		Topics:    NewTopicService(sns.NewFromConfig(sdkCfg)),
		Buckets:   NewBucketService(s3.NewFromConfig(sdkCfg)),
		Rules:     NewRuleService(eventbridge.NewFromConfig(sdkCfg)),
		Roles:     NewRoleService(iam.NewFromConfig(sdkCfg)),
		Logs:      NewLogsService(cloudwatchlogs.NewFromConfig(sdkCfg)),
		RestApis:  NewRestApiService(apigateway.NewFromConfig(sdkCfg), cfg.Region),
		S3:        s3.NewFromConfig(sdkCfg),
	}, nil
}
