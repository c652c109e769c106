package engine

import (
	"context"

	"github.com/picklr-io/relish/providers/aws"
)

// The engine reaches the cloud only through the interfaces below. The
// aws package's services satisfy them; tests substitute fakes.

// FunctionClient provisions functions and their wiring.
type FunctionClient interface {
	Get(ctx context.Context, name string) (*aws.FunctionDescription, bool, error)
	Create(ctx context.Context, in aws.CreateFunctionInput) error
	Delete(ctx context.Context, name string) error
	SetReservedConcurrency(ctx context.Context, name string, executions int32) error
	UnreservedConcurrency(ctx context.Context) (int32, error)
	AddEventSource(ctx context.Context, function, sourceARN string, batchSize int32, startPosition string) error
	RemoveEventSources(ctx context.Context, function string) error
	AddInvocationPermission(ctx context.Context, function, principal, sourceARN string) error
}

// StreamClient provisions data streams.
type StreamClient interface {
	Get(ctx context.Context, name string) (*aws.StreamDescription, bool, error)
	Create(ctx context.Context, name string, shardCount int32) error
	Delete(ctx context.Context, name string) error
}

// TableClient wires table change streams.
type TableClient interface {
	StreamEnabled(ctx context.Context, table string) (bool, error)
	EnableStream(ctx context.Context, table string) error
	StreamARN(ctx context.Context, table string) (string, error)
}

// QueueClient resolves queues declared as event sources.
type QueueClient interface {
	URL(ctx context.Context, name, ownerAccountID string) (string, bool, error)
}

// TopicClient subscribes functions to notification topics.
type TopicClient interface {
	SubscribeFunction(ctx context.Context, topic, functionARN, region string) (string, error)
}

// BucketClient checks artifacts and wires bucket notifications.
type BucketClient interface {
	Exists(ctx context.Context, bucket string) (bool, error)
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	AddFunctionNotification(ctx context.Context, bucket, functionARN string, events []string) error
}

// RuleClient provisions schedule rules and their targets.
type RuleClient interface {
	Get(ctx context.Context, name string) (*aws.RuleDescription, bool, error)
	Put(ctx context.Context, name, scheduleExpression string) error
	AddFunctionTarget(ctx context.Context, rule, functionARN string) error
	Delete(ctx context.Context, name string) error
}

// RoleClient resolves execution roles and attaches their policies.
type RoleClient interface {
	RoleARN(ctx context.Context, name string) (string, bool, error)
	AttachInlinePolicy(ctx context.Context, role, policyName string, doc aws.PolicyDocument) error
}

// LogsClient cleans up log groups left behind by removed functions.
type LogsClient interface {
	LogGroupNames(ctx context.Context) ([]string, error)
	DeleteLogGroup(ctx context.Context, name string) error
}

// RestApiClient provisions REST APIs.
type RestApiClient interface {
	Create(ctx context.Context, name string) (string, error)
	Get(ctx context.Context, id string) (*aws.RestApiDescription, bool, error)
	RootResourceID(ctx context.Context, apiID string) (string, error)
	CreateResource(ctx context.Context, apiID, parentID, pathPart string) (string, error)
	PutMethod(ctx context.Context, apiID, resourceID, httpMethod, authorizationType string) error
	PutLambdaIntegration(ctx context.Context, apiID, resourceID, httpMethod, functionARN string) error
	PutMockIntegration(ctx context.Context, apiID, resourceID, httpMethod string) error
	PutMethodResponse(ctx context.Context, apiID, resourceID, httpMethod, statusCode string) error
	Deploy(ctx context.Context, apiID, stage string) error
	Delete(ctx context.Context, id string) error
}

// Clients bundles everything the engine needs from the provider.
type Clients struct {
	Functions FunctionClient
	Streams   StreamClient
	Tables    TableClient
	Queues    QueueClient
	Topics    TopicClient
	Buckets   BucketClient
	Rules     RuleClient
	Roles     RoleClient
	Logs      LogsClient
	RestApis  RestApiClient
}

// FromAWS adapts the provider's client bundle to the engine's
// interfaces.
func FromAWS(c *aws.Clients) Clients {
	return Clients{
		Functions: c.Functions,
		Streams:   c.Streams,
		Tables:    c.Tables,
		Queues:    c.Queues,
		Topics:    c.Topics,
		Buckets:   c.Buckets,
		Rules:     c.Rules,
		Roles:     c.Roles,
		Logs:      c.Logs,
		RestApis:  c.RestApis,
	}
}
