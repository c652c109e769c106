package engine

import (
	"context"
	"fmt"

	"github.com/picklr-io/relish/internal/logging"
	"github.com/picklr-io/relish/internal/meta"
	"github.com/picklr-io/relish/providers/aws"
)

// binding carries the identity of the function a trigger is wired to.
type binding struct {
	function    string
	functionARN string
	role        string
	params      meta.Params
}

type binderFunc func(ctx context.Context, b binding) error

// bindTrigger dispatches one event source declaration to its binder.
// The table is a closed set; an unknown tag fails instead of being
// skipped. Binders run under the transient-error retry policy because
// they chain provider mutations that can hit propagation hiccups.
func (e *Engine) bindTrigger(ctx context.Context, function, functionARN, role string, spec meta.TriggerSpec) error {
	binder, ok := e.binders[spec.Type]
	if !ok {
		return fmt.Errorf("function %s: %w %q", function, ErrUnknownTrigger, spec.Type)
	}
	b := binding{function: function, functionARN: functionARN, role: role, params: spec.Params}
	return RetryWithBackoff(ctx, e.cfg.Retry, func() error {
		return binder(ctx, b)
	}, IsTransientError)
}

// bindDynamoDB ensures the source table streams changes and maps the
// stream into the function.
func (e *Engine) bindDynamoDB(ctx context.Context, b binding) error {
	if err := validateParams(b.function, b.params, []string{"target_table", "batch_size"}); err != nil {
		return err
	}
	table := b.params.Str("target_table")

	enabled, err := e.clients.Tables.StreamEnabled(ctx, table)
	if err != nil {
		return err
	}
	if !enabled {
		if err := e.clients.Tables.EnableStream(ctx, table); err != nil {
			return err
		}
	}
	streamARN, err := e.clients.Tables.StreamARN(ctx, table)
	if err != nil {
		return err
	}
	return e.clients.Functions.AddEventSource(ctx, b.function, streamARN, b.params.Int32("batch_size"), "LATEST")
}

// bindSchedule attaches the function as a target of an existing
// schedule rule and lets the rule invoke it.
func (e *Engine) bindSchedule(ctx context.Context, b binding) error {
	if err := validateParams(b.function, b.params, []string{"target_rule"}); err != nil {
		return err
	}
	ruleName := b.params.Str("target_rule")

	rule, found, err := e.clients.Rules.Get(ctx, ruleName)
	if err != nil {
		return err
	}
	if !found {
		return &DependencyError{Resource: b.function, Dependency: fmt.Sprintf("rule %s", ruleName)}
	}
	if err := e.clients.Rules.AddFunctionTarget(ctx, ruleName, b.functionARN); err != nil {
		return err
	}
	return e.clients.Functions.AddInvocationPermission(ctx, b.function, "events.amazonaws.com", rule.ARN)
}

// bindS3 subscribes the function to bucket events. A missing bucket is
// logged and skipped; bucket wiring is best-effort by contract.
func (e *Engine) bindS3(ctx context.Context, b binding) error {
	if err := validateParams(b.function, b.params, []string{"target_bucket", "s3_events"}); err != nil {
		return err
	}
	bucket := b.params.Str("target_bucket")

	ok, err := e.clients.Buckets.Exists(ctx, bucket)
	if err != nil {
		return err
	}
	if !ok {
		logging.Error("cannot subscribe function to bucket events, bucket does not exist",
			"function", b.function, "bucket", bucket)
		return nil
	}
	if err := e.clients.Functions.AddInvocationPermission(ctx, b.function, "s3.amazonaws.com", ""); err != nil {
		return err
	}
	return e.clients.Buckets.AddFunctionNotification(ctx, bucket, b.functionARN, b.params.StrSlice("s3_events"))
}

// bindSNS subscribes the function to a topic, optionally in another
// region, and lets the topic invoke it.
func (e *Engine) bindSNS(ctx context.Context, b binding) error {
	if err := validateParams(b.function, b.params, []string{"target_topic"}); err != nil {
		return err
	}
	topic := b.params.Str("target_topic")

	topicARN, err := e.clients.Topics.SubscribeFunction(ctx, topic, b.functionARN, b.params.Str("region"))
	if err != nil {
		return err
	}
	return e.clients.Functions.AddInvocationPermission(ctx, b.function, "sns.amazonaws.com", topicARN)
}

// bindKinesis maps a stream into the function: wait out the settle
// delay when the stream is not active yet, let the execution role read
// the stream, wait for the policy to propagate, then register the
// mapping from the head of the stream.
func (e *Engine) bindKinesis(ctx context.Context, b binding) error {
	if err := validateParams(b.function, b.params, []string{"target_stream", "batch_size", "starting_position"}); err != nil {
		return err
	}
	streamName := b.params.Str("target_stream")

	stream, found, err := e.clients.Streams.Get(ctx, streamName)
	if err != nil {
		return err
	}
	if !found {
		return &DependencyError{Resource: b.function, Dependency: fmt.Sprintf("stream %s", streamName)}
	}
	if stream.Status != aws.StreamStatusActive {
		if err := e.sleep(ctx, e.cfg.Waits.StreamActivation); err != nil {
			return err
		}
	}

	policyName := fmt.Sprintf("%sKinesisTo%sLambda", streamName, b.function)
	doc := aws.PolicyDocument{
		Version: "2012-10-17",
		Statement: []aws.PolicyStatement{
			{
				Effect: "Allow",
				Action: []string{
					"kinesis:DescribeStream",
					"kinesis:GetRecords",
					"kinesis:GetShardIterator",
					"kinesis:ListStreams",
				},
				Resource: []string{stream.ARN},
			},
			{
				Effect:   "Allow",
				Action:   []string{"lambda:InvokeFunction"},
				Resource: []string{b.functionARN},
			},
		},
	}
	if err := e.clients.Roles.AttachInlinePolicy(ctx, b.role, policyName, doc); err != nil {
		return err
	}
	if err := e.sleep(ctx, e.cfg.Waits.PolicyPropagation); err != nil {
		return err
	}
	return e.clients.Functions.AddEventSource(ctx, b.function, stream.ARN,
		b.params.Int32("batch_size"), b.params.Str("starting_position"))
}

// bindSQS maps an existing queue into the function. A missing queue is
// logged and skipped, mirroring the bucket behavior.
func (e *Engine) bindSQS(ctx context.Context, b binding) error {
	if err := validateParams(b.function, b.params, []string{"target_queue", "batch_size"}); err != nil {
		return err
	}
	queue := b.params.Str("target_queue")

	_, found, err := e.clients.Queues.URL(ctx, queue, e.cfg.AccountID)
	if err != nil {
		return err
	}
	if !found {
		logging.Error("cannot map queue into function, queue does not exist",
			"function", b.function, "queue", queue)
		return nil
	}
	queueARN := fmt.Sprintf("arn:aws:sqs:%s:%s:%s", e.cfg.Region, e.cfg.AccountID, queue)
	return e.clients.Functions.AddEventSource(ctx, b.function, queueARN, b.params.Int32("batch_size"), "")
}
