package aws

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/google/uuid"
)

// LambdaAPI is the subset of the Lambda client the facade uses.
type LambdaAPI interface {
	GetFunction(ctx context.Context, params *lambda.GetFunctionInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
	DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
	PutFunctionConcurrency(ctx context.Context, params *lambda.PutFunctionConcurrencyInput, optFns ...func(*lambda.Options)) (*lambda.PutFunctionConcurrencyOutput, error)
	GetAccountSettings(ctx context.Context, params *lambda.GetAccountSettingsInput, optFns ...func(*lambda.Options)) (*lambda.GetAccountSettingsOutput, error)
	CreateEventSourceMapping(ctx context.Context, params *lambda.CreateEventSourceMappingInput, optFns ...func(*lambda.Options)) (*lambda.CreateEventSourceMappingOutput, error)
	ListEventSourceMappings(ctx context.Context, params *lambda.ListEventSourceMappingsInput, optFns ...func(*lambda.Options)) (*lambda.ListEventSourceMappingsOutput, error)
	DeleteEventSourceMapping(ctx context.Context, params *lambda.DeleteEventSourceMappingInput, optFns ...func(*lambda.Options)) (*lambda.DeleteEventSourceMappingOutput, error)
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
}

// FunctionService wraps the Lambda operations the engine needs.
type FunctionService struct {
	api LambdaAPI
}

func NewFunctionService(api LambdaAPI) *FunctionService {
	return &FunctionService{api: api}
}

// FunctionDescription is the provider's view of a deployed function.
// The ARN is split out because record entries are keyed by it;
// Description holds the remaining configuration snapshot.
type FunctionDescription struct {
	ARN         string
	Description map[string]any
}

// CreateFunctionInput declares a function whose code artifact already
// sits in the deploy bucket.
type CreateFunctionInput struct {
	Name             string
	Handler          string
	Runtime          string
	RoleARN          string
	S3Bucket         string
	S3Key            string
	MemoryMB         int32
	TimeoutSec       int32
	EnvVars          map[string]string
	SubnetIDs        []string
	SecurityGroupIDs []string
	DeadLetterARN    string
	TracingMode      string
}

// Get looks up a function by name. A missing function is reported as
// found=false, not as an error.
func (s *FunctionService) Get(ctx context.Context, name string) (*FunctionDescription, bool, error) {
	out, err := s.api.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: &name})
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get function %s: %w", name, err)
	}

	cfg := out.Configuration
	desc := map[string]any{
		"FunctionName": awssdk.ToString(cfg.FunctionName),
		"Runtime":      string(cfg.Runtime),
		"Role":         awssdk.ToString(cfg.Role),
		"Handler":      awssdk.ToString(cfg.Handler),
		"MemorySize":   awssdk.ToInt32(cfg.MemorySize),
		"Timeout":      awssdk.ToInt32(cfg.Timeout),
		"State":        string(cfg.State),
		"Version":      awssdk.ToString(cfg.Version),
		"LastModified": awssdk.ToString(cfg.LastModified),
	}
	return &FunctionDescription{
		ARN:         awssdk.ToString(cfg.FunctionArn),
		Description: desc,
	}, true, nil
}

// Create provisions the function. The caller is expected to have
// verified that the code artifact exists.
func (s *FunctionService) Create(ctx context.Context, in CreateFunctionInput) error {
	input := &lambda.CreateFunctionInput{
		FunctionName: &in.Name,
		Runtime:      types.Runtime(in.Runtime),
		Handler:      &in.Handler,
		Role:         &in.RoleARN,
		Code: &types.FunctionCode{
			S3Bucket: &in.S3Bucket,
			S3Key:    &in.S3Key,
		},
		MemorySize: &in.MemoryMB,
		Timeout:    &in.TimeoutSec,
	}
	if len(in.EnvVars) > 0 {
		input.Environment = &types.Environment{Variables: in.EnvVars}
	}
	if len(in.SubnetIDs) > 0 {
		input.VpcConfig = &types.VpcConfig{
			SubnetIds:        in.SubnetIDs,
			SecurityGroupIds: in.SecurityGroupIDs,
		}
	}
	if in.DeadLetterARN != "" {
		input.DeadLetterConfig = &types.DeadLetterConfig{TargetArn: &in.DeadLetterARN}
	}
	if in.TracingMode != "" {
		input.TracingConfig = &types.TracingConfig{Mode: types.TracingMode(in.TracingMode)}
	}

	if _, err := s.api.CreateFunction(ctx, input); err != nil {
		return fmt.Errorf("failed to create function %s: %w", in.Name, err)
	}
	return nil
}

// Delete removes the function. NotFound is returned as-is so callers
// can decide whether a missing function matters.
func (s *FunctionService) Delete(ctx context.Context, name string) error {
	if _, err := s.api.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: &name}); err != nil {
		return fmt.Errorf("failed to delete function %s: %w", name, err)
	}
	return nil
}

// SetReservedConcurrency reserves concurrent executions for the
// function out of the account pool.
func (s *FunctionService) SetReservedConcurrency(ctx context.Context, name string, executions int32) error {
	_, err := s.api.PutFunctionConcurrency(ctx, &lambda.PutFunctionConcurrencyInput{
		FunctionName:                 &name,
		ReservedConcurrentExecutions: &executions,
	})
	if err != nil {
		return fmt.Errorf("failed to set reserved concurrency for %s: %w", name, err)
	}
	return nil
}

// UnreservedConcurrency returns the account's remaining unreserved
// concurrent execution headroom.
func (s *FunctionService) UnreservedConcurrency(ctx context.Context) (int32, error) {
	out, err := s.api.GetAccountSettings(ctx, &lambda.GetAccountSettingsInput{})
	if err != nil {
		return 0, fmt.Errorf("failed to get account settings: %w", err)
	}
	if out.AccountLimit == nil || out.AccountLimit.UnreservedConcurrentExecutions == nil {
		return 0, nil
	}
	return *out.AccountLimit.UnreservedConcurrentExecutions, nil
}

// AddEventSource creates an event source mapping from sourceARN to the
// function. startPosition applies to stream sources only; queue sources
// pass "".
func (s *FunctionService) AddEventSource(ctx context.Context, function, sourceARN string, batchSize int32, startPosition string) error {
	input := &lambda.CreateEventSourceMappingInput{
		FunctionName:   &function,
		EventSourceArn: &sourceARN,
	}
	if batchSize > 0 {
		input.BatchSize = &batchSize
	}
	if startPosition != "" {
		input.StartingPosition = types.EventSourcePosition(strings.ToUpper(startPosition))
	}
	if _, err := s.api.CreateEventSourceMapping(ctx, input); err != nil {
		return fmt.Errorf("failed to map event source %s to %s: %w", sourceARN, function, err)
	}
	return nil
}

// RemoveEventSources deletes every event source mapping registered for
// the function. Mappings already gone are skipped.
func (s *FunctionService) RemoveEventSources(ctx context.Context, function string) error {
	var marker *string
	for {
		out, err := s.api.ListEventSourceMappings(ctx, &lambda.ListEventSourceMappingsInput{
			FunctionName: &function,
			Marker:       marker,
		})
		if err != nil {
			return fmt.Errorf("failed to list event source mappings for %s: %w", function, err)
		}
		for _, mapping := range out.EventSourceMappings {
			_, err := s.api.DeleteEventSourceMapping(ctx, &lambda.DeleteEventSourceMappingInput{UUID: mapping.UUID})
			if err != nil && !IsNotFound(err) {
				return fmt.Errorf("failed to delete event source mapping %s: %w", awssdk.ToString(mapping.UUID), err)
			}
		}
		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return nil
}

// AddInvocationPermission lets principal invoke the function. A
// non-empty sourceARN narrows the grant to that source.
func (s *FunctionService) AddInvocationPermission(ctx context.Context, function, principal, sourceARN string) error {
	action := "lambda:InvokeFunction"
	statementID := uuid.NewString()
	input := &lambda.AddPermissionInput{
		FunctionName: &function,
		StatementId:  &statementID,
		Action:       &action,
		Principal:    &principal,
	}
	if sourceARN != "" {
		input.SourceArn = &sourceARN
	}
	if _, err := s.api.AddPermission(ctx, input); err != nil {
		return fmt.Errorf("failed to add invocation permission for %s on %s: %w", principal, function, err)
	}
	return nil
}
