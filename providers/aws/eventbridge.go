package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
)

// EventBridgeAPI is the subset of the EventBridge client the facade
// uses.
type EventBridgeAPI interface {
	DescribeRule(ctx context.Context, params *eventbridge.DescribeRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.DescribeRuleOutput, error)
	PutRule(ctx context.Context, params *eventbridge.PutRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error)
	PutTargets(ctx context.Context, params *eventbridge.PutTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error)
	ListTargetsByRule(ctx context.Context, params *eventbridge.ListTargetsByRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error)
	RemoveTargets(ctx context.Context, params *eventbridge.RemoveTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error)
	DeleteRule(ctx context.Context, params *eventbridge.DeleteRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error)
}

// RuleService wraps the EventBridge operations the engine needs for
// schedule rules.
type RuleService struct {
	api EventBridgeAPI
}

func NewRuleService(api EventBridgeAPI) *RuleService {
	return &RuleService{api: api}
}

// RuleDescription is the provider's view of a rule.
type RuleDescription struct {
	ARN         string
	Description map[string]any
}

// Get looks up a rule by name. A missing rule is reported as
// found=false, not as an error.
func (s *RuleService) Get(ctx context.Context, name string) (*RuleDescription, bool, error) {
	out, err := s.api.DescribeRule(ctx, &eventbridge.DescribeRuleInput{Name: &name})
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to describe rule %s: %w", name, err)
	}

	desc := map[string]any{
		"Name":               awssdk.ToString(out.Name),
		"ScheduleExpression": awssdk.ToString(out.ScheduleExpression),
		"State":              string(out.State),
	}
	return &RuleDescription{
		ARN:         awssdk.ToString(out.Arn),
		Description: desc,
	}, true, nil
}

// Put creates or updates a rule firing on the given schedule
// expression.
func (s *RuleService) Put(ctx context.Context, name, scheduleExpression string) error {
	_, err := s.api.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               &name,
		ScheduleExpression: &scheduleExpression,
	})
	if err != nil {
		return fmt.Errorf("failed to put rule %s: %w", name, err)
	}
	return nil
}

// AddFunctionTarget attaches the function as a target of the rule.
func (s *RuleService) AddFunctionTarget(ctx context.Context, rule, functionARN string) error {
	id := uuid.NewString()
	_, err := s.api.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule:    &rule,
		Targets: []types.Target{{Id: &id, Arn: &functionARN}},
	})
	if err != nil {
		return fmt.Errorf("failed to add target to rule %s: %w", rule, err)
	}
	return nil
}

// Delete removes the rule's targets and then the rule itself; a rule
// with registered targets cannot be deleted directly.
func (s *RuleService) Delete(ctx context.Context, name string) error {
	targets, err := s.api.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{Rule: &name})
	if err != nil {
		return fmt.Errorf("failed to list targets for rule %s: %w", name, err)
	}
	if len(targets.Targets) > 0 {
		ids := make([]string, 0, len(targets.Targets))
		for _, t := range targets.Targets {
			ids = append(ids, awssdk.ToString(t.Id))
		}
		if _, err := s.api.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{Rule: &name, Ids: ids}); err != nil {
			return fmt.Errorf("failed to remove targets for rule %s: %w", name, err)
		}
	}
	if _, err := s.api.DeleteRule(ctx, &eventbridge.DeleteRuleInput{Name: &name}); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", name, err)
	}
	return nil
}
