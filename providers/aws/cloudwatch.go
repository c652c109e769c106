package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// CloudWatchLogsAPI is the subset of the CloudWatch Logs client the
// facade uses.
type CloudWatchLogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	DeleteLogGroup(ctx context.Context, params *cloudwatchlogs.DeleteLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DeleteLogGroupOutput, error)
}

// LogsService wraps the CloudWatch Logs operations the engine needs to
// clean up after removed functions.
type LogsService struct {
	api CloudWatchLogsAPI
}

func NewLogsService(api CloudWatchLogsAPI) *LogsService {
	return &LogsService{api: api}
}

// LogGroupNames lists every log group name in the region.
func (s *LogsService) LogGroupNames(ctx context.Context) ([]string, error) {
	var names []string
	var token *string
	for {
		out, err := s.api.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{NextToken: token})
		if err != nil {
			return nil, fmt.Errorf("failed to describe log groups: %w", err)
		}
		for _, group := range out.LogGroups {
			names = append(names, awssdk.ToString(group.LogGroupName))
		}
		if out.NextToken == nil {
			break
		}
		token = out.NextToken
	}
	return names, nil
}

// DeleteLogGroup removes the named log group.
func (s *LogsService) DeleteLogGroup(ctx context.Context, name string) error {
	if _, err := s.api.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{LogGroupName: &name}); err != nil {
		return fmt.Errorf("failed to delete log group %s: %w", name, err)
	}
	return nil
}
