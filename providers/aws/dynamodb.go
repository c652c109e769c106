package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client the facade uses.
type DynamoDBAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	UpdateTable(ctx context.Context, params *dynamodb.UpdateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTableOutput, error)
}

// TableService wraps the DynamoDB operations the engine needs to wire
// table change streams into functions.
type TableService struct {
	api DynamoDBAPI
}

func NewTableService(api DynamoDBAPI) *TableService {
	return &TableService{api: api}
}

// StreamEnabled reports whether the table's change stream is turned on.
func (s *TableService) StreamEnabled(ctx context.Context, table string) (bool, error) {
	out, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &table})
	if err != nil {
		return false, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	spec := out.Table.StreamSpecification
	return spec != nil && awssdk.ToBool(spec.StreamEnabled), nil
}

// EnableStream turns on the table's change stream with new-and-old
// image records.
func (s *TableService) EnableStream(ctx context.Context, table string) error {
	enabled := true
	_, err := s.api.UpdateTable(ctx, &dynamodb.UpdateTableInput{
		TableName: &table,
		StreamSpecification: &types.StreamSpecification{
			StreamEnabled:  &enabled,
			StreamViewType: types.StreamViewTypeNewAndOldImages,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable stream on table %s: %w", table, err)
	}
	return nil
}

// StreamARN returns the ARN of the table's latest change stream.
func (s *TableService) StreamARN(ctx context.Context, table string) (string, error) {
	out, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &table})
	if err != nil {
		return "", fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	return awssdk.ToString(out.Table.LatestStreamArn), nil
}
