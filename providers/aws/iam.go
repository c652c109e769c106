package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// IAMAPI is the subset of the IAM client the facade uses.
type IAMAPI interface {
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	PutRolePolicy(ctx context.Context, params *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
}

// RoleService wraps the IAM operations the engine needs.
type RoleService struct {
	api IAMAPI
}

func NewRoleService(api IAMAPI) *RoleService {
	return &RoleService{api: api}
}

// PolicyDocument is an inline IAM policy document.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

// PolicyStatement is one statement of a policy document.
type PolicyStatement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// RoleARN resolves the ARN of the named role. A missing role is
// reported as found=false, not as an error.
func (s *RoleService) RoleARN(ctx context.Context, name string) (string, bool, error) {
	out, err := s.api.GetRole(ctx, &iam.GetRoleInput{RoleName: &name})
	if err != nil {
		var notFound *types.NoSuchEntityException
		if errors.As(err, &notFound) || IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get role %s: %w", name, err)
	}
	return awssdk.ToString(out.Role.Arn), true, nil
}

// AttachInlinePolicy puts an inline policy document on the role.
func (s *RoleService) AttachInlinePolicy(ctx context.Context, role, policyName string, doc PolicyDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal policy %s: %w", policyName, err)
	}
	document := string(body)
	_, err = s.api.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       &role,
		PolicyName:     &policyName,
		PolicyDocument: &document,
	})
	if err != nil {
		return fmt.Errorf("failed to put policy %s on role %s: %w", policyName, role, err)
	}
	return nil
}
