package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
)

// APIGatewayAPI is the subset of the API Gateway client the facade
// uses.
type APIGatewayAPI interface {
	CreateRestApi(ctx context.Context, params *apigateway.CreateRestApiInput, optFns ...func(*apigateway.Options)) (*apigateway.CreateRestApiOutput, error)
	GetRestApi(ctx context.Context, params *apigateway.GetRestApiInput, optFns ...func(*apigateway.Options)) (*apigateway.GetRestApiOutput, error)
	GetResources(ctx context.Context, params *apigateway.GetResourcesInput, optFns ...func(*apigateway.Options)) (*apigateway.GetResourcesOutput, error)
	CreateResource(ctx context.Context, params *apigateway.CreateResourceInput, optFns ...func(*apigateway.Options)) (*apigateway.CreateResourceOutput, error)
	PutMethod(ctx context.Context, params *apigateway.PutMethodInput, optFns ...func(*apigateway.Options)) (*apigateway.PutMethodOutput, error)
	PutIntegration(ctx context.Context, params *apigateway.PutIntegrationInput, optFns ...func(*apigateway.Options)) (*apigateway.PutIntegrationOutput, error)
	PutMethodResponse(ctx context.Context, params *apigateway.PutMethodResponseInput, optFns ...func(*apigateway.Options)) (*apigateway.PutMethodResponseOutput, error)
	CreateDeployment(ctx context.Context, params *apigateway.CreateDeploymentInput, optFns ...func(*apigateway.Options)) (*apigateway.CreateDeploymentOutput, error)
	DeleteRestApi(ctx context.Context, params *apigateway.DeleteRestApiInput, optFns ...func(*apigateway.Options)) (*apigateway.DeleteRestApiOutput, error)
}

// RestApiService wraps the API Gateway operations the engine needs.
// The region feeds the Lambda invocation URI of proxy integrations.
type RestApiService struct {
	api    APIGatewayAPI
	region string
}

func NewRestApiService(api APIGatewayAPI, region string) *RestApiService {
	return &RestApiService{api: api, region: region}
}

// RestApiDescription is the provider's view of a REST API.
type RestApiDescription struct {
	ID          string
	Description map[string]any
}

// Create provisions a fresh REST API and returns its id.
func (s *RestApiService) Create(ctx context.Context, name string) (string, error) {
	out, err := s.api.CreateRestApi(ctx, &apigateway.CreateRestApiInput{Name: &name})
	if err != nil {
		return "", fmt.Errorf("failed to create rest api %s: %w", name, err)
	}
	return awssdk.ToString(out.Id), nil
}

// Get looks up a REST API by id. A missing API is reported as
// found=false, not as an error.
func (s *RestApiService) Get(ctx context.Context, id string) (*RestApiDescription, bool, error) {
	out, err := s.api.GetRestApi(ctx, &apigateway.GetRestApiInput{RestApiId: &id})
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get rest api %s: %w", id, err)
	}

	desc := map[string]any{
		"Id":   awssdk.ToString(out.Id),
		"Name": awssdk.ToString(out.Name),
	}
	if out.CreatedDate != nil {
		desc["CreatedDate"] = out.CreatedDate.UTC().Format(time.RFC3339)
	}
	return &RestApiDescription{
		ID:          awssdk.ToString(out.Id),
		Description: desc,
	}, true, nil
}

// RootResourceID returns the id of the API's root ("/") resource.
func (s *RestApiService) RootResourceID(ctx context.Context, apiID string) (string, error) {
	limit := int32(500)
	out, err := s.api.GetResources(ctx, &apigateway.GetResourcesInput{RestApiId: &apiID, Limit: &limit})
	if err != nil {
		return "", fmt.Errorf("failed to get resources of rest api %s: %w", apiID, err)
	}
	for _, r := range out.Items {
		if awssdk.ToString(r.Path) == "/" {
			return awssdk.ToString(r.Id), nil
		}
	}
	return "", fmt.Errorf("rest api %s has no root resource", apiID)
}

// CreateResource adds a child path part under parent and returns the
// new resource id.
func (s *RestApiService) CreateResource(ctx context.Context, apiID, parentID, pathPart string) (string, error) {
	out, err := s.api.CreateResource(ctx, &apigateway.CreateResourceInput{
		RestApiId: &apiID,
		ParentId:  &parentID,
		PathPart:  &pathPart,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create resource %s on rest api %s: %w", pathPart, apiID, err)
	}
	return awssdk.ToString(out.Id), nil
}

// PutMethod declares an HTTP method on the resource.
func (s *RestApiService) PutMethod(ctx context.Context, apiID, resourceID, httpMethod, authorizationType string) error {
	if authorizationType == "" {
		authorizationType = "NONE"
	}
	_, err := s.api.PutMethod(ctx, &apigateway.PutMethodInput{
		RestApiId:         &apiID,
		ResourceId:        &resourceID,
		HttpMethod:        &httpMethod,
		AuthorizationType: &authorizationType,
	})
	if err != nil {
		return fmt.Errorf("failed to put method %s on resource %s: %w", httpMethod, resourceID, err)
	}
	return nil
}

// PutLambdaIntegration wires the method to a function through the
// standard proxy invocation path. Lambda integrations always POST to
// the invocation URI regardless of the client-facing method.
func (s *RestApiService) PutLambdaIntegration(ctx context.Context, apiID, resourceID, httpMethod, functionARN string) error {
	uri := fmt.Sprintf("arn:aws:apigateway:%s:lambda:path/2015-03-31/functions/%s/invocations", s.region, functionARN)
	integrationMethod := "POST"
	_, err := s.api.PutIntegration(ctx, &apigateway.PutIntegrationInput{
		RestApiId:             &apiID,
		ResourceId:            &resourceID,
		HttpMethod:            &httpMethod,
		Type:                  types.IntegrationTypeAwsProxy,
		IntegrationHttpMethod: &integrationMethod,
		Uri:                   &uri,
	})
	if err != nil {
		return fmt.Errorf("failed to put lambda integration on %s %s: %w", httpMethod, resourceID, err)
	}
	return nil
}

// PutMockIntegration wires the method to a mock backend.
func (s *RestApiService) PutMockIntegration(ctx context.Context, apiID, resourceID, httpMethod string) error {
	_, err := s.api.PutIntegration(ctx, &apigateway.PutIntegrationInput{
		RestApiId:        &apiID,
		ResourceId:       &resourceID,
		HttpMethod:       &httpMethod,
		Type:             types.IntegrationTypeMock,
		RequestTemplates: map[string]string{"application/json": `{"statusCode": 200}`},
	})
	if err != nil {
		return fmt.Errorf("failed to put mock integration on %s %s: %w", httpMethod, resourceID, err)
	}
	return nil
}

// PutMethodResponse declares a response status code for the method.
func (s *RestApiService) PutMethodResponse(ctx context.Context, apiID, resourceID, httpMethod, statusCode string) error {
	_, err := s.api.PutMethodResponse(ctx, &apigateway.PutMethodResponseInput{
		RestApiId:  &apiID,
		ResourceId: &resourceID,
		HttpMethod: &httpMethod,
		StatusCode: &statusCode,
	})
	if err != nil {
		return fmt.Errorf("failed to put method response %s on %s %s: %w", statusCode, httpMethod, resourceID, err)
	}
	return nil
}

// Deploy publishes the API to the named stage.
func (s *RestApiService) Deploy(ctx context.Context, apiID, stage string) error {
	_, err := s.api.CreateDeployment(ctx, &apigateway.CreateDeploymentInput{
		RestApiId: &apiID,
		StageName: &stage,
	})
	if err != nil {
		return fmt.Errorf("failed to deploy rest api %s to stage %s: %w", apiID, stage, err)
	}
	return nil
}

// Delete removes the REST API. NotFound is returned as-is so callers
// can decide whether a missing API matters.
func (s *RestApiService) Delete(ctx context.Context, id string) error {
	if _, err := s.api.DeleteRestApi(ctx, &apigateway.DeleteRestApiInput{RestApiId: &id}); err != nil {
		return fmt.Errorf("failed to delete rest api %s: %w", id, err)
	}
	return nil
}
