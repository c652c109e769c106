package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/relish/internal/meta"
)

func apiDescriptor(name string, resources map[string]any) meta.ResourceDescriptor {
	return meta.ResourceDescriptor{
		Name: name,
		Kind: meta.KindRestAPI,
		Meta: meta.Params{
			"resource_type": "api_gateway",
			"deploy_stage":  "prod",
			"resources":     resources,
		},
	}
}

func TestReconcileRestAPI_DeploysResourceTree(t *testing.T) {
	f := newFakes()
	f.functions.existing["app"] = awsFunction("app")
	eng := newTestEngine(f)

	d := apiDescriptor("shop-api", map[string]any{
		"/orders": map[string]any{
			"GET": map[string]any{
				"integration_type":   "lambda",
				"lambda_name":        "app",
				"authorization_type": "NONE",
			},
			"POST": map[string]any{},
		},
		"/orders/items": map[string]any{
			"GET": map[string]any{"integration_type": "mock"},
		},
	})

	rec, err := eng.reconcileRestAPI(context.Background(), d)

	require.NoError(t, err)

	// Nested paths reuse the parent resource instead of re-creating it.
	require.Equal(t, []string{
		"orders under root-api-1",
		"items under res-root-api-1-orders",
	}, f.apis.resources)

	assert.Equal(t, []string{
		"GET res-root-api-1-orders",
		"POST res-root-api-1-orders",
		"GET res-res-root-api-1-orders-items",
	}, f.apis.methods)

	require.Len(t, f.apis.integrations, 3)
	assert.Contains(t, f.apis.integrations[0], "lambda GET")
	assert.Contains(t, f.apis.integrations[0], "function:app")
	// A method without a declared integration gets a mock backend.
	assert.Contains(t, f.apis.integrations[1], "mock POST")
	assert.Contains(t, f.apis.integrations[2], "mock GET")

	require.Len(t, f.functions.permissions, 1)
	assert.Equal(t, "apigateway.amazonaws.com", f.functions.permissions[0].principal)

	assert.Equal(t, []string{"api-1 prod"}, f.apis.deployed)

	require.Len(t, rec, 1)
	obj, ok := rec["arn:aws:apigateway:eu-west-1::/restapis/api-1"]
	require.True(t, ok)
	assert.Equal(t, "shop-api", obj.ResourceName)
}

func TestReconcileRestAPI_RejectsRelativePath(t *testing.T) {
	f := newFakes()
	eng := newTestEngine(f)

	d := apiDescriptor("shop-api", map[string]any{
		"orders": map[string]any{"GET": map[string]any{}},
	})

	_, err := eng.reconcileRestAPI(context.Background(), d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "must start with /")
	assert.Empty(t, f.apis.deployed)
}

func TestReconcileRestAPI_MissingIntegrationFunction(t *testing.T) {
	f := newFakes()
	eng := newTestEngine(f)

	d := apiDescriptor("shop-api", map[string]any{
		"/orders": map[string]any{
			"GET": map[string]any{
				"integration_type": "lambda",
				"lambda_name":      "ghost",
			},
		},
	})

	_, err := eng.reconcileRestAPI(context.Background(), d)

	var derr *DependencyError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Dependency, "ghost")
}

func TestReconcileRestAPI_RejectsUnknownIntegration(t *testing.T) {
	f := newFakes()
	eng := newTestEngine(f)

	d := apiDescriptor("shop-api", map[string]any{
		"/orders": map[string]any{
			"GET": map[string]any{"integration_type": "http"},
		},
	})

	_, err := eng.reconcileRestAPI(context.Background(), d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "unsupported integration type")
}

func TestReconcileRestAPI_ValidatesRequiredFields(t *testing.T) {
	f := newFakes()
	eng := newTestEngine(f)

	d := meta.ResourceDescriptor{
		Name: "shop-api",
		Kind: meta.KindRestAPI,
		Meta: meta.Params{"resource_type": "api_gateway"},
	}

	_, err := eng.reconcileRestAPI(context.Background(), d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "deploy_stage")
	assert.Contains(t, verr.Reason, "resources")
}

func TestRemoveRestAPI_ByRecordedID(t *testing.T) {
	f := newFakes()
	f.apis.apis["api-7"] = "shop-api"
	eng := newTestEngine(f)

	err := eng.removeRestAPI(context.Background(),
		"arn:aws:apigateway:eu-west-1::/restapis/api-7",
		meta.DescriptionObject{
			ResourceName: "shop-api",
			Description:  map[string]any{"Id": "api-7"},
		})

	require.NoError(t, err)
	assert.NotContains(t, f.apis.apis, "api-7")
}

func TestRemoveRestAPI_FallsBackToIDFromKey(t *testing.T) {
	f := newFakes()
	f.apis.apis["api-9"] = "shop-api"
	eng := newTestEngine(f)

	err := eng.removeRestAPI(context.Background(),
		"arn:aws:apigateway:eu-west-1::/restapis/api-9",
		meta.DescriptionObject{ResourceName: "shop-api"})

	require.NoError(t, err)
	assert.NotContains(t, f.apis.apis, "api-9")
}

func TestRemoveRestAPI_AlreadyGone(t *testing.T) {
	f := newFakes()
	eng := newTestEngine(f)

	err := eng.removeRestAPI(context.Background(),
		"arn:aws:apigateway:eu-west-1::/restapis/api-1",
		meta.DescriptionObject{ResourceName: "ghost"})

	require.NoError(t, err)
}
