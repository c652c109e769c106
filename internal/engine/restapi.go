package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/picklr-io/relish/internal/logging"
	"github.com/picklr-io/relish/internal/meta"
	"github.com/picklr-io/relish/providers/aws"
)

var restAPIRequired = []string{"resources", "deploy_stage"}

// reconcileRestAPI deploys one REST API: the resource tree and methods
// from the declared layout, lambda or mock integrations, one settle
// wait, then the stage deployment.
func (e *Engine) reconcileRestAPI(ctx context.Context, d meta.ResourceDescriptor) (meta.DeploymentRecord, error) {
	log := logging.With("resource", d.Name, "type", d.Kind)

	if err := validateParams(d.Name, d.Meta, restAPIRequired); err != nil {
		return nil, err
	}

	apiID, err := e.clients.RestApis.Create(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	rootID, err := e.clients.RestApis.RootResourceID(ctx, apiID)
	if err != nil {
		return nil, err
	}

	resources := d.Meta.Sub("resources")
	paths := make([]string, 0, len(resources))
	for path := range resources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	// Shared path prefixes are created once; ids are cached by full
	// path.
	created := map[string]string{"/": rootID}
	for _, path := range paths {
		if !strings.HasPrefix(path, "/") {
			return nil, &ValidationError{
				Resource: d.Name,
				Reason:   fmt.Sprintf("api resource path %q must start with /", path),
			}
		}
		resourceID, err := e.ensureAPIResource(ctx, apiID, path, created)
		if err != nil {
			return nil, err
		}
		if err := e.deployAPIMethods(ctx, d.Name, apiID, resourceID, path, resources.Sub(path)); err != nil {
			return nil, err
		}
	}

	if err := e.sleep(ctx, e.cfg.Waits.PostCreate); err != nil {
		return nil, err
	}
	if err := e.clients.RestApis.Deploy(ctx, apiID, d.Meta.Str("deploy_stage")); err != nil {
		return nil, err
	}

	desc, found, err := e.clients.RestApis.Get(ctx, apiID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("rest api %s not visible after create", apiID)
	}

	log.Info("rest api deployed", "id", apiID)
	return d.Describe(e.restAPIRecordID(apiID), desc.Description), nil
}

// ensureAPIResource walks the path segments, creating each level at
// most once, and returns the id of the leaf resource.
func (e *Engine) ensureAPIResource(ctx context.Context, apiID, path string, created map[string]string) (string, error) {
	parent := created["/"]
	prefix := ""
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		prefix = prefix + "/" + segment
		if id, ok := created[prefix]; ok {
			parent = id
			continue
		}
		id, err := e.clients.RestApis.CreateResource(ctx, apiID, parent, segment)
		if err != nil {
			return "", err
		}
		created[prefix] = id
		parent = id
	}
	return parent, nil
}

// deployAPIMethods declares each method of one api resource with its
// integration and a default 200 response. Methods without a declared
// integration get a mock backend so the stage deployment succeeds.
func (e *Engine) deployAPIMethods(ctx context.Context, resource, apiID, resourceID, path string, methods meta.Params) error {
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	sort.Strings(names)

	for _, name := range names {
		method := strings.ToUpper(name)
		spec := methods.Sub(name)
		if err := e.clients.RestApis.PutMethod(ctx, apiID, resourceID, method, spec.Str("authorization_type")); err != nil {
			return err
		}

		switch integration := spec.Str("integration_type"); integration {
		case "lambda":
			functionName := spec.Str("lambda_name")
			fn, found, err := e.clients.Functions.Get(ctx, functionName)
			if err != nil {
				return err
			}
			if !found {
				return &DependencyError{
					Resource:   resource,
					Dependency: fmt.Sprintf("function %s for %s %s", functionName, method, path),
				}
			}
			if err := e.clients.RestApis.PutLambdaIntegration(ctx, apiID, resourceID, method, fn.ARN); err != nil {
				return err
			}
			if err := e.clients.Functions.AddInvocationPermission(ctx, functionName, "apigateway.amazonaws.com", ""); err != nil {
				return err
			}
		case "mock", "":
			if err := e.clients.RestApis.PutMockIntegration(ctx, apiID, resourceID, method); err != nil {
				return err
			}
		default:
			return &ValidationError{
				Resource: resource,
				Reason:   fmt.Sprintf("unsupported integration type %q for %s %s", integration, method, path),
			}
		}

		if err := e.clients.RestApis.PutMethodResponse(ctx, apiID, resourceID, method, "200"); err != nil {
			return err
		}
	}
	return nil
}

// restAPIRecordID builds the record key for a REST API. API ids are
// not ARNs, so the key is assembled in ARN form for uniformity with
// the other kinds.
func (e *Engine) restAPIRecordID(apiID string) meta.ResourceID {
	return meta.ResourceID(fmt.Sprintf("arn:aws:apigateway:%s::/restapis/%s", e.cfg.Region, apiID))
}

// removeRestAPI deletes the API recorded under id, then waits out the
// provider's coarse rate limit on API deletions before the next one.
func (e *Engine) removeRestAPI(ctx context.Context, id meta.ResourceID, obj meta.DescriptionObject) error {
	log := logging.With("resource", obj.ResourceName, "type", meta.KindRestAPI)

	apiID, _ := obj.Description["Id"].(string)
	if apiID == "" {
		s := string(id)
		apiID = s[strings.LastIndex(s, "/")+1:]
	}

	if err := e.clients.RestApis.Delete(ctx, apiID); err != nil {
		if aws.IsNotFound(err) {
			log.Warn("rest api is not found, nothing to remove")
			return nil
		}
		return err
	}
	log.Info("rest api removed", "id", id)
	return e.sleep(ctx, e.cfg.Waits.APIRemoval)
}
