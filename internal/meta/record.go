package meta

import "fmt"

// ResourceID is the provider-assigned identifier a deployed resource is
// recorded under, typically an ARN. It is opaque to the engine.
type ResourceID string

// DescriptionObject snapshots one deployed resource: the logical name,
// the meta it was deployed from, and the provider's view of the result.
type DescriptionObject struct {
	ResourceName string         `json:"resource_name"`
	ResourceMeta Params         `json:"resource_meta"`
	Description  map[string]any `json:"description"`
}

// DeploymentRecord maps provider-assigned resource ids to their
// description objects. It is the durable output of a deploy run and the
// input of a clean run.
type DeploymentRecord map[ResourceID]DescriptionObject

// Merge folds other into r. Two entries under the same id mean two
// resources resolved to one provider identity, which is always a
// declaration error, so duplicates fail instead of overwriting.
func (r DeploymentRecord) Merge(other DeploymentRecord) error {
	for id, obj := range other {
		if existing, ok := r[id]; ok {
			return fmt.Errorf("duplicate resource id %s: recorded for both %s and %s",
				id, existing.ResourceName, obj.ResourceName)
		}
		r[id] = obj
	}
	return nil
}

// Kind returns the resource kind recorded in the entry's meta.
func (o DescriptionObject) Kind() ResourceKind {
	return ResourceKind(o.ResourceMeta.Str("resource_type"))
}
