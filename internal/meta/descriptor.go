// Package meta defines the deployment data model: resource descriptors
// parsed from a bundle's build meta, the trigger specs nested inside them,
// and the deployment record produced by a deploy run.
package meta

// ResourceKind identifies the provisioner responsible for a resource.
type ResourceKind string

const (
	KindLambda        ResourceKind = "lambda"
	KindKinesisStream ResourceKind = "kinesis_stream"
	KindScheduleRule  ResourceKind = "cloudwatch_rule"
	KindRestAPI       ResourceKind = "api_gateway"
)

// ResourceDescriptor is one declared resource: a logical name, the kind
// that selects its provisioner, and the kind-specific configuration map.
type ResourceDescriptor struct {
	Name string
	Kind ResourceKind
	Meta Params
}

// Describe builds a single-entry deployment record for this resource,
// keyed by the provider-assigned id.
func (d ResourceDescriptor) Describe(id ResourceID, description map[string]any) DeploymentRecord {
	return DeploymentRecord{
		id: DescriptionObject{
			ResourceName: d.Name,
			ResourceMeta: d.Meta,
			Description:  description,
		},
	}
}

// Params holds the kind-specific configuration of a resource as parsed
// from the build meta. Values carry JSON typing, so the accessors below
// normalize the numeric and collection shapes callers actually need.
type Params map[string]any

// Has reports whether the key is present, regardless of its value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Str returns the string value for key, or "" when absent or non-string.
func (p Params) Str(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int32 returns the integer value for key, accepting the numeric types
// JSON decoding and programmatic construction produce.
func (p Params) Int32(key string) int32 {
	switch v := p[key].(type) {
	case int:
		return int32(v)
	case int32:
		return v
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	}
	return 0
}

// Bool returns the boolean value for key, or false when absent.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// StrSlice returns the list of strings under key. Non-string elements
// are skipped.
func (p Params) StrSlice(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// StrMap returns the string-to-string map under key. Non-string values
// are skipped.
func (p Params) StrMap(key string) map[string]string {
	switch v := p[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

// Sub returns the nested map under key as Params, or nil when absent.
func (p Params) Sub(key string) Params {
	switch v := p[key].(type) {
	case Params:
		return v
	case map[string]any:
		return Params(v)
	}
	return nil
}
