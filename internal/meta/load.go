package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
)

// ParseResources decodes a build meta document: a JSON object keyed by
// logical resource name, each value holding that resource's meta with a
// "resource_type" discriminator. The result is sorted by name so a run
// over the same bundle is deterministic.
func ParseResources(data []byte) ([]ResourceDescriptor, error) {
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse build meta: %w", err)
	}

	descriptors := make([]ResourceDescriptor, 0, len(raw))
	for name, m := range raw {
		params := Params(m)
		kind := ResourceKind(params.Str("resource_type"))
		if kind == "" {
			return nil, fmt.Errorf("resource %s has no resource_type", name)
		}
		descriptors = append(descriptors, ResourceDescriptor{
			Name: name,
			Kind: kind,
			Meta: params,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors, nil
}

// LoadResources reads and parses the build meta file at path.
func LoadResources(path string) ([]ResourceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build meta %s: %w", path, err)
	}
	return ParseResources(data)
}

// Filter restricts which resources a deploy or clean run touches. Empty
// lists impose no restriction; only- and excluded- lists combine, with
// exclusion winning.
type Filter struct {
	OnlyResources     []string
	OnlyTypes         []string
	ExcludedResources []string
	ExcludedTypes     []string
}

// Match reports whether a resource with the given name and kind passes
// the filter.
func (f Filter) Match(name string, kind ResourceKind) bool {
	if len(f.OnlyResources) > 0 && !slices.Contains(f.OnlyResources, name) {
		return false
	}
	if len(f.OnlyTypes) > 0 && !slices.Contains(f.OnlyTypes, string(kind)) {
		return false
	}
	if slices.Contains(f.ExcludedResources, name) {
		return false
	}
	if slices.Contains(f.ExcludedTypes, string(kind)) {
		return false
	}
	return true
}

// Apply returns the descriptors that pass the filter, preserving order.
func (f Filter) Apply(descriptors []ResourceDescriptor) []ResourceDescriptor {
	out := make([]ResourceDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if f.Match(d.Name, d.Kind) {
			out = append(out, d)
		}
	}
	return out
}

// ApplyRecord returns the record entries that pass the filter.
func (f Filter) ApplyRecord(record DeploymentRecord) DeploymentRecord {
	out := make(DeploymentRecord, len(record))
	for id, obj := range record {
		if f.Match(obj.ResourceName, obj.Kind()) {
			out[id] = obj
		}
	}
	return out
}
