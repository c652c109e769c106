package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/picklr-io/relish/internal/config"
	"github.com/picklr-io/relish/internal/engine"
	"github.com/picklr-io/relish/internal/meta"
	"github.com/picklr-io/relish/internal/record"
	"github.com/picklr-io/relish/providers/aws"
)

// readNameList reads a JSON array of resource names from a file.
// A missing file is not an error; the flag is optional.
func readNameList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read resource list %s: %w", path, err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse resource list %s: %w", path, err)
	}
	return names, nil
}

// mergeNames unions inline flag values with names read from a list
// file, deduplicated and sorted for deterministic filtering.
func mergeNames(inline, fromFile []string) []string {
	if len(fromFile) == 0 {
		return inline
	}
	seen := make(map[string]bool, len(inline)+len(fromFile))
	var merged []string
	for _, n := range append(append([]string{}, inline...), fromFile...) {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		merged = append(merged, n)
	}
	sort.Strings(merged)
	return merged
}

// buildFilter assembles a resource filter from the only/excluded flags,
// folding in the optional JSON list files.
func buildFilter(only, onlyTypes, excluded, excludedTypes []string, onlyPath, excludedPath string) (meta.Filter, error) {
	fromFile, err := readNameList(onlyPath)
	if err != nil {
		return meta.Filter{}, err
	}
	excludedFromFile, err := readNameList(excludedPath)
	if err != nil {
		return meta.Filter{}, err
	}
	return meta.Filter{
		OnlyResources:     mergeNames(only, fromFile),
		OnlyTypes:         onlyTypes,
		ExcludedResources: mergeNames(excluded, excludedFromFile),
		ExcludedTypes:     excludedTypes,
	}, nil
}

// recordName keys the deployment record the way bundles are laid out:
// records live under their bundle when one is named.
func recordName(bundle, deploy string) string {
	if bundle == "" {
		return deploy
	}
	return path.Join(bundle, deploy)
}

// setup loads the tool configuration and constructs the AWS clients,
// the engine and the record store every command needs.
func setup(ctx context.Context) (*engine.Engine, record.Store, error) {
	cfg, err := config.Load(ctx, cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	clients, err := aws.NewClients(ctx, aws.Config{
		Region:    cfg.Region,
		AccountID: cfg.AccountID,
		Profile:   cfg.Profile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build AWS clients: %w", err)
	}

	eng := engine.New(engine.FromAWS(clients), engine.Config{
		Region:       cfg.Region,
		AccountID:    cfg.AccountID,
		DeployBucket: cfg.DeployBucket,
		Waits:        engine.DefaultWaits(),
	})

	var store record.Store
	if cfg.Record.S3Bucket != "" {
		store = record.NewS3Store(clients.S3, cfg.Record.S3Bucket, cfg.Record.S3Prefix)
	} else {
		store = record.NewLocalStore(cfg.RecordDir())
	}

	return eng, store, nil
}
