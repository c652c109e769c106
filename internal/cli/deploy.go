package cli

import (
	"errors"
	"fmt"

	"github.com/picklr-io/relish/internal/meta"
	"github.com/spf13/cobra"
)

var (
	deployName          string
	deployBundle        string
	deployMetaFile      string
	deployOnlyResources []string
	deployOnlyTypes     []string
	deployExcluded      []string
	deployExcludedTypes []string
	deployOnlyPath      string
	deployExcludedPath  string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy bundle resources to AWS",
	Long: `Deploys every resource declared in a bundle's build metadata.

Resources are created kind by kind in dependency order, triggers are wired
onto the functions, and everything created is written to a deployment record
under the given deployment name.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployName, "name", "", "Deployment name (required)")
	deployCmd.Flags().StringVar(&deployBundle, "bundle", "", "Bundle the deployment was built from")
	deployCmd.Flags().StringVar(&deployMetaFile, "meta-file", "build_meta.json", "Path to the bundle's build metadata")
	deployCmd.Flags().StringSliceVar(&deployOnlyResources, "only-resources", nil, "Deploy only these resources")
	deployCmd.Flags().StringSliceVar(&deployOnlyTypes, "only-types", nil, "Deploy only these resource types")
	deployCmd.Flags().StringSliceVar(&deployExcluded, "excluded-resources", nil, "Skip these resources")
	deployCmd.Flags().StringSliceVar(&deployExcludedTypes, "excluded-types", nil, "Skip these resource types")
	deployCmd.Flags().StringVar(&deployOnlyPath, "only-resources-file", "", "JSON file with additional resource names to deploy")
	deployCmd.Flags().StringVar(&deployExcludedPath, "excluded-resources-file", "", "JSON file with additional resource names to skip")
	_ = deployCmd.MarkFlagRequired("name")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	filter, err := buildFilter(deployOnlyResources, deployOnlyTypes,
		deployExcluded, deployExcludedTypes, deployOnlyPath, deployExcludedPath)
	if err != nil {
		return err
	}

	descriptors, err := meta.LoadResources(deployMetaFile)
	if err != nil {
		return fmt.Errorf("failed to load build meta: %w", err)
	}
	descriptors = filter.Apply(descriptors)
	if len(descriptors) == 0 {
		fmt.Println("Nothing to deploy.")
		return nil
	}

	eng, store, err := setup(ctx)
	if err != nil {
		return err
	}

	name := recordName(deployBundle, deployName)
	if err := store.Lock(name); err != nil {
		return err
	}
	defer store.Unlock(name)

	existing, err := store.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read deployment record: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("deployment %q already exists; clean it first or pick another name", deployName)
	}

	fmt.Printf("Deploying %d resources...\n", len(descriptors))
	rec, deployErr := eng.Deploy(ctx, descriptors)

	// Persist whatever actually deployed so a partial failure is still
	// cleanable.
	if len(rec) > 0 {
		if err := store.Write(ctx, name, rec); err != nil {
			return errors.Join(deployErr, fmt.Errorf("failed to write deployment record: %w", err))
		}
	}
	if deployErr != nil {
		return fmt.Errorf("deploy finished with failures: %w", deployErr)
	}

	fmt.Printf("\nDeploy complete! %d resources recorded as %s.\n", len(rec), name)
	return nil
}
