package cli

import (
	"errors"
	"fmt"

	"github.com/picklr-io/relish/internal/meta"
	"github.com/spf13/cobra"
)

var (
	cleanName          string
	cleanBundle        string
	cleanOnlyResources []string
	cleanOnlyTypes     []string
	cleanExcluded      []string
	cleanExcludedTypes []string
	cleanOnlyPath      string
	cleanExcludedPath  string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove deployed resources",
	Long: `Removes the resources tracked in a deployment record.

This command is the inverse of 'relish deploy'. Resources are removed kind
by kind in reverse deploy order; resources that are already gone count as
removed. Entries that could not be removed stay in the record.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanName, "name", "", "Deployment name (required)")
	cleanCmd.Flags().StringVar(&cleanBundle, "bundle", "", "Bundle the deployment was built from")
	cleanCmd.Flags().StringSliceVar(&cleanOnlyResources, "only-resources", nil, "Remove only these resources")
	cleanCmd.Flags().StringSliceVar(&cleanOnlyTypes, "only-types", nil, "Remove only these resource types")
	cleanCmd.Flags().StringSliceVar(&cleanExcluded, "excluded-resources", nil, "Keep these resources")
	cleanCmd.Flags().StringSliceVar(&cleanExcludedTypes, "excluded-types", nil, "Keep these resource types")
	cleanCmd.Flags().StringVar(&cleanOnlyPath, "only-resources-file", "", "JSON file with additional resource names to remove")
	cleanCmd.Flags().StringVar(&cleanExcludedPath, "excluded-resources-file", "", "JSON file with additional resource names to keep")
	_ = cleanCmd.MarkFlagRequired("name")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	filter, err := buildFilter(cleanOnlyResources, cleanOnlyTypes,
		cleanExcluded, cleanExcludedTypes, cleanOnlyPath, cleanExcludedPath)
	if err != nil {
		return err
	}

	eng, store, err := setup(ctx)
	if err != nil {
		return err
	}

	name := recordName(cleanBundle, cleanName)
	if err := store.Lock(name); err != nil {
		return err
	}
	defer store.Unlock(name)

	full, err := store.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read deployment record: %w", err)
	}
	if len(full) == 0 {
		fmt.Printf("No deployment named %s. Nothing to clean.\n", name)
		return nil
	}

	selected := filter.ApplyRecord(full)
	if len(selected) == 0 {
		fmt.Println("No recorded resources match the filters. Nothing to clean.")
		return nil
	}

	fmt.Printf("Removing %d resources...\n", len(selected))
	remaining, cleanErr := eng.Clean(ctx, selected)

	// Entries the filters kept out plus entries that failed to remove
	// make up the record that survives this run.
	after := meta.DeploymentRecord{}
	for id, obj := range full {
		if _, was := selected[id]; !was {
			after[id] = obj
		}
	}
	for id, obj := range remaining {
		after[id] = obj
	}

	if len(after) == 0 {
		if err := store.Delete(ctx, name); err != nil {
			return errors.Join(cleanErr, fmt.Errorf("failed to delete deployment record: %w", err))
		}
	} else {
		if err := store.Write(ctx, name, after); err != nil {
			return errors.Join(cleanErr, fmt.Errorf("failed to write deployment record: %w", err))
		}
	}

	if cleanErr != nil {
		return fmt.Errorf("clean finished with failures: %w", cleanErr)
	}

	fmt.Println("\nClean complete! All selected resources have been removed.")
	return nil
}
