package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	describeName   string
	describeBundle string
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show a deployment record",
	Long:  `Displays the recorded resources of a deployment as JSON.`,
	RunE:  runDescribe,
}

func init() {
	describeCmd.Flags().StringVar(&describeName, "name", "", "Deployment name (required)")
	describeCmd.Flags().StringVar(&describeBundle, "bundle", "", "Bundle the deployment was built from")
	_ = describeCmd.MarkFlagRequired("name")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, store, err := setup(ctx)
	if err != nil {
		return err
	}

	name := recordName(describeBundle, describeName)
	rec, err := store.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read deployment record: %w", err)
	}
	if len(rec) == 0 {
		fmt.Printf("No deployment named %s.\n", name)
		return nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deployment record: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
