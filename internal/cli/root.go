package cli

import (
	"github.com/picklr-io/relish/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "relish",
	Short: "Serverless deployment automation for AWS",
	Long: `Relish deploys a bundle of serverless resources to AWS from its build metadata.

It takes the deployment metadata produced by a bundle build and:
  • Creates Lambda functions, Kinesis streams, schedule rules and REST APIs
  • Wires event-source triggers onto the deployed functions
  • Records everything it created so 'relish clean' can tear it down`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "relish.json", "Path to the relish configuration file (.pkl or .json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(versionCmd)
}
