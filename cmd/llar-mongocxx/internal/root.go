package internal

import (
	"os"

	"github.com/containerd/log"
	"github.com/spf13/cobra"
)

var rootDebug bool

var rootCmd = &cobra.Command{
	Use:   "llar-mongocxx",
	Short: "llar-mongocxx packages the MongoDB C++ driver",
	Long: `llar-mongocxx builds the MongoDB C++ driver for a platform and a set of
options, stages headers and libraries into a package layout and prints
how to compile and link against it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootDebug {
			return log.SetLevel("debug")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging, including cmake output")
	addProfileFlags(rootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
