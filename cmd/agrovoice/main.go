// Command agrovoice runs the farm advisory assistant: a gRPC service, an
// interactive chat shell, and session maintenance tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agrovoice/agrovoice/pkg/config"
)

// Version is set via ldflags.
var Version = "dev"

var configFile string

func main() {
	root := &cobra.Command{
		Use:     "agrovoice",
		Short:   "Multimodal farm advisory assistant",
		Version: Version,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (YAML)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newSessionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}
