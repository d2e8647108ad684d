package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "penny",
		Short:   "Penny - AnyBank's assistant in your terminal",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConfig(cmd)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("server", "", "assistant server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.penny/config.yaml)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "how long to wait for each reply")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(sessionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
