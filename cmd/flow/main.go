package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/kylrix/flow/cmd/flow/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flow",
		Short: "Flow productivity client",
		Long:  `Flow is the tasks, notes and events client of the Kylrix suite. It talks to the shared backend, the identity provider and the vault keychain.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewStateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
