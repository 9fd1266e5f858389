package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the irongate CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("irongate version %s\n", version)
		fmt.Println("A fail-closed governance and risk gate for unattended trading")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
