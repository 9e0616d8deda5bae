package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and trigger background tasks",
	Long:  `List, trigger and view logs of the server's background tasks. Requires admin credentials (casbridge login).`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
