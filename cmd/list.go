package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedfirst/pantry-cli/internal/pantry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the pantry dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := pantry.Load(cfg.Dataset.Path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range records {
			fmt.Fprintf(out, "%s - %s (%s)\n", r.Name, r.Address, r.Location)
		}
		fmt.Fprintf(out, "%d pantries loaded from %s\n", len(records), cfg.Dataset.Path)
		return nil
	},
}

func init() { rootCmd.AddCommand(listCmd) }
