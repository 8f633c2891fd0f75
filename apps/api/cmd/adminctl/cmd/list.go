package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered administrators",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 100, "Maximum rows to print")
}

func runList(cmd *cobra.Command, _ []string) error {
	admins, err := be.admins.List(cmd.Context(), listLimit, 0)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tEMAIL\tROLE\tSINCE")
	for _, a := range admins {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.UserID, a.Email, a.Role, a.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}
