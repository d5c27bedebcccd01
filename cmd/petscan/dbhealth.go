package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Check the database connection and print table sizes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		timeout, _ := cmd.Flags().GetDuration("timeout")

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if err := a.DB.HealthCheck(ctx, timeout, a.Logger); err != nil {
			return fmt.Errorf("DB health: FAIL (%w)", err)
		}
		fmt.Fprintf(out, "DB health: OK (%s)\n", a.DB.Dialect())

		stats, err := a.DB.Stats(ctx)
		if err != nil {
			return err
		}
		tables := make([]string, 0, len(stats))
		for t := range stats {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			fmt.Fprintf(out, "- %s: %d\n", t, stats[t])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbhealthCmd)
	dbhealthCmd.Flags().Duration("timeout", time.Second, "ping timeout")
}
