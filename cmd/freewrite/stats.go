// ABOUTME: CLI command printing journal statistics.
// ABOUTME: Supports plain text and JSON output.
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/freewrite/internal/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts, writing days, and the current streak",
	RunE:  runStats,
}

var statsJSON bool

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	st := globalIndex.Stats(time.Now())
	out := cmd.OutOrStdout()

	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "Entries:   %d\n", st.Entries)
	fmt.Fprintf(out, "Favorites: %d\n", st.Favorites)
	fmt.Fprintf(out, "Days:      %d\n", st.Days)
	fmt.Fprintf(out, "Streak:    %d\n", st.Streak)
	fmt.Fprintf(out, "Best day:  %d\n", st.MostInADay)
	for _, c := range models.Categories {
		fmt.Fprintf(out, "  %-8s %d\n", c, st.ByCategory[c])
	}
	return nil
}
