package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pruneThreshold float64

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Recompute and persist effective strength for every memory",
	Long: `decay is the one maintenance path that persists decayed strength as
a memory's new stored base strength. It writes on every run; there is no
--apply flag and no dry-run mode. recall never does this —
decay is computed fresh on every read and discarded.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, db := openService(cfg)
		defer db.Close()

		report, err := svc.ApplyDecay()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("scanned %d, updated %d\n", report.Scanned, report.Updated)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete memories whose stored strength is below a threshold",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, db := openService(cfg)
		defer db.Close()

		n, err := svc.Prune(pruneThreshold)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("pruned %d memories below strength %.3f\n", n, pruneThreshold)
	},
}

func init() {
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().Float64Var(&pruneThreshold, "threshold", 0.05, "strength below which a memory is deleted")
}
