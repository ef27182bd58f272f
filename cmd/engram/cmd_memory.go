package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engram/engram/internal/memory"
)

var (
	searchLimit    int
	searchCategory string

	recentLimit    int
	recentCategory string

	forgetScope string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage-level counts",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, db := openService(cfg)
		defer db.Close()

		stats, err := svc.Stats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Memories:   %d\n", stats.MemoryCount)
		fmt.Printf("Database:   %s\n", cfg.DBPath)
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recently accessed memories",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, db := openService(cfg)
		defer db.Close()

		out, err := svc.Recall(context.Background(), memory.RecallInput{
			Limit:    recentLimit,
			Category: recentCategory,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printRecallResults(out.Results)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search memories by semantic similarity or full text",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		cfg := loadConfig()
		svc, db := openService(cfg)
		defer db.Close()

		out, err := svc.Recall(context.Background(), memory.RecallInput{
			Query:    query,
			Limit:    searchLimit,
			Category: searchCategory,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printRecallResults(out.Results)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single memory by id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, db := openService(cfg)
		defer db.Close()

		m, err := svc.Get(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("id:           %s\n", m.ID)
		fmt.Printf("content:      %s\n", m.Content)
		fmt.Printf("category:     %s\n", m.Category)
		fmt.Printf("strength:     %.3f\n", m.Strength)
		fmt.Printf("access_count: %d\n", m.AccessCount)
		fmt.Printf("created_at:   %s\n", m.CreatedAt)
		fmt.Printf("last_accessed:%s\n", m.LastAccessed)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a memory by id",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc, db := openService(cfg)
		defer db.Close()

		out, err := svc.Forget(memory.ForgetInput{ID: args[0], ScopeID: forgetScope})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if !out.Deleted {
			fmt.Println("no matching memory in scope")
			return
		}
		fmt.Printf("deleted %s\n", out.ID)
	},
}

func printRecallResults(results []memory.RecallResult) {
	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s  (relevance %.3f, strength %.3f)\n", i+1, r.ID, r.Relevance, r.Strength)
		fmt.Printf("   %s\n", truncate(r.Content, 100))
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(forgetCmd)

	recentCmd.Flags().IntVar(&recentLimit, "limit", 10, "maximum number of results")
	recentCmd.Flags().StringVar(&recentCategory, "category", "", "filter by category")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "filter by category")

	forgetCmd.Flags().StringVar(&forgetScope, "scope-id", "", "scope the memory must match; omit to require an unscoped memory")
}
