package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"socialcrawler/pkg/config"
	"socialcrawler/pkg/ledger"
	"socialcrawler/pkg/logger"
	"socialcrawler/pkg/ui"
)

var ledgerLimit int

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the run ledger",
}

// ledgerListCmd represents the ledger list command
var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recorded posts",
	Long: `Show the posts recorded in the configured ledger, most recent last.

A CSV ledger lists every processed post, including repeats across runs.
A SQLite ledger holds one row per post.`,
	Example: `  socialcrawler ledger list --limit 20
  socialcrawler ledger list --ledger-mode sqlite --ledger-path ledger.db`,
	Args: cobra.NoArgs,
	RunE: runLedgerList,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)

	f := ledgerListCmd.Flags()
	f.String("ledger-mode", "", "ledger backend (csv, sqlite)")
	f.String("ledger-path", "", "ledger file for the selected mode")
	f.IntVar(&ledgerLimit, "limit", 50, "show at most this many entries, 0 for all")
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	flags := globalFlags()
	if v, _ := cmd.Flags().GetString("ledger-mode"); v != "" {
		flags["ledger-mode"] = v
	}
	if v, _ := cmd.Flags().GetString("ledger-path"); v != "" {
		flags["ledger-path"] = v
	}

	cfg, err := config.Resolve(configFile, flags)
	if err != nil {
		return err
	}

	l, err := ledger.Open(cfg.Ledger, logger.NewNopLogger())
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.Entries(cmd.Context())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		ui.PrintInfo("Ledger is empty", cfg.Ledger.Path())
		return nil
	}

	total := len(entries)
	if ledgerLimit > 0 && total > ledgerLimit {
		entries = entries[total-ledgerLimit:]
	}

	ui.PrintTable([]string{"POST", "SUBREDDIT", "CREATED", "TITLE", "MEDIA"}, ledgerRows(entries))
	ui.Println()
	ui.PrintInfo("Entries", strconv.Itoa(total))
	return nil
}

func ledgerRows(entries []ledger.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		created := ""
		if e.CreatedUTC > 0 {
			created = time.Unix(int64(e.CreatedUTC), 0).UTC().Format("2006-01-02 15:04")
		}
		media := e.CachedMediaPath
		if media == "" {
			media = "-"
		}
		rows = append(rows, []string{e.PostID, e.Subreddit, created, truncate(e.Title, 48), media})
	}
	return rows
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
