package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/docfeed/config"
	"github.com/kilianp07/docfeed/core/archive"
)

var archiveQuery struct {
	since      time.Duration
	datasource string
	docID      string
	status     string
	limit      int
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Query sent feeds",
	RunE:  runArchive,
}

func init() {
	f := archiveCmd.Flags()
	f.DurationVar(&archiveQuery.since, "since", 24*time.Hour, "look back this far (0 for everything)")
	f.StringVar(&archiveQuery.datasource, "datasource", "", "filter by datasource")
	f.StringVar(&archiveQuery.docID, "doc-id", "", "feeds containing this document id")
	f.StringVar(&archiveQuery.status, "status", "", "sent, failed or cancelled")
	f.IntVar(&archiveQuery.limit, "limit", 100, "maximum number of entries")
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := archive.NewStore(cfg.Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	q := archive.Query{
		Datasource: archiveQuery.datasource,
		DocID:      archiveQuery.docID,
		Status:     archiveQuery.status,
		Limit:      archiveQuery.limit,
	}
	if archiveQuery.since > 0 {
		q.Start = time.Now().Add(-archiveQuery.since)
	}
	entries, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if entries == nil {
		entries = []archive.Entry{}
	}
	return enc.Encode(entries)
}
