package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/docfeed/core/archive"
	"github.com/kilianp07/docfeed/core/model"
)

func TestCollectRecords(t *testing.T) {
	t.Cleanup(func() { pushFile, pushDelete = "", false })

	pushDelete = true
	recs, err := collectRecords(nil, []string{"a"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, model.ActionDelete, recs[0].Action)

	pushDelete = false
	pushFile = "-"
	recs, err = collectRecords(strings.NewReader(`["b",{"doc_id":"c","action":"delete"}]`), []string{"a"})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, model.DocID("c"), recs[2].DocID)
	require.Equal(t, model.ActionDelete, recs[2].Action)
}

func TestPushThenArchive(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	data := "pusher:\n  datasource: intranet\narchive:\n  path: " + filepath.Join(dir, "feeds.jsonl") + "\nserver:\n  address: 127.0.0.1:0\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(data), 0o644))
	t.Cleanup(func() { cfgPath = "config.yaml" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"push", "-c", cfgFile, "doc-1", "doc-2"})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), "pushed 2 records")

	out.Reset()
	rootCmd.SetArgs([]string{"archive", "-c", cfgFile, "--doc-id", "doc-2"})
	require.NoError(t, rootCmd.Execute())
	var entries []archive.Entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, []string{"doc-1", "doc-2"}, entries[0].DocIDs)
	require.Equal(t, archive.StatusSent, entries[0].Status)
}
